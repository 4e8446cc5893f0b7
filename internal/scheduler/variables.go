package scheduler

import (
	"fmt"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
)

// AssignmentKey 唯一确定一个决策变量：住院医 Resident 在 Day 这一天上 ShiftCode 班次。
// 变量池里没有某个 key 表示这种分配是被禁止的。
type AssignmentKey struct {
	Day       domain.Date
	ShiftCode string
	Resident  string
}

func VariableName(day domain.Date, shiftCode, resident string) string {
	return fmt.Sprintf("assign_%s_%s_%s", day, shiftCode, resident)
}

// allocate 为每个 (日期, 当天班次, 可排班住院医) 创建一个布尔变量
func (m *ScheduleModel) allocate() {
	eligible := make([]*domain.Resident, 0, len(m.residents))
	for _, r := range m.residents {
		if r.IsEligible() {
			eligible = append(eligible, r)
		}
	}

	for _, day := range m.days {
		for _, s := range m.index.ShiftsByDay[day] {
			for _, r := range eligible {
				key := AssignmentKey{Day: day, ShiftCode: s.Code, Resident: r.Name}
				m.assignments[key] = m.model.NewBoolVar(VariableName(day, s.Code, r.Name))
				m.keys = append(m.keys, key)
			}
		}
	}
}

// Variable 查找某个分配对应的变量，第二个返回值为 false 表示该分配不允许
func (m *ScheduleModel) Variable(day domain.Date, shiftCode, resident string) (solver.Var, bool) {
	v, ok := m.assignments[AssignmentKey{Day: day, ShiftCode: shiftCode, Resident: resident}]
	return v, ok
}

func (m *ScheduleModel) NumAssignments() int {
	return len(m.keys)
}

// Keys 按分配顺序返回所有决策变量的 key
func (m *ScheduleModel) Keys() []AssignmentKey {
	return m.keys
}

func (m *ScheduleModel) lookup(day domain.Date, s *domain.Shift, r *domain.Resident) (solver.Var, bool) {
	return m.Variable(day, s.Code, r.Name)
}

// residentDayVars 返回住院医在某一天所有班次上的变量
func (m *ScheduleModel) residentDayVars(day domain.Date, r *domain.Resident) []solver.Var {
	var vars []solver.Var
	for _, s := range m.index.ShiftsByDay[day] {
		if v, ok := m.lookup(day, s, r); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// hoursExpr 返回住院医在若干天内按 PGY 时长加权的工时表达式，以及可能达到的最大工时
func (m *ScheduleModel) hoursExpr(days []domain.Date, r *domain.Resident) (*solver.LinearExpr, int64) {
	expr := solver.NewLinearExpr()
	var maxHours int64
	for _, day := range days {
		for _, s := range m.index.ShiftsByDay[day] {
			if v, ok := m.lookup(day, s, r); ok {
				d := int64(s.Duration(r.PGYLevel))
				expr.AddTerm(v, d)
				maxHours += d
			}
		}
	}
	return expr, maxHours
}
