package scheduler

import (
	"errors"
	"fmt"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
)

var (
	ErrDuplicateResident  = errors.New("住院医姓名重复")
	ErrDuplicateShift     = errors.New("同一天的班次代码重复")
	ErrUnknownConstraint  = errors.New("未知的约束")
	ErrConstraintsApplied = errors.New("约束已经添加过")
)

// ScheduleModel 是一次排班求解的全部状态：索引、决策变量、约束以及目标项。
// 每次求解独占一个 ScheduleModel，不在多次求解之间共享。
type ScheduleModel struct {
	residents      []*domain.Resident // 保持调用方传入的顺序
	shifts         []*domain.Shift
	days           []domain.Date
	hospitalSystem domain.HospitalSystem

	index *Index
	model *solver.Model

	assignments map[AssignmentKey]solver.Var
	keys        []AssignmentKey // 按分配顺序保存，用于确定性的遍历

	objectiveTerms []solver.Var
	applied        []string
}

func New(residents []domain.Resident, shifts []domain.Shift, days []domain.Date, hospitalSystem domain.HospitalSystem) (*ScheduleModel, error) {
	m := &ScheduleModel{
		residents:      make([]*domain.Resident, 0, len(residents)),
		shifts:         make([]*domain.Shift, 0, len(shifts)),
		days:           make([]domain.Date, 0, len(days)),
		hospitalSystem: hospitalSystem,
		model:          solver.NewModel("resident-schedule"),
		assignments:    make(map[AssignmentKey]solver.Var),
	}

	names := make(map[string]struct{}, len(residents))
	for i := range residents {
		r := residents[i]
		if _, exists := names[r.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateResident, r.Name)
		}
		names[r.Name] = struct{}{}
		m.residents = append(m.residents, &r)
	}

	type shiftKey struct {
		day  domain.Date
		code string
	}
	codes := make(map[shiftKey]struct{}, len(shifts))
	for i := range shifts {
		s := shifts[i]
		k := shiftKey{day: s.Date, code: s.Code}
		if _, exists := codes[k]; exists {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateShift, s.Date, s.Code)
		}
		codes[k] = struct{}{}
		m.shifts = append(m.shifts, &s)
	}

	seen := make(map[domain.Date]struct{}, len(days))
	for _, d := range days {
		if _, exists := seen[d]; exists {
			continue
		}
		seen[d] = struct{}{}
		m.days = append(m.days, d)
	}

	m.index = BuildIndex(m.residents, m.shifts, m.days, hospitalSystem)
	m.allocate()

	return m, nil
}

func (m *ScheduleModel) Index() *Index {
	return m.index
}

// Model 返回底层的求解器模型，测试和调试时使用
func (m *ScheduleModel) Model() *solver.Model {
	return m.model
}

func (m *ScheduleModel) Days() []domain.Date {
	return m.days
}

// AppliedConstraints 返回已经添加到模型中的约束名称（按注册表顺序）
func (m *ScheduleModel) AppliedConstraints() []string {
	return m.applied
}

// activeResidents 返回需要受工时规则约束的住院医（ED 和 Peds），保持输入顺序
func (m *ScheduleModel) activeResidents() []*domain.Resident {
	active := make([]*domain.Resident, 0, len(m.residents))
	for _, r := range m.residents {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	return active
}

type week struct {
	start domain.Date
	days  []domain.Date
}

// weeks 按周一开始的 ISO 周对排班日期分组，周的顺序与日期首次出现的顺序一致
func (m *ScheduleModel) weeks() []week {
	var weeks []week
	position := make(map[domain.Date]int)

	for _, d := range m.days {
		start := d.WeekStart()
		i, ok := position[start]
		if !ok {
			i = len(weeks)
			position[start] = i
			weeks = append(weeks, week{start: start})
		}
		weeks[i].days = append(weeks[i].days, d)
	}

	return weeks
}

// consecutiveDays 返回所有 n 个日历上连续且都在排班范围内的日期序列
func (m *ScheduleModel) consecutiveDays(n int) [][]domain.Date {
	var runs [][]domain.Date

	for _, d := range m.days {
		run := make([]domain.Date, n)
		ok := true
		for i := 0; i < n; i++ {
			day := d.AddDays(i - n + 1)
			if !m.index.InHorizon(day) {
				ok = false
				break
			}
			run[i] = day
		}
		if ok {
			runs = append(runs, run)
		}
	}

	return runs
}
