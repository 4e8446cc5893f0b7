package scheduler

import (
	"fmt"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
)

const (
	circadianMorningHour = 7
	circadianEveningHour = 16
)

// reify 创建布尔变量 b，满足 b <=> expr >= k
func (m *ScheduleModel) reify(expr *solver.LinearExpr, k int64, name string) solver.Var {
	b := m.model.NewBoolVar(name)
	m.model.AddGreaterOrEqual(expr, k).OnlyEnforceIf(b.Lit())
	m.model.AddLessOrEqual(expr, k-1).OnlyEnforceIf(b.Not())
	return b
}

// absDeviation 创建整数变量 dev >= |expr - target|，最小化时取等号
func (m *ScheduleModel) absDeviation(expr *solver.LinearExpr, target, upper int64, name string) solver.Var {
	dev := m.model.NewIntVar(0, upper, name)
	// dev >= expr - target
	m.model.AddGreaterOrEqual(solver.NewLinearExpr().AddTerm(dev, 1).AddExpr(expr, -1), -target)
	// dev >= target - expr
	m.model.AddGreaterOrEqual(solver.NewLinearExpr().AddTerm(dev, 1).AddExpr(expr, 1), target)
	return dev
}

// addHourGoal 惩罚实际工时与目标工时之间的偏差
func (m *ScheduleModel) addHourGoal() int {
	n := 0
	for _, r := range m.activeResidents() {
		expr, maxHours := m.hoursExpr(m.days, r)
		goal := int64(r.HoursGoal)

		upper := max(goal, maxHours-goal, 0)
		dev := m.absDeviation(expr, goal, upper, fmt.Sprintf("deviation_%s", r.Name))
		m.addObjectiveTerm(dev)
		n++
	}
	return n
}

// addHospitalAlternation 惩罚连续两天在同一家医院上班
func (m *ScheduleModel) addHospitalAlternation() int {
	n := 0
	for _, pair := range m.consecutiveDays(2) {
		prevDay, day := pair[0], pair[1]

		for _, r := range m.activeResidents() {
			for _, h := range m.hospitalSystem.Hospitals {
				prevShifts := shiftsAtHospital(m.index.ShiftsByDay[prevDay], h.Name)
				curShifts := shiftsAtHospital(m.index.ShiftsByDay[day], h.Name)
				if len(prevShifts) == 0 || len(curShifts) == 0 {
					continue
				}

				expr := solver.NewLinearExpr()
				for _, s := range prevShifts {
					if v, ok := m.lookup(prevDay, s, r); ok {
						expr.AddTerm(v, 1)
					}
				}
				for _, s := range curShifts {
					if v, ok := m.lookup(day, s, r); ok {
						expr.AddTerm(v, 1)
					}
				}
				if expr.Len() == 0 {
					continue
				}

				b := m.reify(expr, 2, fmt.Sprintf("hospital_violation_%s_%s_%s", day, r.Name, h.Name))
				m.addObjectiveTerm(b)
				n++
			}
		}
	}
	return n
}

// addTimeOff 惩罚在住院医申请休息的日期给他排班，只匹配完全相同的日期
func (m *ScheduleModel) addTimeOff() int {
	n := 0
	for _, r := range m.residents {
		requested := make(map[domain.Date]struct{}, len(r.RequestsOff))
		for _, day := range r.RequestsOff {
			if _, dup := requested[day]; dup || !m.index.InHorizon(day) {
				continue
			}
			requested[day] = struct{}{}

			vars := m.residentDayVars(day, r)
			if len(vars) == 0 {
				continue
			}

			b := m.reify(solver.Sum(vars...), 1, fmt.Sprintf("request_violation_%s_%s", day, r.Name))
			m.addObjectiveTerm(b)
			n++
		}
	}
	return n
}

// addCircadianRhythm 惩罚连续三天 早班 -> 晚班 -> 早班 的排班模式
func (m *ScheduleModel) addCircadianRhythm() int {
	n := 0
	for _, run := range m.consecutiveDays(3) {
		first, second, third := run[0], run[1], run[2]

		for _, r := range m.activeResidents() {
			for _, s3 := range m.index.ShiftsByDay[third] {
				x3, ok := m.lookup(third, s3, r)
				if !ok || s3.StartHour != circadianMorningHour {
					continue
				}

				for _, s2 := range m.index.ShiftsByDay[second] {
					x2, ok := m.lookup(second, s2, r)
					if !ok || s2.StartHour < circadianEveningHour {
						continue
					}

					for _, s1 := range m.index.ShiftsByDay[first] {
						x1, ok := m.lookup(first, s1, r)
						if !ok || s1.StartHour != circadianMorningHour {
							continue
						}

						name := fmt.Sprintf("rhythm_violation_%s_%s_%s_%s_%s", third, r.Name, s1.Code, s2.Code, s3.Code)
						b := m.reify(solver.Sum(x1, x2, x3), 3, name)
						m.addObjectiveTerm(b)
						n++
					}
				}
			}
		}
	}
	return n
}

func shiftsAtHospital(shifts []*domain.Shift, hospital string) []*domain.Shift {
	var out []*domain.Shift
	for _, s := range shifts {
		if s.Hospital.Name == hospital {
			out = append(out, s)
		}
	}
	return out
}
