package scheduler

import (
	"fmt"
	"sort"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
)

const (
	maxContinuousHours = 12
	maxWeeklyHours     = 60
)

// addShiftAssignment 每个必排班次恰好分配给一名住院医
func (m *ScheduleModel) addShiftAssignment() int {
	n := 0
	for _, day := range m.days {
		for _, s := range m.index.ShiftsByDay[day] {
			if !s.IsMandatory {
				continue
			}

			expr := solver.NewLinearExpr()
			for _, r := range m.residents {
				if v, ok := m.lookup(day, s, r); ok {
					expr.AddTerm(v, 1)
				}
			}

			m.model.AddEquality(expr, 1).WithName(fmt.Sprintf("shift_assignment_%s_%s", day, s.Code))
			n++
		}
	}
	return n
}

// addDailyShiftCap 每名住院医每天最多一个班次
func (m *ScheduleModel) addDailyShiftCap() int {
	n := 0
	for _, day := range m.days {
		for _, r := range m.activeResidents() {
			vars := m.residentDayVars(day, r)
			if len(vars) < 2 {
				continue
			}
			m.model.AddAtMostOne(vars...).WithName(fmt.Sprintf("daily_shift_cap_%s_%s", day, r.Name))
			n++
		}
	}
	return n
}

// addContinuousHours 开始时间落在同一个 12 小时窗口（向后跨越午夜）内的班次互斥
func (m *ScheduleModel) addContinuousHours() int {
	n := 0
	for _, day := range m.days {
		byStartHour := make(map[int][]*domain.Shift)
		for _, s := range m.index.ShiftsByDay[day] {
			byStartHour[s.StartHour] = append(byStartHour[s.StartHour], s)
		}

		hours := make([]int, 0, len(byStartHour))
		for h := range byStartHour {
			hours = append(hours, h)
		}
		sort.Ints(hours)

		for _, r := range m.activeResidents() {
			for _, h := range hours {
				var window []*domain.Shift
				for _, other := range hours {
					if ((other-h)%24+24)%24 < maxContinuousHours {
						window = append(window, byStartHour[other]...)
					}
				}
				if len(window) < 2 {
					continue
				}

				var vars []solver.Var
				for _, s := range window {
					if v, ok := m.lookup(day, s, r); ok {
						vars = append(vars, v)
					}
				}
				if len(vars) < 2 {
					continue
				}

				m.model.AddAtMostOne(vars...).WithName(fmt.Sprintf("continuous_hours_%s_%02d_%s", day, h, r.Name))
				n++
			}
		}
	}
	return n
}

// addWeeklyHours 每周按 PGY 时长加权的工时不超过 60 小时
func (m *ScheduleModel) addWeeklyHours() int {
	n := 0
	for _, w := range m.weeks() {
		for _, r := range m.activeResidents() {
			expr, _ := m.hoursExpr(w.days, r)
			if expr.Len() == 0 {
				continue
			}
			m.model.AddLessOrEqual(expr, maxWeeklyHours).WithName(fmt.Sprintf("weekly_hours_%s_%s", w.start, r.Name))
			n++
		}
	}
	return n
}

type staffingRule struct {
	level domain.PGYLevel
	exact bool // true 表示恰好一名，false 表示至少一名
}

// 红组需要 PGY-3，绿组需要 PGY-2，实习组需要 PGY-1，蓝组至少一名 PGY-1。评估组和儿科不受限制
var staffingRules = map[domain.Team]staffingRule{
	domain.TeamRed:    {level: domain.PGY3, exact: true},
	domain.TeamGreen:  {level: domain.PGY2, exact: true},
	domain.TeamIntern: {level: domain.PGY1, exact: true},
	domain.TeamBlue:   {level: domain.PGY1, exact: false},
}

// addTeamEligibility 按团队限制被分配住院医的 PGY 等级
func (m *ScheduleModel) addTeamEligibility() int {
	n := 0
	for _, team := range domain.Teams {
		rule, ok := staffingRules[team]
		if !ok {
			continue
		}

		for _, s := range m.index.ShiftsByTeam[team] {
			if !m.index.InHorizon(s.Date) {
				continue
			}

			expr := solver.NewLinearExpr()
			for _, r := range m.index.ResidentsByPGY[rule.level] {
				if v, ok := m.lookup(s.Date, s, r); ok {
					expr.AddTerm(v, 1)
				}
			}

			name := fmt.Sprintf("team_eligibility_%s_%s", s.Date, s.Code)
			if rule.exact {
				m.model.AddEquality(expr, 1).WithName(name)
			} else {
				m.model.AddGreaterOrEqual(expr, 1).WithName(name)
			}
			n++
		}
	}
	return n
}

// addEquivalentRest 相邻两天的班次之间休息时间不足时不能同时上
func (m *ScheduleModel) addEquivalentRest() int {
	n := 0
	for _, pair := range m.consecutiveDays(2) {
		prevDay, day := pair[0], pair[1]

		for _, r := range m.activeResidents() {
			for _, s := range m.index.ShiftsByDay[day] {
				cur, ok := m.lookup(day, s, r)
				if !ok {
					continue
				}
				duration := s.Duration(r.PGYLevel)

				for _, p := range m.index.ShiftsByDay[prevDay] {
					prev, ok := m.lookup(prevDay, p, r)
					if !ok {
						continue
					}

					rest := 24 - p.Duration(r.PGYLevel)
					if rest < duration {
						m.model.AddAtMostOne(prev, cur).WithName(fmt.Sprintf("equivalent_rest_%s_%s_%s", p.Code, s.Code, r.Name))
						n++
					}
				}
			}
		}
	}
	return n
}

// addWeeklyDayOff 每周至少休息一天
func (m *ScheduleModel) addWeeklyDayOff() int {
	n := 0
	for _, w := range m.weeks() {
		for _, r := range m.activeResidents() {
			var vars []solver.Var
			for _, day := range w.days {
				vars = append(vars, m.residentDayVars(day, r)...)
			}
			if len(vars) == 0 {
				continue
			}

			m.model.AddLessOrEqual(solver.Sum(vars...), int64(len(w.days)-1)).WithName(fmt.Sprintf("weekly_day_off_%s_%s", w.start, r.Name))
			n++
		}
	}
	return n
}
