package utils

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ed-residency/resident-scheduler/internal/domain"
)

const (
	maxWeeklyHours = 60
	maxHorizonDays = 366
)

func ValidateHorizon(start, end domain.Date) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("排班开始日期和结束日期不能为空")
	}
	if end.Before(start) {
		return errors.New("排班结束日期不能早于开始日期")
	}
	if start.DaysUntil(end)+1 > maxHorizonDays {
		return fmt.Errorf("排班范围不能超过 %d 天", maxHorizonDays)
	}
	return nil
}

// ValidateSchedule 独立地检查一份排班是否满足硬性规则，返回遇到的第一个违反项
func ValidateSchedule(residents []domain.Resident, shifts []domain.Shift, days []domain.Date, schedule domain.Schedule) error {
	byName := make(map[string]*domain.Resident, len(residents))
	for i := range residents {
		byName[residents[i].Name] = &residents[i]
	}

	if err := validateAssignedResidents(byName, schedule); err != nil {
		return err
	}
	if err := validateMandatoryCoverage(shifts, days, schedule); err != nil {
		return err
	}
	if err := validateTeamStaffing(shifts, days, schedule); err != nil {
		return err
	}
	if err := validateDailyCap(schedule); err != nil {
		return err
	}
	if err := validateWeeklyLimits(shifts, days, schedule); err != nil {
		return err
	}
	return nil
}

func validateAssignedResidents(byName map[string]*domain.Resident, schedule domain.Schedule) error {
	for day, ds := range schedule {
		for code, r := range ds {
			known, ok := byName[r.Name]
			if !ok {
				return fmt.Errorf("%s 的班次 %s 分配给了不存在的住院医 %s", day, code, r.Name)
			}
			if !known.IsEligible() {
				return fmt.Errorf("%s 的班次 %s 分配给了不可排班的住院医 %s（%s）", day, code, r.Name, known.ServiceType)
			}
		}
	}
	return nil
}

func validateMandatoryCoverage(shifts []domain.Shift, days []domain.Date, schedule domain.Schedule) error {
	for _, s := range shifts {
		if !s.IsMandatory || !slices.Contains(days, s.Date) {
			continue
		}
		if _, ok := schedule.Assigned(s.Date, s.Code); !ok {
			return fmt.Errorf("必排班次 %s 没有分配住院医", s.Code)
		}
	}
	return nil
}

var requiredLevels = map[domain.Team]domain.PGYLevel{
	domain.TeamRed:    domain.PGY3,
	domain.TeamGreen:  domain.PGY2,
	domain.TeamIntern: domain.PGY1,
	domain.TeamBlue:   domain.PGY1,
}

func validateTeamStaffing(shifts []domain.Shift, days []domain.Date, schedule domain.Schedule) error {
	for _, s := range shifts {
		level, ok := requiredLevels[s.Team]
		if !ok || !slices.Contains(days, s.Date) {
			continue
		}

		// 每个班次只有一名住院医，所以"恰好一名"和"至少一名"都要求这名住院医的等级符合
		r, ok := schedule.Assigned(s.Date, s.Code)
		if !ok {
			return fmt.Errorf("%s 班次 %s 需要一名 %s", s.Team.Name(), s.Code, level)
		}
		if r.PGYLevel != level {
			return fmt.Errorf("%s 班次 %s 需要 %s，实际分配了 %s（%s）", s.Team.Name(), s.Code, level, r.Name, r.PGYLevel)
		}
	}
	return nil
}

func validateDailyCap(schedule domain.Schedule) error {
	for day, ds := range schedule {
		count := make(map[string]int)
		for _, r := range ds {
			if !r.IsActive() {
				continue
			}
			count[r.Name]++
			if count[r.Name] > 1 {
				return fmt.Errorf("住院医 %s 在 %s 被分配了多个班次", r.Name, day)
			}
		}
	}
	return nil
}

func validateWeeklyLimits(shifts []domain.Shift, days []domain.Date, schedule domain.Schedule) error {
	shiftByKey := make(map[string]*domain.Shift, len(shifts))
	for i := range shifts {
		shiftByKey[shifts[i].Date.String()+"/"+shifts[i].Code] = &shifts[i]
	}

	weekDays := make(map[domain.Date]int)
	for _, d := range days {
		weekDays[d.WeekStart()]++
	}

	type residentWeek struct {
		name string
		week domain.Date
	}
	hours := make(map[residentWeek]int)
	worked := make(map[residentWeek]map[domain.Date]struct{})

	for day, ds := range schedule {
		for code, r := range ds {
			if !r.IsActive() {
				continue
			}
			s, ok := shiftByKey[day.String()+"/"+code]
			if !ok {
				return fmt.Errorf("%s 的排班中出现了未知班次 %s", day, code)
			}

			key := residentWeek{name: r.Name, week: day.WeekStart()}
			hours[key] += s.Duration(r.PGYLevel)
			if worked[key] == nil {
				worked[key] = make(map[domain.Date]struct{})
			}
			worked[key][day] = struct{}{}
		}
	}

	for key, h := range hours {
		if h > maxWeeklyHours {
			return fmt.Errorf("住院医 %s 在 %s 开始的一周内工作了 %d 小时，超过 %d 小时", key.name, key.week, h, maxWeeklyHours)
		}
	}

	for key, d := range worked {
		if len(d) > weekDays[key.week]-1 {
			return fmt.Errorf("住院医 %s 在 %s 开始的一周内没有休息日", key.name, key.week)
		}
	}

	return nil
}
