package domain

import "sort"

// DaySchedule 班次代码 -> 被分配的住院医，没有出现的班次表示未分配
type DaySchedule map[string]*Resident

// Schedule 日期 -> 当天的排班
type Schedule map[Date]DaySchedule

func (s Schedule) Assigned(day Date, shiftCode string) (*Resident, bool) {
	ds, ok := s[day]
	if !ok {
		return nil, false
	}
	r, ok := ds[shiftCode]
	return r, ok
}

// AssignmentCount 返回排班中被分配的班次总数
func (s Schedule) AssignmentCount() int {
	cnt := 0
	for _, ds := range s {
		cnt += len(ds)
	}
	return cnt
}

type ScheduleEntry struct {
	Date      Date     `json:"date"`
	ShiftCode string   `json:"shiftCode"`
	Resident  string   `json:"resident"`
	PGYLevel  PGYLevel `json:"pgyLevel"`
}

// Entries 以 (日期, 班次代码) 排序后的列表形式返回排班
func (s Schedule) Entries() []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, s.AssignmentCount())
	for day, ds := range s {
		for code, r := range ds {
			entries = append(entries, ScheduleEntry{
				Date:      day,
				ShiftCode: code,
				Resident:  r.Name,
				PGYLevel:  r.PGYLevel,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ShiftCode < entries[j].ShiftCode
	})

	return entries
}
