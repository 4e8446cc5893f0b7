package scheduler

import (
	"sort"

	"github.com/ed-residency/resident-scheduler/internal/domain"
)

// Index 是建模时使用的只读查找表，构建之后不再修改。
// 组内元素按规范顺序排序，因此输入顺序不影响分组结果。
type Index struct {
	ResidentsByPGY   map[domain.PGYLevel][]*domain.Resident
	ShiftsByDay      map[domain.Date][]*domain.Shift
	ShiftsByTeam     map[domain.Team][]*domain.Shift
	ShiftsByHospital map[string][]*domain.Shift

	horizon map[domain.Date]struct{}
}

func BuildIndex(residents []*domain.Resident, shifts []*domain.Shift, days []domain.Date, hospitalSystem domain.HospitalSystem) *Index {
	idx := &Index{
		ResidentsByPGY:   make(map[domain.PGYLevel][]*domain.Resident, len(domain.PGYLevels)),
		ShiftsByDay:      make(map[domain.Date][]*domain.Shift, len(days)),
		ShiftsByTeam:     make(map[domain.Team][]*domain.Shift, len(domain.Teams)),
		ShiftsByHospital: make(map[string][]*domain.Shift, len(hospitalSystem.Hospitals)),
		horizon:          make(map[domain.Date]struct{}, len(days)),
	}

	for _, level := range domain.PGYLevels {
		idx.ResidentsByPGY[level] = []*domain.Resident{}
	}
	for _, r := range residents {
		idx.ResidentsByPGY[r.PGYLevel] = append(idx.ResidentsByPGY[r.PGYLevel], r)
	}

	for _, d := range days {
		idx.horizon[d] = struct{}{}
		idx.ShiftsByDay[d] = []*domain.Shift{}
	}

	for _, team := range domain.Teams {
		idx.ShiftsByTeam[team] = []*domain.Shift{}
	}

	for _, h := range hospitalSystem.Hospitals {
		idx.ShiftsByHospital[h.Name] = []*domain.Shift{}
	}

	for _, s := range shifts {
		// 不在排班日期内的班次不进入按天索引
		if _, ok := idx.horizon[s.Date]; ok {
			idx.ShiftsByDay[s.Date] = append(idx.ShiftsByDay[s.Date], s)
		}

		idx.ShiftsByTeam[s.Team] = append(idx.ShiftsByTeam[s.Team], s)

		if _, ok := idx.ShiftsByHospital[s.Hospital.Name]; ok {
			idx.ShiftsByHospital[s.Hospital.Name] = append(idx.ShiftsByHospital[s.Hospital.Name], s)
		}
	}

	for _, group := range idx.ResidentsByPGY {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Name < group[j].Name
		})
	}
	for _, group := range idx.ShiftsByDay {
		sortShifts(group)
	}
	for _, group := range idx.ShiftsByTeam {
		sortShifts(group)
	}
	for _, group := range idx.ShiftsByHospital {
		sortShifts(group)
	}

	return idx
}

// InHorizon 判断日期是否在排班范围内
func (idx *Index) InHorizon(d domain.Date) bool {
	_, ok := idx.horizon[d]
	return ok
}

func sortShifts(shifts []*domain.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		return a.Code < b.Code
	})
}
