package scheduler

import (
	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
)

// extract 把求解结果解码为 日期 -> 班次 -> 住院医。
// 每个班次取输入顺序中第一个变量为真的住院医，没有人被分配的班次不出现在结果里。
func (m *ScheduleModel) extract(resp *solver.Response) domain.Schedule {
	schedule := make(domain.Schedule, len(m.days))

	for _, day := range m.days {
		ds := make(domain.DaySchedule)
		for _, s := range m.index.ShiftsByDay[day] {
			for _, r := range m.residents {
				v, ok := m.lookup(day, s, r)
				if !ok {
					continue
				}
				if resp.BooleanValue(v) {
					resident := *r
					ds[s.Code] = &resident
					break
				}
			}
		}
		schedule[day] = ds
	}

	return schedule
}
