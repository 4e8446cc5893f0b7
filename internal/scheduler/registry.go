package scheduler

import (
	"fmt"
	"log/slog"
)

type Kind string

const (
	KindHard Kind = "HARD"
	KindSoft Kind = "SOFT"
)

const (
	ShiftAssignment     = "shift_assignment"
	DailyShiftCap       = "daily_shift_cap"
	ContinuousHours     = "continuous_hours"
	WeeklyHours         = "weekly_hours"
	TeamEligibility     = "team_eligibility"
	EquivalentRest      = "equivalent_rest"
	WeeklyDayOff        = "weekly_day_off"
	HourGoal            = "hour_goal"
	HospitalAlternation = "hospital_alternation"
	TimeOff             = "time_off"
	CircadianRhythm     = "circadian_rhythm"
)

type generator func(m *ScheduleModel) int

type registryEntry struct {
	name     string
	kind     Kind
	generate generator
}

// 注册表的顺序就是约束添加到模型中的顺序
var registry = []registryEntry{
	{ShiftAssignment, KindHard, (*ScheduleModel).addShiftAssignment},
	{DailyShiftCap, KindHard, (*ScheduleModel).addDailyShiftCap},
	{ContinuousHours, KindHard, (*ScheduleModel).addContinuousHours},
	{WeeklyHours, KindHard, (*ScheduleModel).addWeeklyHours},
	{TeamEligibility, KindHard, (*ScheduleModel).addTeamEligibility},
	{EquivalentRest, KindHard, (*ScheduleModel).addEquivalentRest},
	{WeeklyDayOff, KindHard, (*ScheduleModel).addWeeklyDayOff},
	{HourGoal, KindSoft, (*ScheduleModel).addHourGoal},
	{HospitalAlternation, KindSoft, (*ScheduleModel).addHospitalAlternation},
	{TimeOff, KindSoft, (*ScheduleModel).addTimeOff},
	{CircadianRhythm, KindSoft, (*ScheduleModel).addCircadianRhythm},
}

// ConstraintInfo 描述注册表中的一项
type ConstraintInfo struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Constraints 按注册顺序列出所有约束
func Constraints() []ConstraintInfo {
	infos := make([]ConstraintInfo, len(registry))
	for i, e := range registry {
		infos[i] = ConstraintInfo{Name: e.name, Kind: e.kind}
	}
	return infos
}

func namesOfKind(kind Kind) []string {
	var names []string
	for _, e := range registry {
		if e.kind == kind {
			names = append(names, e.name)
		}
	}
	return names
}

func HardConstraints() []string {
	return namesOfKind(KindHard)
}

func SoftConstraints() []string {
	return namesOfKind(KindSoft)
}

// ConstraintSpec 是绑定到某个模型上的一条约束，Generate 返回添加的约束数量
type ConstraintSpec struct {
	Name     string
	Kind     Kind
	Generate func() int
}

// ConstraintSpecs 返回绑定到当前模型的完整注册表
func (m *ScheduleModel) ConstraintSpecs() []ConstraintSpec {
	specs := make([]ConstraintSpec, len(registry))
	for i, e := range registry {
		gen := e.generate
		specs[i] = ConstraintSpec{
			Name: e.name,
			Kind: e.kind,
			Generate: func() int {
				return gen(m)
			},
		}
	}
	return specs
}

// ValidateConstraintNames 检查名称是否都在注册表中
func ValidateConstraintNames(names []string) error {
	for _, name := range names {
		found := false
		for _, e := range registry {
			if e.name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownConstraint, name)
		}
	}
	return nil
}

// ApplyConstraints 把指定的约束添加到模型中，不传名称表示全部添加。
// 无论传入顺序如何，都按注册表顺序添加；同一个模型只能调用一次。
func (m *ScheduleModel) ApplyConstraints(names ...string) error {
	if m.applied != nil {
		return ErrConstraintsApplied
	}

	if err := ValidateConstraintNames(names); err != nil {
		return err
	}

	selected := make(map[string]bool, len(names))
	for _, name := range names {
		selected[name] = true
	}

	m.applied = []string{}
	for _, spec := range m.ConstraintSpecs() {
		if len(names) > 0 && !selected[spec.Name] {
			continue
		}

		n := spec.Generate()
		m.applied = append(m.applied, spec.Name)
		slog.Debug("已添加约束", "name", spec.Name, "kind", spec.Kind, "count", n)
	}

	return nil
}

// allHardApplied 判断所有硬约束是否都已添加
func (m *ScheduleModel) allHardApplied() bool {
	applied := make(map[string]bool, len(m.applied))
	for _, name := range m.applied {
		applied[name] = true
	}
	for _, name := range HardConstraints() {
		if !applied[name] {
			return false
		}
	}
	return true
}
