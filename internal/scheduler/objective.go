package scheduler

import "github.com/ed-residency/resident-scheduler/internal/solver"

func (m *ScheduleModel) addObjectiveTerm(v solver.Var) {
	m.objectiveTerms = append(m.objectiveTerms, v)
}

// ObjectiveTerms 返回软约束产生的惩罚项个数
func (m *ScheduleModel) ObjectiveTerms() int {
	return len(m.objectiveTerms)
}

// buildObjective 把所有惩罚项不加权地求和作为最小化目标，没有惩罚项时不设置目标
func (m *ScheduleModel) buildObjective() bool {
	if len(m.objectiveTerms) == 0 {
		m.model.Minimize(nil)
		return false
	}
	m.model.Minimize(solver.Sum(m.objectiveTerms...))
	return true
}
