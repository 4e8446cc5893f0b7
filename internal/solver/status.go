package solver

import "time"

type Status int

const (
	Unknown Status = iota
	ModelInvalid
	Feasible
	Infeasible
	Optimal
)

func (s Status) String() string {
	switch s {
	case ModelInvalid:
		return "MODEL_INVALID"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Optimal:
		return "OPTIMAL"
	default:
		return "UNKNOWN"
	}
}

// HasSolution 判断该状态下是否带有可行解
func (s Status) HasSolution() bool {
	return s == Optimal || s == Feasible
}

type Parameters struct {
	MaxTime    time.Duration // 为 0 时不限时间，只受 ctx 控制
	RandomSeed int64
	NumWorkers int // 小于 1 时使用 GOMAXPROCS
}

type Response struct {
	Status         Status
	ObjectiveValue int64
	WallTime       time.Duration
	Workers        int
	Branches       int64
	Conflicts      int64

	values []int64
}

func (r *Response) Value(v Var) int64 {
	if r.values == nil || int(v) < 0 || int(v) >= len(r.values) {
		return 0
	}
	return r.values[v]
}

func (r *Response) BooleanValue(v Var) bool {
	return r.Value(v) == 1
}

func (r *Response) LiteralValue(l Literal) bool {
	return r.BooleanValue(l.Var) != l.Negated
}
