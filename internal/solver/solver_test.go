package solver

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, m *Model) *Response {
	t.Helper()
	resp, err := Solve(context.Background(), m, Parameters{MaxTime: 5 * time.Second, RandomSeed: 1, NumWorkers: 2})
	require.NoError(t, err)
	return resp
}

func TestSolveExactlyOne(t *testing.T) {
	m := NewModel("exactly-one")
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	m.AddExactlyOne(a, b, c)

	resp := solve(t, m)
	require.Equal(t, Optimal, resp.Status)

	count := 0
	for _, v := range []Var{a, b, c} {
		if resp.BooleanValue(v) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSolveMinimize(t *testing.T) {
	m := NewModel("minimize")
	x := m.NewIntVar(0, 10, "x")
	y := m.NewIntVar(0, 10, "y")
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 1), 7)
	m.AddLessOrEqual(NewLinearExpr().AddTerm(x, 1), 4)
	m.Minimize(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2))

	resp := solve(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(10), resp.ObjectiveValue)
	assert.Equal(t, int64(4), resp.Value(x))
	assert.Equal(t, int64(3), resp.Value(y))
}

func TestSolveInfeasible(t *testing.T) {
	m := NewModel("infeasible")
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddExactlyOne(a, b)
	m.AddEquality(Sum(a, b), 2)

	resp := solve(t, m)
	assert.Equal(t, Infeasible, resp.Status)
	assert.False(t, resp.Status.HasSolution())
}

func TestSolveEmptySumCannotBeOne(t *testing.T) {
	m := NewModel("empty")
	m.AddEquality(NewLinearExpr(), 1)

	resp := solve(t, m)
	assert.Equal(t, Infeasible, resp.Status)
}

func TestSolveReifiedIndicator(t *testing.T) {
	// b <=> x + y >= 2，并且最小化 b，要求 x = y = 1
	m := NewModel("reified")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	b := m.NewBoolVar("b")
	sum := Sum(x, y)
	m.AddGreaterOrEqual(sum, 2).OnlyEnforceIf(b.Lit())
	m.AddLessOrEqual(sum, 1).OnlyEnforceIf(b.Not())
	m.AddEquality(Sum(x), 1)
	m.AddEquality(Sum(y), 1)
	m.Minimize(Sum(b))

	resp := solve(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.True(t, resp.BooleanValue(b))
	assert.Equal(t, int64(1), resp.ObjectiveValue)
}

func TestSolveAbsoluteDeviation(t *testing.T) {
	m := NewModel("abs")
	xs := make([]Var, 5)
	hours := NewLinearExpr()
	for i := range xs {
		xs[i] = m.NewBoolVar("x")
		hours.AddTerm(xs[i], 10)
	}
	dev := m.NewIntVar(0, 50, "dev")
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(dev, 1).AddExpr(hours, -1), -25)
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(dev, 1).AddExpr(hours, 1), 25)
	m.Minimize(Sum(dev))

	resp := solve(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(5), resp.ObjectiveValue)
}

func TestSolveWithoutObjectiveStopsAtFirstSolution(t *testing.T) {
	m := NewModel("feasibility")
	vars := make([]Var, 20)
	for i := range vars {
		vars[i] = m.NewBoolVar("v")
	}
	m.AddLessOrEqual(Sum(vars...), 3)

	resp := solve(t, m)
	assert.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(0), resp.ObjectiveValue)
}

func TestSolveInvalidModel(t *testing.T) {
	m := NewModel("invalid")
	x := m.NewIntVar(0, 3, "x")
	y := m.NewBoolVar("y")
	m.AddLessOrEqual(Sum(y), 0).OnlyEnforceIf(x.Lit())

	resp, err := Solve(context.Background(), m, Parameters{})
	require.ErrorIs(t, err, ErrInvalidModel)
	assert.Equal(t, ModelInvalid, resp.Status)
}

func TestSolveCancelledContext(t *testing.T) {
	// 鸽巢问题：12 只鸽子放进 11 个笼子，没有子句学习时搜索量很大
	const pigeons, holes = 12, 11
	m := NewModel("pigeonhole")
	x := make([][]Var, pigeons)
	for p := range x {
		x[p] = make([]Var, holes)
		for h := range x[p] {
			x[p][h] = m.NewBoolVar("x")
		}
		m.AddExactlyOne(x[p]...)
	}
	for h := 0; h < holes; h++ {
		col := make([]Var, 0, pigeons)
		for p := 0; p < pigeons; p++ {
			col = append(col, x[p][h])
		}
		m.AddAtMostOne(col...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := Solve(ctx, m, Parameters{RandomSeed: 3})
	require.NoError(t, err)
	assert.Equal(t, Unknown, resp.Status)
	assert.Less(t, resp.WallTime, 5*time.Second)
}

func TestLinearExprMergesDuplicates(t *testing.T) {
	m := NewModel("merge")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	e := NewLinearExpr().AddTerm(x, 2).AddTerm(y, 1).AddTerm(x, -2)

	terms := e.merged()
	require.Len(t, terms, 1)
	assert.Equal(t, y, terms[0].Var)
}

func TestDivisionRounding(t *testing.T) {
	assert.Equal(t, int64(-2), floorDiv(-3, 2))
	assert.Equal(t, int64(1), floorDiv(3, 2))
	assert.Equal(t, int64(-1), ceilDiv(-3, 2))
	assert.Equal(t, int64(2), ceilDiv(3, 2))
	assert.Equal(t, int64(3), ceilDiv(-3, -1))
	assert.Equal(t, int64(5), floorDiv(-5, -1))
}

func TestSolveDefaultWorkersUsesAllProcs(t *testing.T) {
	prev := runtime.GOMAXPROCS(4)
	defer runtime.GOMAXPROCS(prev)

	assert.Equal(t, 4, resolveWorkers(0))
	assert.Equal(t, 4, resolveWorkers(-1))
	assert.Equal(t, 3, resolveWorkers(3))

	m := NewModel("workers")
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddExactlyOne(a, b)

	resp, err := Solve(context.Background(), m, Parameters{MaxTime: 5 * time.Second, RandomSeed: 1})
	require.NoError(t, err)
	assert.Equal(t, Optimal, resp.Status)
	assert.Equal(t, 4, resp.Workers)
}
