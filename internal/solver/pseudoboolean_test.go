package solver

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solvePB(t *testing.T, m *Model) *Response {
	t.Helper()
	resp, err := SolvePB(context.Background(), m, Parameters{MaxTime: 10 * time.Second})
	require.NoError(t, err)
	return resp
}

func TestSolvePBMinimize(t *testing.T) {
	m := NewModel("minimize")
	x := m.NewIntVar(0, 10, "x")
	y := m.NewIntVar(0, 10, "y")
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 1), 7)
	m.AddLessOrEqual(NewLinearExpr().AddTerm(x, 1), 4)
	m.Minimize(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2))

	resp := solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(10), resp.ObjectiveValue)
	assert.Equal(t, int64(4), resp.Value(x))
	assert.Equal(t, int64(3), resp.Value(y))
	assert.Equal(t, 1, resp.Workers)
}

func TestSolvePBIntDomain(t *testing.T) {
	// 定义域 [-2, 3] 需要 3 个二进制位，上界 3 要单独约束
	m := NewModel("domain")
	x := m.NewIntVar(-2, 3, "x")
	m.Minimize(NewLinearExpr().AddTerm(x, -1))

	resp := solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(3), resp.Value(x))
	assert.Equal(t, int64(-3), resp.ObjectiveValue)

	m = NewModel("domain-min")
	x = m.NewIntVar(-2, 3, "x")
	m.Minimize(Sum(x).AddConstant(10))

	resp = solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(-2), resp.Value(x))
	assert.Equal(t, int64(8), resp.ObjectiveValue)
}

func TestSolvePBInfeasible(t *testing.T) {
	m := NewModel("infeasible")
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddExactlyOne(a, b)
	m.AddEquality(Sum(a, b), 2)
	assert.Equal(t, Infeasible, solvePB(t, m).Status)

	m = NewModel("empty")
	m.AddEquality(NewLinearExpr(), 1)
	assert.Equal(t, Infeasible, solvePB(t, m).Status)
}

func TestSolvePBReifiedIndicator(t *testing.T) {
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

	resp := solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.True(t, resp.BooleanValue(b))
	assert.Equal(t, int64(1), resp.ObjectiveValue)
}

func TestSolvePBAbsoluteDeviation(t *testing.T) {
	m := NewModel("abs")
	hours := NewLinearExpr()
	for i := 0; i < 5; i++ {
		hours.AddTerm(m.NewBoolVar("x"), 10)
	}
	dev := m.NewIntVar(0, 50, "dev")
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(dev, 1).AddExpr(hours, -1), -25)
	m.AddGreaterOrEqual(NewLinearExpr().AddTerm(dev, 1).AddExpr(hours, 1), 25)
	m.Minimize(Sum(dev))

	resp := solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.Equal(t, int64(5), resp.ObjectiveValue)
}

func TestSolvePBObjectiveOnlyVariables(t *testing.T) {
	m := NewModel("free")
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.Minimize(NewLinearExpr().AddTerm(a, 3).AddTerm(b, -2))

	resp := solvePB(t, m)
	require.Equal(t, Optimal, resp.Status)
	assert.False(t, resp.BooleanValue(a))
	assert.True(t, resp.BooleanValue(b))
	assert.Equal(t, int64(-2), resp.ObjectiveValue)
}

func TestSolvePBInvalidModel(t *testing.T) {
	m := NewModel("invalid")
	x := m.NewIntVar(0, 3, "x")
	y := m.NewBoolVar("y")
	m.AddLessOrEqual(Sum(y), 0).OnlyEnforceIf(x.Lit())

	resp, err := SolvePB(context.Background(), m, Parameters{})
	require.ErrorIs(t, err, ErrInvalidModel)
	assert.Equal(t, ModelInvalid, resp.Status)
}

// 两个后端在随机小模型上应当给出相同的结论和最优值
func TestSolvePBAgreesWithSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 60; i++ {
		t.Run(fmt.Sprintf("model-%d", i), func(t *testing.T) {
			r := rand.New(rand.NewSource(rng.Int63()))
			m := NewModel("random")

			var vars []Var
			var bools []Var
			for j := 0; j < 4+r.Intn(3); j++ {
				v := m.NewBoolVar("b")
				vars = append(vars, v)
				bools = append(bools, v)
			}
			vars = append(vars, m.NewIntVar(int64(-r.Intn(3)), int64(r.Intn(6)), "n"))

			for j := 0; j < 2+r.Intn(4); j++ {
				expr := NewLinearExpr()
				for _, v := range vars {
					if r.Intn(2) == 0 {
						expr.AddTerm(v, int64(r.Intn(7)-3))
					}
				}
				lo := int64(r.Intn(5) - 2)
				c := m.AddLinear(expr, lo, lo+int64(r.Intn(4)))
				if r.Intn(3) == 0 {
					e := bools[r.Intn(len(bools))]
					if r.Intn(2) == 0 {
						c.OnlyEnforceIf(e.Lit())
					} else {
						c.OnlyEnforceIf(e.Not())
					}
				}
			}

			obj := NewLinearExpr()
			for _, v := range vars {
				obj.AddTerm(v, int64(r.Intn(9)-4))
			}
			m.Minimize(obj)

			want, err := Solve(context.Background(), m, Parameters{MaxTime: 10 * time.Second, RandomSeed: 1, NumWorkers: 1})
			require.NoError(t, err)
			got := solvePB(t, m)

			require.Equal(t, want.Status, got.Status)
			if want.Status == Optimal {
				assert.Equal(t, want.ObjectiveValue, got.ObjectiveValue)
			}
		})
	}
}
