package solver

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Solve 在给定参数下求解模型。
// 多个 worker 使用不同的随机种子并行搜索并共享当前最优解，
// 任一 worker 遍历完搜索空间即证明结论，其余 worker 随之停止。
// 找不到解不是错误，调用方应检查 Response.Status。
func Solve(ctx context.Context, m *Model, params Parameters) (*Response, error) {
	start := time.Now()

	if err := m.Validate(); err != nil {
		return &Response{Status: ModelInvalid, WallTime: time.Since(start)}, err
	}

	c := compile(m)
	shared := newIncumbent(c.hasObjective)

	workers := resolveWorkers(params.NumWorkers)

	var deadline time.Time
	if params.MaxTime > 0 {
		deadline = start.Add(params.MaxTime)
	}

	var (
		proven    atomic.Bool
		branches  atomic.Int64
		conflicts atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		seed := params.RandomSeed + int64(w)
		g.Go(func() error {
			e := newEngine(gctx, c, shared, deadline, seed)
			if e.run() {
				proven.Store(true)
				shared.stop.Store(true)
			}
			branches.Add(e.branches)
			conflicts.Add(e.conflicts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &Response{
		WallTime:  time.Since(start),
		Workers:   workers,
		Branches:  branches.Load(),
		Conflicts: conflicts.Load(),
	}

	values, objective, found := shared.result()
	switch {
	case found && (proven.Load() || !c.hasObjective):
		resp.Status = Optimal
	case found:
		resp.Status = Feasible
	case proven.Load():
		resp.Status = Infeasible
	default:
		resp.Status = Unknown
	}

	if found {
		resp.values = values
		resp.ObjectiveValue = objective
	}

	return resp, nil
}

// resolveWorkers 把小于 1 的 worker 数换成可用的 CPU 数
func resolveWorkers(n int) int {
	if n < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Engine 是默认的求解后端
type Engine struct{}

func (Engine) Solve(ctx context.Context, m *Model, params Parameters) (*Response, error) {
	return Solve(ctx, m, params)
}
