package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/solver"
	"github.com/ed-residency/resident-scheduler/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultMaxTime = 5 * time.Minute

var (
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_solve_total",
		Help: "Total schedule solves by solver status",
	}, []string{"status"})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Wall time of schedule solves in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	})

	modelVariables = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_model_variables",
		Help:    "Number of solver variables per schedule model",
		Buckets: prometheus.ExponentialBuckets(10, 4, 10),
	})
)

// Backend 是求解引擎，默认使用 solver.Engine
type Backend interface {
	Solve(ctx context.Context, m *solver.Model, params solver.Parameters) (*solver.Response, error)
}

const (
	BackendSearch        = "cp"
	BackendPseudoBoolean = "pb"
)

var ErrUnknownBackend = errors.New("未知的求解后端")

// BackendByName 根据名称选择求解引擎，空字符串表示默认引擎
func BackendByName(name string) (Backend, error) {
	switch name {
	case "", BackendSearch:
		return solver.Engine{}, nil
	case BackendPseudoBoolean:
		return solver.PBEngine{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
}

type SolveOptions struct {
	Constraints []string      // 为空时启用全部约束
	MaxTime     time.Duration // 为 0 时使用 DefaultMaxTime
	Seed        *int64        // 为 nil 时每次求解随机选取
	Workers     int
	Backend     Backend
}

// Result 是一次求解的结果。Schedule 为 nil 表示没有找到解（无解或超时），
// 此时可以通过 Status 区分两种情况。
// 每次求解默认使用不同的随机种子，相同输入的多次求解可能得到目标值相同但内容不同的排班。
type Result struct {
	Schedule     domain.Schedule
	Status       solver.Status
	Objective    int64
	HasObjective bool
	Seed         int64
	WallTime     time.Duration
	Branches     int64
}

// Found 判断是否得到了排班
func (r *Result) Found() bool {
	return r.Schedule != nil
}

// Solve 添加约束（如果还没有添加）、构建目标并调用求解引擎
func (m *ScheduleModel) Solve(ctx context.Context, opts SolveOptions) (*Result, error) {
	if m.applied == nil {
		if err := m.ApplyConstraints(opts.Constraints...); err != nil {
			return nil, err
		}
	} else if len(opts.Constraints) > 0 {
		return nil, ErrConstraintsApplied
	}

	hasObjective := m.buildObjective()

	seed := rand.Int63n(1000000)
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	maxTime := opts.MaxTime
	if maxTime <= 0 {
		maxTime = DefaultMaxTime
	}

	backend := opts.Backend
	if backend == nil {
		backend = solver.Engine{}
	}

	modelVariables.Observe(float64(m.model.NumVars()))
	slog.Info("开始排班求解",
		"residents", len(m.residents),
		"days", len(m.days),
		"variables", m.model.NumVars(),
		"constraints", m.model.NumConstraints(),
		"objectiveTerms", len(m.objectiveTerms),
		"seed", seed,
	)

	resp, err := backend.Solve(ctx, m.model, solver.Parameters{
		MaxTime:    maxTime,
		RandomSeed: seed,
		NumWorkers: opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("求解失败: %w", err)
	}

	solveTotal.WithLabelValues(resp.Status.String()).Inc()
	solveDuration.Observe(resp.WallTime.Seconds())

	result := &Result{
		Status:       resp.Status,
		HasObjective: hasObjective,
		Seed:         seed,
		WallTime:     resp.WallTime,
		Branches:     resp.Branches,
	}

	if !resp.Status.HasSolution() {
		slog.Warn("没有找到可行的排班", "status", resp.Status.String(), "wallTime", resp.WallTime)
		return result, nil
	}

	result.Schedule = m.extract(resp)
	if hasObjective {
		result.Objective = resp.ObjectiveValue
	}

	// 启用了全部硬约束时再独立校验一遍结果
	if m.allHardApplied() {
		residents := make([]domain.Resident, len(m.residents))
		for i, r := range m.residents {
			residents[i] = *r
		}
		shifts := make([]domain.Shift, len(m.shifts))
		for i, s := range m.shifts {
			shifts[i] = *s
		}

		if err := utils.ValidateSchedule(residents, shifts, m.days, result.Schedule); err != nil {
			return nil, fmt.Errorf("排班结果校验失败: %w", err)
		}
	}

	slog.Info("排班求解完成",
		"status", resp.Status.String(),
		"objective", result.Objective,
		"assigned", result.Schedule.AssignmentCount(),
		"wallTime", resp.WallTime,
	)

	return result, nil
}

// CreateSchedule 根据一次排班请求建模并求解
func CreateSchedule(ctx context.Context, req *domain.ScheduleRequest, opts SolveOptions) (*Result, error) {
	m, err := New(req.Residents, req.Shifts, req.Days, req.HospitalSystem)
	if err != nil {
		return nil, err
	}

	if len(opts.Constraints) == 0 {
		opts.Constraints = req.Constraints
	}
	if req.MaxTimeSeconds > 0 {
		opts.MaxTime = time.Duration(req.MaxTimeSeconds) * time.Second
	}
	if req.Seed != nil {
		opts.Seed = req.Seed
	}

	return m.Solve(ctx, opts)
}
