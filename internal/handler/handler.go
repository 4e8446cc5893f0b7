package handler

import (
	"context"

	"github.com/ed-residency/resident-scheduler/internal/config"
	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type JobStore interface {
	SaveJob(ctx context.Context, job *domain.ScheduleJob) error
	GetJob(ctx context.Context, id string) (*domain.ScheduleJob, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	translator ut.Translator
	jobs       JobStore
	publisher  Publisher
	backend    scheduler.Backend

	solve func(ctx context.Context, req *domain.ScheduleRequest, opts scheduler.SolveOptions) (*scheduler.Result, error)

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, jobs JobStore, publisher Publisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	backend, err := scheduler.BackendByName(cfg.Solver.Backend)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		translator: trans,
		jobs:       jobs,
		publisher:  publisher,
		backend:    backend,
		solve:      scheduler.CreateSchedule,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	// 以下 API 必须要带有总住院医或管理员的令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.RequiredRole(domain.RoleChiefResident, domain.RoleAdmin))

		r.Get("/constraints", h.GetConstraints)
		r.Post("/schedules", h.CreateSchedule)

		r.Route("/schedule-jobs", func(r chi.Router) {
			r.Post("/", h.CreateScheduleJob)
			r.With(h.scheduleJob).Get("/{id}", h.GetScheduleJob)
		})
	})
}

// solveOptions 根据配置生成求解参数，请求中的设置会在 scheduler.CreateSchedule 中覆盖它们
func (h *Handler) solveOptions() scheduler.SolveOptions {
	return scheduler.SolveOptions{
		MaxTime: h.config.SolverMaxTime(),
		Seed:    h.config.SolverSeed(),
		Workers: h.config.Solver.Workers,
		Backend: h.backend,
	}
}
