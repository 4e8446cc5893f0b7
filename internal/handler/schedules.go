package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
	"github.com/ed-residency/resident-scheduler/internal/utils"
	"github.com/google/uuid"
)

type residentPayload struct {
	Name        string        `json:"name" validate:"required"`
	PGYLevel    int           `json:"pgyLevel" validate:"required,min=1,max=3"`
	ServiceType string        `json:"serviceType" validate:"required,oneof=ED Off-Service Vacation Peds"`
	HoursGoal   int           `json:"hoursGoal" validate:"min=0"`
	RequestsOff []domain.Date `json:"requestsOff"`
}

type shiftPayload struct {
	TemplateCode string      `json:"templateCode" validate:"required"`
	Date         domain.Date `json:"date"`
}

// schedulePayload 是同步和异步排班共用的请求体。班次可以直接给出具体日期的班次，
// 也可以给出每周模板代码，由排班范围展开；两者可以同时使用。
type schedulePayload struct {
	HospitalSystem struct {
		Name      string   `json:"name" validate:"required"`
		Hospitals []string `json:"hospitals" validate:"required,min=1,dive,required"`
	} `json:"hospitalSystem"`
	Residents      []residentPayload `json:"residents" validate:"required,min=1,dive"`
	Shifts         []shiftPayload    `json:"shifts" validate:"required_without=Templates,dive"`
	Templates      []string          `json:"templates" validate:"required_without=Shifts,dive,required"`
	StartDate      domain.Date       `json:"startDate"`
	EndDate        domain.Date       `json:"endDate"`
	Constraints    []string          `json:"constraints" validate:"dive,required"`
	MaxTimeSeconds int               `json:"maxTimeSeconds" validate:"min=0"`
	Seed           *int64            `json:"seed" validate:"omitempty,min=0"`
}

// toRequest 检查请求体中无法用 tag 表达的规则并转换为排班请求
func (p *schedulePayload) toRequest(maxTimeSeconds int) (*domain.ScheduleRequest, error) {
	if err := utils.ValidateHorizon(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	if err := scheduler.ValidateConstraintNames(p.Constraints); err != nil {
		return nil, err
	}
	if maxTimeSeconds > 0 && p.MaxTimeSeconds > maxTimeSeconds {
		return nil, fmt.Errorf("求解时间不能超过 %d 秒", maxTimeSeconds)
	}

	req := &domain.ScheduleRequest{
		HospitalSystem: domain.HospitalSystem{Name: p.HospitalSystem.Name},
		Days:           domain.DateRange(p.StartDate, p.EndDate),
		Constraints:    p.Constraints,
		MaxTimeSeconds: p.MaxTimeSeconds,
		Seed:           p.Seed,
	}
	for _, name := range p.HospitalSystem.Hospitals {
		req.HospitalSystem.Hospitals = append(req.HospitalSystem.Hospitals, domain.Hospital{Name: name})
	}

	for _, rp := range p.Residents {
		level, err := domain.ParsePGYLevel(rp.PGYLevel)
		if err != nil {
			return nil, err
		}
		service, err := domain.ParseServiceType(rp.ServiceType)
		if err != nil {
			return nil, err
		}
		requests := rp.RequestsOff
		if requests == nil {
			requests = []domain.Date{}
		}
		req.Residents = append(req.Residents, domain.Resident{
			Name:        rp.Name,
			PGYLevel:    level,
			ServiceType: service,
			HoursGoal:   rp.HoursGoal,
			RequestsOff: requests,
		})
	}

	for _, sp := range p.Shifts {
		tmpl, err := domain.ParseShiftTemplate(sp.TemplateCode)
		if err != nil {
			return nil, err
		}
		shift, err := tmpl.CreateShift(sp.Date)
		if err != nil {
			return nil, err
		}
		req.Shifts = append(req.Shifts, *shift)
	}

	var templates []domain.ShiftTemplate
	for _, code := range p.Templates {
		tmpl, err := domain.ParseShiftTemplate(code)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	req.Shifts = append(req.Shifts, domain.GenerateShifts(templates, p.StartDate, p.EndDate)...)

	return req, nil
}

func (h *Handler) readSchedulePayload(w http.ResponseWriter, r *http.Request, v any, p *schedulePayload) (*domain.ScheduleRequest, bool) {
	if err := h.readJSON(w, r, v); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}
	if err := h.validate.Struct(v); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}

	req, err := p.toRequest(h.config.Solver.MaxTime)
	if err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}
	return req, true
}

type scheduleResponse struct {
	Status     string                 `json:"status"`
	Objective  *int64                 `json:"objective"`
	Seed       int64                  `json:"seed"`
	WallTimeMs int64                  `json:"wallTimeMs"`
	Entries    []domain.ScheduleEntry `json:"entries"`
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var payload schedulePayload
	req, ok := h.readSchedulePayload(w, r, &payload, &payload)
	if !ok {
		return
	}

	result, err := h.solve(r.Context(), req, h.solveOptions())
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrDuplicateResident), errors.Is(err, scheduler.ErrDuplicateShift):
			h.badRequest(w, r, err)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	resp := scheduleResponse{
		Status:     result.Status.String(),
		Seed:       result.Seed,
		WallTimeMs: result.WallTime.Milliseconds(),
		Entries:    []domain.ScheduleEntry{},
	}
	if !result.Found() {
		h.successResponse(w, r, "没有找到可行的排班", resp)
		return
	}

	resp.Entries = result.Schedule.Entries()
	if result.HasObjective {
		objective := result.Objective
		resp.Objective = &objective
	}

	h.successResponse(w, r, "排班成功", resp)
}

func (h *Handler) CreateScheduleJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		schedulePayload
		NotifyEmail string `json:"notifyEmail" validate:"omitempty,email"`
	}
	req, ok := h.readSchedulePayload(w, r, &payload, &payload.schedulePayload)
	if !ok {
		return
	}

	job := &domain.ScheduleJob{
		ID:          uuid.NewString(),
		Status:      domain.JobPending,
		Request:     *req,
		NotifyEmail: payload.NotifyEmail,
		CreatedAt:   time.Now(),
	}

	if err := h.jobs.SaveJob(r.Context(), job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 发送任务到消息队列中
	if err := h.publisher.PublishJSON(r.Context(), h.config.RabbitMQ.ScheduleQueue, domain.ScheduleJobMessage{JobID: job.ID}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班任务已提交", job)
}

func (h *Handler) GetScheduleJob(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(ScheduleJobCtx).(*domain.ScheduleJob)

	h.successResponse(w, r, "获取排班任务成功", job)
}

func (h *Handler) GetConstraints(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取约束列表成功", scheduler.Constraints())
}
