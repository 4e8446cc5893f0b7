package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/config"
	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/repository"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeJobStore struct {
	saveFn func(ctx context.Context, job *domain.ScheduleJob) error
	getFn  func(ctx context.Context, id string) (*domain.ScheduleJob, error)
}

func (f *fakeJobStore) SaveJob(ctx context.Context, job *domain.ScheduleJob) error {
	return f.saveFn(ctx, job)
}

func (f *fakeJobStore) GetJob(ctx context.Context, id string) (*domain.ScheduleJob, error) {
	return f.getFn(ctx, id)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queue string, v any) error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, queue string, v any) error {
	return f.publishFn(ctx, queue, v)
}

func newTestHandler(t *testing.T, jobs JobStore, publisher Publisher) *Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Solver.MaxTime = 30
	cfg.Solver.Workers = 2
	cfg.Solver.Seed = 5
	cfg.RabbitMQ.ScheduleQueue = "schedule_queue"

	h, err := NewHandler(cfg, jobs, publisher)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func token(t *testing.T, role domain.Role) string {
	t.Helper()
	s, err := SignToken(testSecret, "chief", role, time.Hour)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h *Handler, method, path, tok string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// 一周只有周一一个红组班次，只启用分配和团队约束
func schedulePayloadBody() map[string]any {
	return map[string]any{
		"hospitalSystem": map[string]any{"name": "Test Health", "hospitals": []string{"L"}},
		"residents": []map[string]any{
			{"name": "Ana", "pgyLevel": 1, "serviceType": "ED", "hoursGoal": 40},
			{"name": "Cam", "pgyLevel": 3, "serviceType": "ED", "hoursGoal": 40, "requestsOff": []string{"2024-07-03"}},
		},
		"templates":      []string{"m-L-R-07-M"},
		"startDate":      "2024-07-01",
		"endDate":        "2024-07-07",
		"constraints":    []string{"team_eligibility", "shift_assignment"},
		"maxTimeSeconds": 10,
	}
}

func noJobs() *fakeJobStore {
	return &fakeJobStore{
		saveFn: func(ctx context.Context, job *domain.ScheduleJob) error { return errors.New("unexpected") },
		getFn: func(ctx context.Context, id string) (*domain.ScheduleJob, error) {
			return nil, repository.ErrJobNotFound
		},
	}
}

func noPublisher() *fakePublisher {
	return &fakePublisher{publishFn: func(ctx context.Context, queue string, v any) error { return errors.New("unexpected") }}
}

func TestNewHandlerRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Solver.Backend = "mip"

	_, err := NewHandler(cfg, noJobs(), noPublisher())
	assert.ErrorIs(t, err, scheduler.ErrUnknownBackend)
}

func TestAuth(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	rec, resp := do(t, h, http.MethodGet, "/constraints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = do(t, h, http.MethodGet, "/constraints", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := SignToken("other-secret", "chief", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec, _ = do(t, h, http.MethodGet, "/constraints", other, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := SignToken(testSecret, "chief", domain.RoleAdmin, -time.Hour)
	require.NoError(t, err)
	rec, _ = do(t, h, http.MethodGet, "/constraints", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/constraints", token(t, "resident"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// cookie 中的令牌同样有效
	req := httptest.NewRequest(http.MethodGet, "/constraints", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token(t, domain.RoleAdmin)})
	cookieRec := httptest.NewRecorder()
	h.Mux.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)
}

func TestMetricsDoesNotRequireAuth(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetConstraints(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	rec, resp := do(t, h, http.MethodGet, "/constraints", token(t, domain.RoleChiefResident), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	list := resp.Data.([]any)
	require.Len(t, list, 11)
	assert.Equal(t, map[string]any{"name": "shift_assignment", "kind": "HARD"}, list[0])
	assert.Equal(t, map[string]any{"name": "circadian_rhythm", "kind": "SOFT"}, list[10])
}

func TestCreateSchedule(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	rec, resp := do(t, h, http.MethodPost, "/schedules", token(t, domain.RoleChiefResident), schedulePayloadBody())
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "OPTIMAL", data["status"])
	assert.Nil(t, data["objective"])
	assert.EqualValues(t, 5, data["seed"])

	entries := data["entries"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "Cam", entry["resident"])
	assert.Equal(t, "m-L-R-07-M-20240701", entry["shiftCode"])
	assert.Equal(t, "2024-07-01", entry["date"])
}

func TestCreateScheduleNoSolution(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	body := schedulePayloadBody()
	body["residents"] = []map[string]any{{"name": "Ana", "pgyLevel": 1, "serviceType": "ED"}}

	rec, resp := do(t, h, http.MethodPost, "/schedules", token(t, domain.RoleAdmin), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "没有找到可行的排班", resp.Message)
	assert.Equal(t, "INFEASIBLE", resp.Data.(map[string]any)["status"])
}

func TestCreateScheduleRejectsBadRequests(t *testing.T) {
	h := newTestHandler(t, noJobs(), noPublisher())

	tests := []struct {
		name   string
		mutate func(body map[string]any)
	}{
		{"pgy out of range", func(b map[string]any) {
			b["residents"] = []map[string]any{{"name": "Ana", "pgyLevel": 5, "serviceType": "ED"}}
		}},
		{"unknown service", func(b map[string]any) {
			b["residents"] = []map[string]any{{"name": "Ana", "pgyLevel": 1, "serviceType": "ICU"}}
		}},
		{"no residents", func(b map[string]any) { b["residents"] = []map[string]any{} }},
		{"no shifts", func(b map[string]any) { delete(b, "templates") }},
		{"unknown constraint", func(b map[string]any) { b["constraints"] = []string{"night_float"} }},
		{"bad template", func(b map[string]any) { b["templates"] = []string{"m-L-Z-07-M"} }},
		{"end before start", func(b map[string]any) { b["endDate"] = "2024-06-30" }},
		{"missing horizon", func(b map[string]any) { delete(b, "startDate") }},
		{"bad date", func(b map[string]any) { b["startDate"] = "07/01/2024" }},
		{"too long", func(b map[string]any) { b["maxTimeSeconds"] = 3600 }},
		{"unknown field", func(b map[string]any) { b["populationSize"] = 100 }},
		{"shift on wrong weekday", func(b map[string]any) {
			b["shifts"] = []map[string]any{{"templateCode": "m-L-R-07-M", "date": "2024-07-02"}}
		}},
		{"duplicate resident", func(b map[string]any) {
			b["residents"] = []map[string]any{
				{"name": "Cam", "pgyLevel": 3, "serviceType": "ED"},
				{"name": "Cam", "pgyLevel": 3, "serviceType": "Peds"},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := schedulePayloadBody()
			tt.mutate(body)

			rec, resp := do(t, h, http.MethodPost, "/schedules", token(t, domain.RoleAdmin), body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCreateScheduleJob(t *testing.T) {
	var saved *domain.ScheduleJob
	var published []any
	jobs := noJobs()
	jobs.saveFn = func(ctx context.Context, job *domain.ScheduleJob) error {
		saved = job
		return nil
	}
	publisher := &fakePublisher{publishFn: func(ctx context.Context, queue string, v any) error {
		assert.Equal(t, "schedule_queue", queue)
		published = append(published, v)
		return nil
	}}
	h := newTestHandler(t, jobs, publisher)

	body := schedulePayloadBody()
	body["notifyEmail"] = "chief@example.com"
	rec, resp := do(t, h, http.MethodPost, "/schedule-jobs", token(t, domain.RoleChiefResident), body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	require.NotNil(t, saved)
	assert.Equal(t, domain.JobPending, saved.Status)
	assert.Equal(t, "chief@example.com", saved.NotifyEmail)
	assert.Len(t, saved.Request.Days, 7)
	assert.Len(t, saved.Request.Shifts, 1)
	assert.Equal(t, []domain.Date{domain.NewDate(2024, time.July, 3)}, saved.Request.Residents[1].RequestsOff)

	require.Len(t, published, 1)
	assert.Equal(t, domain.ScheduleJobMessage{JobID: saved.ID}, published[0])
	assert.Equal(t, saved.ID, resp.Data.(map[string]any)["id"])

	body["notifyEmail"] = "not-an-email"
	rec, _ = do(t, h, http.MethodPost, "/schedule-jobs", token(t, domain.RoleChiefResident), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScheduleJobPublishFailure(t *testing.T) {
	jobs := noJobs()
	jobs.saveFn = func(ctx context.Context, job *domain.ScheduleJob) error { return nil }
	publisher := &fakePublisher{publishFn: func(ctx context.Context, queue string, v any) error {
		return errors.New("channel closed")
	}}
	h := newTestHandler(t, jobs, publisher)

	rec, resp := do(t, h, http.MethodPost, "/schedule-jobs", token(t, domain.RoleAdmin), schedulePayloadBody())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "服务器内部错误", resp.Message)
}

func TestGetScheduleJob(t *testing.T) {
	objective := int64(3)
	jobs := noJobs()
	jobs.getFn = func(ctx context.Context, id string) (*domain.ScheduleJob, error) {
		switch id {
		case "job-1":
			return &domain.ScheduleJob{ID: "job-1", Status: domain.JobSucceeded, SolveStatus: "OPTIMAL", Objective: &objective}, nil
		case "broken":
			return nil, errors.New("redis down")
		}
		return nil, repository.ErrJobNotFound
	}
	h := newTestHandler(t, jobs, noPublisher())
	tok := token(t, domain.RoleAdmin)

	rec, resp := do(t, h, http.MethodGet, "/schedule-jobs/job-1", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "succeeded", data["status"])
	assert.EqualValues(t, 3, data["objective"])

	rec, _ = do(t, h, http.MethodGet, "/schedule-jobs/missing", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/schedule-jobs/broken", tok, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
