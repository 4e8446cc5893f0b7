// Package worker 处理排班队列中的异步求解任务
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/repository"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
)

type JobStore interface {
	SaveJob(ctx context.Context, job *domain.ScheduleJob) error
	GetJob(ctx context.Context, id string) (*domain.ScheduleJob, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type SolveFunc func(ctx context.Context, req *domain.ScheduleRequest, opts scheduler.SolveOptions) (*scheduler.Result, error)

type Worker struct {
	jobs       JobStore
	publisher  Publisher
	emailQueue string
	options    scheduler.SolveOptions

	solve SolveFunc
	now   func() time.Time
}

func New(jobs JobStore, publisher Publisher, emailQueue string, options scheduler.SolveOptions) *Worker {
	return &Worker{
		jobs:       jobs,
		publisher:  publisher,
		emailQueue: emailQueue,
		options:    options,
		solve:      scheduler.CreateSchedule,
		now:        time.Now,
	}
}

// Handle 处理一条排班队列消息。返回的 requeue 表示消息是否应当重新入队。
func (w *Worker) Handle(ctx context.Context, body []byte) (bool, error) {
	msg := domain.ScheduleJobMessage{}
	if err := json.Unmarshal(body, &msg); err != nil {
		slog.Error("排班消息反序列化失败", "error", err)
		return false, err
	}

	job, err := w.jobs.GetJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			slog.Warn("排班任务不存在，丢弃消息", "job", msg.JobID)
			return false, err
		}
		return true, err
	}

	switch job.Status {
	case domain.JobPending:
	case domain.JobRunning:
		// 消息只有在上一个消费者断开后才会重新投递，说明上次求解中途退出了
		slog.Warn("排班任务上次未完成，重新求解", "job", job.ID)
	default:
		slog.Info("排班任务已处理过，跳过", "job", job.ID, "status", job.Status)
		return false, nil
	}

	job.Status = domain.JobRunning
	if err := w.jobs.SaveJob(ctx, job); err != nil {
		return true, fmt.Errorf("无法更新排班任务状态: %w", err)
	}

	slog.Info("开始处理排班任务", "job", job.ID, "residents", len(job.Request.Residents), "shifts", len(job.Request.Shifts))
	result, solveErr := w.solve(ctx, &job.Request, w.options)

	// 进程正在退出，放回队列等待下次处理
	if ctx.Err() != nil {
		job.Status = domain.JobPending
		if err := w.jobs.SaveJob(context.WithoutCancel(ctx), job); err != nil {
			slog.Error("无法恢复排班任务状态", "job", job.ID, "error", err)
		}
		return true, ctx.Err()
	}

	RecordResult(job, result, solveErr, w.now())
	if err := w.jobs.SaveJob(ctx, job); err != nil {
		return true, fmt.Errorf("无法保存排班结果: %w", err)
	}
	slog.Info("排班任务已完成", "job", job.ID, "status", job.Status, "solveStatus", job.SolveStatus)

	if job.NotifyEmail != "" {
		w.notify(ctx, job)
	}

	return false, nil
}

func (w *Worker) notify(ctx context.Context, job *domain.ScheduleJob) {
	message := domain.MailMessage{
		Type: domain.MailTypeScheduleReady,
		To:   job.NotifyEmail,
		Data: domain.ScheduleReadyMailData{
			JobID:       job.ID,
			Status:      job.Status,
			SolveStatus: job.SolveStatus,
			Objective:   job.Objective,
			Entries:     job.Entries,
		},
	}

	// 邮件只是通知，发送失败不影响任务结果
	if err := w.publisher.PublishJSON(ctx, w.emailQueue, message); err != nil {
		slog.Error("无法投递排班完成邮件", "job", job.ID, "error", err)
	}
}

// RecordResult 把一次求解的结果写入任务
func RecordResult(job *domain.ScheduleJob, result *scheduler.Result, solveErr error, finishedAt time.Time) {
	job.FinishedAt = &finishedAt
	job.Objective = nil
	job.Entries = nil
	job.Error = ""

	switch {
	case solveErr != nil:
		job.Status = domain.JobFailed
		job.Error = solveErr.Error()
		job.SolveStatus = ""
	case result.Found():
		job.Status = domain.JobSucceeded
		job.SolveStatus = result.Status.String()
		job.Entries = result.Schedule.Entries()
		if result.HasObjective {
			objective := result.Objective
			job.Objective = &objective
		}
	default:
		job.Status = domain.JobNoSolution
		job.SolveStatus = result.Status.String()
	}
}
