package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobRunning    JobStatus = "running"
	JobSucceeded  JobStatus = "succeeded"
	JobNoSolution JobStatus = "no_solution"
	JobFailed     JobStatus = "failed"
)

// ScheduleRequest 是一次排班求解的全部输入
type ScheduleRequest struct {
	HospitalSystem HospitalSystem `json:"hospitalSystem"`
	Residents      []Resident     `json:"residents"`
	Shifts         []Shift        `json:"shifts"`
	Days           []Date         `json:"days"`
	Constraints    []string       `json:"constraints,omitempty"`
	MaxTimeSeconds int            `json:"maxTimeSeconds,omitempty"`
	Seed           *int64         `json:"seed,omitempty"`
}

// ScheduleJob 是异步排班任务的状态，存放在 redis 中
type ScheduleJob struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	Request     ScheduleRequest `json:"request"`
	NotifyEmail string          `json:"notifyEmail,omitempty"`
	SolveStatus string          `json:"solveStatus,omitempty"`
	Objective   *int64          `json:"objective,omitempty"`
	Entries     []ScheduleEntry `json:"entries,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
}

// ScheduleJobMessage 是投递到排班队列中的消息，任务的完整内容保存在 redis 中
type ScheduleJobMessage struct {
	JobID string `json:"jobID"`
}
