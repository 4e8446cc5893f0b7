package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ScheduleReadyMailData struct {
	JobID       string          `json:"jobID"`
	Status      JobStatus       `json:"status"`
	SolveStatus string          `json:"solveStatus"`
	Objective   *int64          `json:"objective"`
	Entries     []ScheduleEntry `json:"entries"`
}

const MailTypeScheduleReady = "schedule_ready"
