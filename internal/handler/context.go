package handler

type ContextKey string

var (
	RoleCtxKey     ContextKey = "role"
	SubCtxKey      ContextKey = "sub"
	ScheduleJobCtx ContextKey = "scheduleJob"
)
