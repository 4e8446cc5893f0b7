package domain

type Role string

const (
	RoleChiefResident Role = "chief_resident" // 总住院医，负责排班
	RoleAdmin         Role = "admin"
)
