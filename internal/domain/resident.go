package domain

import "fmt"

type PGYLevel int

const (
	PGY1 PGYLevel = 1
	PGY2 PGYLevel = 2
	PGY3 PGYLevel = 3
)

var PGYLevels = []PGYLevel{PGY1, PGY2, PGY3}

func ParsePGYLevel(level int) (PGYLevel, error) {
	if level < int(PGY1) || level > int(PGY3) {
		return 0, fmt.Errorf("PGY 等级 %d 不在 1~3 之间", level)
	}
	return PGYLevel(level), nil
}

func (l PGYLevel) String() string {
	return fmt.Sprintf("PGY-%d", int(l))
}

type ServiceType string

const (
	ServiceED         ServiceType = "ED"
	ServiceOffService ServiceType = "Off-Service"
	ServiceVacation   ServiceType = "Vacation"
	ServicePeds       ServiceType = "Peds"
)

func ParseServiceType(s string) (ServiceType, error) {
	switch st := ServiceType(s); st {
	case ServiceED, ServiceOffService, ServiceVacation, ServicePeds:
		return st, nil
	default:
		return "", fmt.Errorf("未知的 service 类型 %q", s)
	}
}

type Resident struct {
	Name        string      `json:"name"`
	PGYLevel    PGYLevel    `json:"pgyLevel"`
	ServiceType ServiceType `json:"serviceType"`
	HoursGoal   int         `json:"hoursGoal"`
	RequestsOff []Date      `json:"requestsOff"`
}

// IsEligible 判断住院医是否可以被分配任何班次（不在院外轮转或休假中）
func (r *Resident) IsEligible() bool {
	return r.ServiceType != ServiceOffService && r.ServiceType != ServiceVacation
}

// IsActive 判断住院医是否属于需要受工时规则约束的临床类别
func (r *Resident) IsActive() bool {
	return r.ServiceType == ServiceED || r.ServiceType == ServicePeds
}
