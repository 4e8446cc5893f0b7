package domain

type Hospital struct {
	Name string `json:"name"`
}

type HospitalSystem struct {
	Name      string     `json:"name"`
	Hospitals []Hospital `json:"hospitals"`
}
