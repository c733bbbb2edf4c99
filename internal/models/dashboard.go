package models

type DashboardStats struct {
	Date          string          `json:"date"`
	TotalToday    int             `json:"total_today"`
	Waiting       int             `json:"waiting"`
	InProgress    int             `json:"in_progress"`
	Completed     int             `json:"completed"`
	Cancelled     int             `json:"cancelled"`
	EmployeeStats []EmployeeStats `json:"employee_stats"`
	TimeStats     *TimeStats      `json:"time_stats,omitempty"`
}

type EmployeeStats struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Completed   int    `json:"completed"`
	Cancelled   int    `json:"cancelled"`
	AverageTime string `json:"average_time"`
	MinTime     string `json:"min_time"`
	MaxTime     string `json:"max_time"`
}

type TimeStats struct {
	Average        string `json:"average"`
	Min            string `json:"min"`
	Max            string `json:"max"`
	TotalCompleted int    `json:"total_completed"`
}
