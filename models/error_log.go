package models

import "time"

// ErrorLog records unexpected service-level faults in the database so they
// survive restarts and are queryable through the admin API.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `gorm:"size:8" json:"level"` // ERROR, WARN
	Source    string    `gorm:"size:64" json:"source"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
}

func (ErrorLog) TableName() string {
	return "error_logs"
}
