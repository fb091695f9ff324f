package model

import (
	"time"

	"gorm.io/datatypes"
)

// Log severities.
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
)

// LogEntry is an append-only, queryable record of a pipeline event. Every
// stage writes one on success or failure; the admin log viewer reads them
// and the retention cleanup prunes them by age.
type LogEntry struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Type      string            `gorm:"index" json:"type"`
	Source    string            `gorm:"index" json:"source"`
	Message   string            `json:"message"`
	Data      datatypes.JSONMap `json:"data"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (LogEntry) TableName() string { return "job_killer_logs" }
