package models

import (
	"time"

	"moneta/internal/uuid"

	"gorm.io/gorm"
)

// SystemLog is an append-only structured log row used for observability.
// Writes are best-effort and never affect the primary operation.
type SystemLog struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Level     string    `gorm:"not null;index" json:"level"`
	Category  string    `gorm:"not null;index" json:"category"`
	TraceID   string    `json:"trace_id"`
	UserID    string    `json:"user_id"`
	Message   string    `gorm:"not null" json:"message"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (l *SystemLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New()
	}
	return nil
}
