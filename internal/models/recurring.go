package models

import (
	"time"

	"moneta/internal/uuid"

	"gorm.io/gorm"
)

// RecurrenceFrequency represents how often a recurring expense fires
type RecurrenceFrequency string

const (
	FrequencyDaily   RecurrenceFrequency = "daily"
	FrequencyWeekly  RecurrenceFrequency = "weekly"
	FrequencyMonthly RecurrenceFrequency = "monthly"
)

// IsValid reports whether the frequency is one of the supported values.
func (f RecurrenceFrequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// RecurringExpense is a template that periodically produces transactions.
//
// NextGenerate is maintained as the earliest future (or today) date satisfying
// the frequency rule from LastGenerated, and nil once EndDate has passed. When
// SkipHolidays is set an occurrence landing on a holiday keeps its scheduled
// date here but is booked as a transaction on the next non-holiday day.
type RecurringExpense struct {
	Base
	UserID          string              `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string              `gorm:"not null" json:"name"`
	Amount          int64               `gorm:"type:bigint;not null" json:"amount"`
	Currency        string              `gorm:"size:3;not null;default:USD" json:"currency"`
	CategoryID      string              `gorm:"type:uuid;not null" json:"category_id"`
	PaymentMethodID *string             `gorm:"type:uuid" json:"payment_method_id,omitempty"`
	Frequency       RecurrenceFrequency `gorm:"not null" json:"frequency"`
	DayOfMonth      int                 `gorm:"default:1" json:"day_of_month"`
	DaysOfWeek      string              `json:"days_of_week"` // CSV of 0-6, Sunday=0; weekly only
	StartDate       time.Time           `gorm:"type:date;not null" json:"start_date"`
	EndDate         *time.Time          `gorm:"type:date" json:"end_date,omitempty"`
	SkipHolidays    bool                `gorm:"default:false" json:"skip_holidays"`
	IsActive        bool                `gorm:"default:true;index" json:"is_active"`
	LastGenerated   *time.Time          `gorm:"type:date" json:"last_generated,omitempty"`
	NextGenerate    *time.Time          `gorm:"type:date;index" json:"next_generate,omitempty"`

	// Relationships
	Category      *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
}

// GenerationStatus is the outcome of one generation attempt.
type GenerationStatus string

const (
	GenerationSuccess GenerationStatus = "success"
	GenerationFailed  GenerationStatus = "failed"
	GenerationSkipped GenerationStatus = "skipped"
)

// RecurringGenerationLog is an append-only audit row per generation attempt.
// The unique (recurring_expense_id, generate_date) index guarantees at most
// one generated transaction per expense per calendar day.
type RecurringGenerationLog struct {
	ID                 string           `gorm:"type:uuid;primaryKey" json:"id"`
	RecurringExpenseID string           `gorm:"type:uuid;not null;uniqueIndex:idx_generation_expense_date" json:"recurring_expense_id"`
	TransactionID      *string          `gorm:"type:uuid" json:"transaction_id,omitempty"`
	GenerateDate       time.Time        `gorm:"type:date;not null;uniqueIndex:idx_generation_expense_date" json:"generate_date"`
	Status             GenerationStatus `gorm:"not null" json:"status"`
	Message            string           `json:"message"`
	CreatedAt          time.Time        `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (l *RecurringGenerationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New()
	}
	return nil
}
