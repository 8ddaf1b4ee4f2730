package models

import (
	"time"

	"moneta/internal/uuid"

	"gorm.io/gorm"
)

// MonthlyReport is an immutable-once-generated snapshot of a month's activity.
// Breakdown columns hold JSON-serialized aggregate slices. Like other
// time-series rows there is no Base embed and no soft delete; regeneration
// replaces the row in place.
type MonthlyReport struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_reports_period" json:"user_id"`
	Year   int    `gorm:"not null;uniqueIndex:idx_monthly_reports_period" json:"year"`
	Month  int    `gorm:"not null;uniqueIndex:idx_monthly_reports_period" json:"month"`

	TotalExpenses    int64   `gorm:"type:bigint;not null" json:"total_expenses"`
	TotalIncome      int64   `gorm:"type:bigint;not null" json:"total_income"`
	TransactionCount int     `gorm:"not null" json:"transaction_count"`
	AvgTransaction   int64   `gorm:"type:bigint" json:"avg_transaction"`
	AvgDailyExpense  int64   `gorm:"type:bigint" json:"avg_daily_expense"`
	FixedExpenses    int64   `gorm:"type:bigint" json:"fixed_expenses"`
	VariableExpenses int64   `gorm:"type:bigint" json:"variable_expenses"`

	CategoryBreakdown      string `gorm:"type:text" json:"category_breakdown"`
	MerchantBreakdown      string `gorm:"type:text" json:"merchant_breakdown"`
	PaymentMethodBreakdown string `gorm:"type:text" json:"payment_method_breakdown"`

	// Change vs the previous month; nil when no prior data exists.
	PrevChangeAmount *int64   `gorm:"type:bigint" json:"prev_change_amount,omitempty"`
	PrevChangePct    *float64 `json:"prev_change_pct,omitempty"`

	AINarrative string    `gorm:"type:text" json:"ai_narrative"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *MonthlyReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	return nil
}

// WeeklyReport is an immutable-once-generated snapshot keyed by week start.
type WeeklyReport struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_weekly_reports_period" json:"user_id"`
	WeekStart time.Time `gorm:"type:date;not null;uniqueIndex:idx_weekly_reports_period" json:"week_start"`
	WeekEnd   time.Time `gorm:"type:date;not null" json:"week_end"`

	TotalExpenses    int64 `gorm:"type:bigint;not null" json:"total_expenses"`
	TotalIncome      int64 `gorm:"type:bigint;not null" json:"total_income"`
	TransactionCount int   `gorm:"not null" json:"transaction_count"`
	AvgTransaction   int64 `gorm:"type:bigint" json:"avg_transaction"`
	AvgDailyExpense  int64 `gorm:"type:bigint" json:"avg_daily_expense"`

	CategoryBreakdown string `gorm:"type:text" json:"category_breakdown"`

	PrevChangeAmount *int64   `gorm:"type:bigint" json:"prev_change_amount,omitempty"`
	PrevChangePct    *float64 `json:"prev_change_pct,omitempty"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *WeeklyReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	return nil
}
