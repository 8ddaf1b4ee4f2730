package models

// Budget is a monthly spending target, either per category or for the whole
// month (CategoryID nil). Unique per (user, year, month, category).
type Budget struct {
	Base
	UserID         string  `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_period_category" json:"user_id"`
	Year           int     `gorm:"not null;uniqueIndex:idx_budgets_period_category" json:"year"`
	Month          int     `gorm:"not null;uniqueIndex:idx_budgets_period_category" json:"month"`
	CategoryID     *string `gorm:"type:uuid;uniqueIndex:idx_budgets_period_category" json:"category_id,omitempty"`
	Amount         int64   `gorm:"type:bigint;not null" json:"amount"`
	AlertThreshold float64 `gorm:"default:0.8" json:"alert_threshold"`
	IsActive       bool    `gorm:"default:true" json:"is_active"`
	IsSuggested    bool    `gorm:"default:false" json:"is_suggested"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
