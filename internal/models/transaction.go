package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a financial transaction in the system.
// Rows are soft-deleted and restorable until hard-deleted.
type Transaction struct {
	Base
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID      *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	PaymentMethodID *string         `gorm:"type:uuid" json:"payment_method_id,omitempty"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Amount          int64           `gorm:"type:bigint;not null" json:"amount"`
	Note            string          `json:"note"`
	Date            time.Time       `gorm:"not null;index" json:"date"`
	Currency        string          `gorm:"size:3;not null;default:USD" json:"currency"`
	Merchant        string          `json:"merchant"`
	Subcategory     string          `json:"subcategory"`
	Product         string          `json:"product"`

	// Set when the transaction was produced by the recurring generator.
	RecurringExpenseID *string `gorm:"type:uuid;index" json:"recurring_expense_id,omitempty"`
	IsGenerated        bool    `gorm:"default:false" json:"is_generated"`

	// Relationships
	Category      *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
}

// IsFixed reports whether the transaction belongs to the fixed-expense bucket,
// i.e. it was produced by a recurring expense rather than entered by hand.
func (t *Transaction) IsFixed() bool {
	return t.IsGenerated || t.RecurringExpenseID != nil
}
