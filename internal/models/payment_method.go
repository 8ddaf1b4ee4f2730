package models

// PaymentMethodType represents the kind of payment instrument
type PaymentMethodType string

const (
	PaymentMethodTypeCash         PaymentMethodType = "cash"
	PaymentMethodTypeCreditCard   PaymentMethodType = "credit_card"
	PaymentMethodTypeDebitCard    PaymentMethodType = "debit_card"
	PaymentMethodTypeBankTransfer PaymentMethodType = "bank_transfer"
	PaymentMethodTypeEWallet      PaymentMethodType = "ewallet"
	PaymentMethodTypeOther        PaymentMethodType = "other"
)

// PaymentMethod represents a way of paying for transactions.
// At most one method per user may have IsDefault set.
type PaymentMethod struct {
	Base
	UserID    string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string            `gorm:"not null" json:"name"`
	Type      PaymentMethodType `gorm:"not null" json:"type"`
	IsDefault bool              `gorm:"default:false" json:"is_default"`
	IsActive  bool              `gorm:"default:true" json:"is_active"`
	SortOrder int               `gorm:"default:0" json:"sort_order"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:PaymentMethodID" json:"transactions,omitempty"`
}
