package events

import "time"

// Event types published to the message exchange. Consumers (cache layers,
// downstream sync jobs) subscribe by topic pattern, e.g. "transaction.*".
const (
	TransactionCreated   = "transaction.created"
	TransactionUpdated   = "transaction.updated"
	TransactionDeleted   = "transaction.deleted"
	CategoryChanged      = "category.changed"
	PaymentMethodChanged = "payment_method.changed"
	RecurringGenerated   = "recurring.generated"
	ReportGenerated      = "report.generated"
	BudgetChanged        = "budget.changed"
)

// Event is the envelope published for every data change.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	EntityID   string    `json:"entity_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(eventType, userID, entityID string) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}
