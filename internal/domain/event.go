package domain

import "time"

// EventType names a domain event published to the message broker.
type EventType string

const (
	EventMonthClosed      EventType = "month.closed"
	EventBorrowingRepaid  EventType = "borrowing.repaid"
	EventBorrowingOverdue EventType = "borrowing.overdue"
	EventReminderDue      EventType = "reminder.due"
)

// Event is the envelope of every published message.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TenantID   string    `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}
