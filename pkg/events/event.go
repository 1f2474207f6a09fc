package events

import "time"

// Event types published on the bus. The subject is "events.<type>".
const (
	RequestSubmitted    = "MEMBERSHIP_REQUEST_SUBMITTED"
	RequestApproved     = "MEMBERSHIP_REQUEST_APPROVED"
	RequestRejected     = "MEMBERSHIP_REQUEST_REJECTED"
	CheckoutCreated     = "PAYMENT_CHECKOUT_CREATED"
	PaymentCancelled    = "PAYMENT_CANCELLED"
	PaymentSettled      = "PAYMENT_SETTLED"
	MembershipActivated = "MEMBERSHIP_ACTIVATED"
	MembershipLocked    = "MEMBERSHIP_LOCKED"
	MembershipUnlocked  = "MEMBERSHIP_UNLOCKED"
	MembershipRemoved   = "MEMBERSHIP_REMOVED"

	// PaymentSettlement is inbound: gateways and bridges report payment outcomes on it.
	PaymentSettlement = "PAYMENT_SETTLEMENT"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PAYMENT_SETTLED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject returns the bus subject an event type is published on.
func Subject(eventType string) string {
	return "events." + eventType
}
