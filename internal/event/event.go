package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeNotificationCreated Type = "notification.created"
	TypeNotificationDeleted Type = "notification.deleted"
	TypePaymentCreated      Type = "payment.created"
	TypePaymentUpdated      Type = "payment.updated"
	TypeMemberUpdated       Type = "member.updated"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
	// UserID scopes delivery: empty means every connected client, otherwise
	// the event reaches that member plus any connected admins.
	UserID string `json:"user_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

// New stamps an event with an id and timestamp.
func New(t Type, payload interface{}, userID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    userID,
	}
}
