// Package notify delivers outbound order notifications (customer and staff
// chat messages) off the request path.
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Message is one outbound notification.
type Message struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
	OrderID   int64  `json:"order_id"`
}

// NewMessage stamps a fresh id so downstream consumers can drop redeliveries.
func NewMessage(kind, recipient, text string, orderID int64) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Text:      text,
		OrderID:   orderID,
	}
}

// Notifier sends a single message. Implementations may be called from
// several dispatcher workers at once.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message. Used when no channel is configured.
type Discard struct{}

func (Discard) Notify(context.Context, Message) error { return nil }
