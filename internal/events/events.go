// Package events publishes audit events (registrations, logins, generated
// codes) to a message broker. Publishing is fire-and-forget: failures are
// logged and never surfaced to the user.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const (
	KindAccountRegistered = "account.registered"
	KindAccountLogin      = "account.login"
	KindQRGenerated       = "qr.generated"
)

// AuditEvent is the JSON payload published for each audited action.
type AuditEvent struct {
	Kind   string    `json:"kind"`
	UserID int64     `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Label  string    `json:"label,omitempty"`
	At     time.Time `json:"at"`
}

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend and channel. A nil Publisher is valid and
// drops every event, so callers never need to branch on configuration.
type Publisher struct {
	backend Backend
	channel string
}

// NewPublisher constructs a Publisher for the provided backend and channel.
func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// Emit publishes the event to the configured channel. Errors are logged
// and swallowed.
func (p *Publisher) Emit(ctx context.Context, event AuditEvent) {
	if p == nil || p.backend == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("audit event marshal failed: %v", err)
		return
	}
	attrs := map[string]string{"kind": event.Kind}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		log.Printf("audit event publish failed: %v", err)
	}
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
