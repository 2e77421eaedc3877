// Package events publishes audit events (registrations, logins, secret
// submissions) to a message broker. The broker is optional; with no
// backend configured events are dropped.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audit event types emitted by the application.
const (
	TypeUserRegistered  = "user.registered"
	TypeUserLogin       = "user.login"
	TypeSecretSubmitted = "secret.submitted"
)

// Channel is the broker channel all audit events are published to.
const Channel = "secretshare.audit"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Event is the JSON payload published for every audit event.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher wraps a backend with a stable API.
type Publisher struct {
	backend Backend
	logger  zerolog.Logger
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend, logger zerolog.Logger) *Publisher {
	return &Publisher{backend: backend, logger: logger}
}

// Emit publishes an audit event. Publishing is best-effort: failures are
// logged and never surfaced to the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.backend == nil {
		return
	}
	event.ID = uuid.NewString()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("failed to encode audit event")
		return
	}
	attrs := map[string]string{"type": event.Type}
	if _, err := p.backend.Publish(ctx, Channel, data, attrs); err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("failed to publish audit event")
	}
}

// Subscribe consumes audit events from the broker.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	return p.backend.Subscribe(ctx, Channel, handler)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
