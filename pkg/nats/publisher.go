package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"club-membership-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher handles sending events to the NATS bus.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url string) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ensureStream(ctx, js); err != nil {
		// NATS may still be starting; publishes fail loudly later if the stream is missing
		log.Printf("Warn: Failed to ensure stream '%s': %v", StreamName, err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends an event to NATS. occurred_at is added to the payload when absent.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if _, ok := payload["occurred_at"]; !ok {
		payload["occurred_at"] = event.Timestamp()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := events.Subject(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
