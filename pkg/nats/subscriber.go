package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"club-membership-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	contexts []jetstream.ConsumeContext
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ensureStream(ctx, js); err != nil {
		log.Printf("Warn: Failed to ensure stream '%s': %v", StreamName, err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers a handler for a specific event subject pattern.
// It uses a durable consumer so messages published while the service is down are delivered later.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    10,
		BackOff:       []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decodeEvent(msg.Subject(), msg.Data())
		if err != nil {
			// a malformed payload never becomes valid, so do not redeliver it
			log.Printf("Error unmarshalling event data on %s: %v", msg.Subject(), err)
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			_ = msg.Nak()
			return
		}

		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.contexts = append(s.contexts, cc)

	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

func decodeEvent(subject string, data []byte) (events.BaseEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, err
	}

	occurredAt := time.Now()
	if raw, ok := payload["occurred_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurredAt = ts
		}
	}

	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, "events."),
		Data:       payload,
		OccurredAt: occurredAt,
	}, nil
}

// Close stops consuming and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.contexts {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
