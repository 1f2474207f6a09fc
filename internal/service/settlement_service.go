package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"club-membership-be/internal/dto"
	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/repository/memory"
	"club-membership-be/pkg/events"
	"club-membership-be/pkg/gateway"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

var ErrInvalidSignature = errors.New("invalid notification signature")

// ISettlementService turns gateway outcomes into SettlePayment and
// MarkPaymentFailed calls. Signals arrive from the HTTP webhook, the NATS
// settlement subject and the reconciler.
type ISettlementService interface {
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error
	HandleBusEvent(ctx context.Context, event events.Event) error
	Enqueue(ctx context.Context, signal gateway.SettlementSignal) error
	Consume(ctx context.Context) error
	Apply(ctx context.Context, signal gateway.SettlementSignal) error
}

type SettlementOptions struct {
	Topic       string
	ServerKey   string
	MaxAttempts int
	Backoff     time.Duration
}

type settlementService struct {
	lifecycle   ILifecycleService
	pubSub      *gochannel.GoChannel
	seen        *memory.SignalCache
	logger      logger.ILogger
	audit       logger.ILogger
	topic       string
	serverKey   string
	maxAttempts int
	backoff     time.Duration
}

func NewSettlementService(
	lifecycle ILifecycleService,
	pubSub *gochannel.GoChannel,
	seen *memory.SignalCache,
	logger logger.ILogger,
	audit logger.ILogger,
	opts SettlementOptions,
) ISettlementService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	return &settlementService{
		lifecycle:   lifecycle,
		pubSub:      pubSub,
		seen:        seen,
		logger:      logger,
		audit:       audit,
		topic:       opts.Topic,
		serverKey:   opts.ServerKey,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// HandleNotification verifies and applies a Midtrans HTTP notification
// synchronously. A non-nil error asks Midtrans to redeliver.
func (s *settlementService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error {
	s.audit.Info("SETTLEMENT", "Notification received", map[string]interface{}{
		"order_id":           req.OrderId,
		"transaction_status": req.TransactionStatus,
		"fraud_status":       req.FraudStatus,
		"payment_type":       req.PaymentType,
	})

	if s.serverKey == "" {
		return fmt.Errorf("midtrans server key is not configured")
	}
	if !gateway.VerifyNotificationSignature(req.OrderId, req.StatusCode, req.GrossAmount, req.SignatureKey, s.serverKey) {
		s.logger.Warn("SETTLEMENT", "Signature mismatch", map[string]interface{}{"order_id": req.OrderId})
		return ErrInvalidSignature
	}

	outcome, ok := gateway.TranslateStatus(req.TransactionStatus, req.FraudStatus)
	if !ok || outcome == gateway.OutcomePending {
		s.logger.Debug("SETTLEMENT", "Notification carries no decision", map[string]interface{}{
			"order_id": req.OrderId,
			"status":   req.TransactionStatus,
		})
		return nil
	}

	paymentId, _, err := gateway.ParseOrderID(req.OrderId)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	payload, _ := json.Marshal(req)
	return s.Apply(ctx, gateway.SettlementSignal{
		PaymentId:  paymentId,
		GatewayRef: req.OrderId,
		Method:     req.PaymentType,
		Success:    outcome == gateway.OutcomeSuccess,
		Source:     gateway.SourceWebhook,
		Payload:    payload,
	})
}

// HandleBusEvent accepts settlement signals published on the bus by other
// gateways or bridges and queues them for the consumer.
func (s *settlementService) HandleBusEvent(ctx context.Context, event events.Event) error {
	raw, err := json.Marshal(event.Payload())
	if err != nil {
		return err
	}

	var signal gateway.SettlementSignal
	if err := json.Unmarshal(raw, &signal); err != nil || signal.PaymentId == uuid.Nil {
		// redelivery cannot fix a malformed signal
		s.logger.Error("SETTLEMENT", "Discarding malformed bus signal", map[string]interface{}{
			"event_type": event.EventType(),
			"payload":    string(raw),
		})
		return nil
	}
	signal.Source = gateway.SourceBus
	return s.Enqueue(ctx, signal)
}

func (s *settlementService) Enqueue(ctx context.Context, signal gateway.SettlementSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return s.pubSub.Publish(s.topic, msg)
}

func (s *settlementService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *settlementService) processMessage(ctx context.Context, msg *message.Message) {
	var signal gateway.SettlementSignal
	if err := json.Unmarshal(msg.Payload, &signal); err != nil {
		s.logger.Error("SETTLEMENT", "Failed to unmarshal settlement message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = s.Apply(ctx, signal); err == nil {
			break
		}
		s.logger.Warn("SETTLEMENT", "Settlement attempt failed", map[string]interface{}{
			"payment_id": signal.PaymentId,
			"attempt":    attempt,
			"error":      err.Error(),
		})
		select {
		case <-ctx.Done():
			msg.Nack()
			return
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		// the reconciler picks the payment up again on its next pass
		s.logger.Error("SETTLEMENT", "Giving up on settlement signal", map[string]interface{}{
			"payment_id": signal.PaymentId,
			"source":     signal.Source,
			"error":      err.Error(),
		})
	}
	msg.Ack()
}

func signalKey(signal gateway.SettlementSignal) string {
	return fmt.Sprintf("%s:%s:%t", signal.PaymentId, signal.GatewayRef, signal.Success)
}

// Apply runs the transition for one signal. Only retryable errors are
// returned; outcomes that can never succeed are logged and dropped.
func (s *settlementService) Apply(ctx context.Context, signal gateway.SettlementSignal) error {
	key := signalKey(signal)
	if s.seen.Seen(key) {
		return nil
	}

	var err error
	if signal.Success {
		var res *SettlementResult
		res, err = s.lifecycle.SettlePayment(ctx, signal.PaymentId, signal.Method, signal.Payload)
		if err == nil && signal.GatewayRef != "" && !res.Payment.MatchesGatewayRef(signal.GatewayRef) {
			s.logger.Warn("SETTLEMENT", "Payment settled through an older checkout session", map[string]interface{}{
				"payment_id":  signal.PaymentId,
				"gateway_ref": signal.GatewayRef,
			})
		}
	} else {
		_, err = s.lifecycle.MarkPaymentFailed(ctx, signal.PaymentId, signal.GatewayRef, signal.Payload)
	}

	details := map[string]interface{}{
		"payment_id":  signal.PaymentId,
		"gateway_ref": signal.GatewayRef,
		"success":     signal.Success,
		"source":      signal.Source,
	}

	switch {
	case err == nil:
		s.seen.Remember(key)
		s.audit.Info("SETTLEMENT", "Signal applied", details)
		return nil
	case errors.Is(err, entity.ErrNotFound):
		details["error"] = err.Error()
		s.logger.Warn("SETTLEMENT", "Signal for unknown payment dropped", details)
		return nil
	case errors.Is(err, entity.ErrInvalidTransition):
		details["error"] = err.Error()
		s.logger.Error("SETTLEMENT", "Signal conflicts with payment state", details)
		s.audit.Error("SETTLEMENT", "Signal conflicts with payment state", details)
		return nil
	default:
		return err
	}
}
