package events

import (
	"context"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	pkgEvents "club-membership-be/pkg/events"
	pktNats "club-membership-be/pkg/nats"
)

// Publisher announces lifecycle transitions after they are committed.
// Publishing is best effort and never fails the transition.
type Publisher interface {
	PublishRequestSubmitted(ctx context.Context, req *entity.MembershipRequest)
	PublishRequestDecided(ctx context.Context, req *entity.MembershipRequest)
	PublishCheckoutCreated(ctx context.Context, payment *entity.Payment)
	PublishPaymentCancelled(ctx context.Context, payment *entity.Payment)
	PublishPaymentSettled(ctx context.Context, payment *entity.Payment, req *entity.MembershipRequest)
	PublishMembershipChanged(ctx context.Context, eventType string, membership *entity.Membership)
}

// NatsPublisher implements Publisher using NATS. A nil transport turns every
// method into a no-op.
type NatsPublisher struct {
	publisher *pktNats.Publisher
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *NatsPublisher) PublishRequestSubmitted(ctx context.Context, req *entity.MembershipRequest) {
	p.publish(ctx, pkgEvents.RequestSubmitted, map[string]interface{}{
		"request_id": req.Id,
		"student_id": req.StudentId,
		"club_id":    req.ClubId,
		"full_name":  req.FullName,
	})
}

func (p *NatsPublisher) PublishRequestDecided(ctx context.Context, req *entity.MembershipRequest) {
	eventType := pkgEvents.RequestApproved
	if req.Status == entity.RequestStatusRejected {
		eventType = pkgEvents.RequestRejected
	}

	data := map[string]interface{}{
		"request_id": req.Id,
		"student_id": req.StudentId,
		"club_id":    req.ClubId,
		"status":     req.Status,
		"note":       req.Note,
	}
	if req.PaymentId != nil {
		data["payment_id"] = *req.PaymentId
		data["amount"] = req.Amount.String()
	}
	p.publish(ctx, eventType, data)
}

func (p *NatsPublisher) PublishCheckoutCreated(ctx context.Context, payment *entity.Payment) {
	data := paymentData(payment)
	data["checkout_url"] = payment.CheckoutUrl
	data["attempt"] = payment.Attempts
	p.publish(ctx, pkgEvents.CheckoutCreated, data)
}

func (p *NatsPublisher) PublishPaymentCancelled(ctx context.Context, payment *entity.Payment) {
	p.publish(ctx, pkgEvents.PaymentCancelled, paymentData(payment))
}

func (p *NatsPublisher) PublishPaymentSettled(ctx context.Context, payment *entity.Payment, req *entity.MembershipRequest) {
	data := paymentData(payment)
	data["method"] = payment.Method
	data["paid_date"] = payment.PaidDate
	data["student_id"] = req.StudentId
	data["club_id"] = req.ClubId
	p.publish(ctx, pkgEvents.PaymentSettled, data)
}

func (p *NatsPublisher) PublishMembershipChanged(ctx context.Context, eventType string, membership *entity.Membership) {
	p.publish(ctx, eventType, map[string]interface{}{
		"membership_id": membership.Id,
		"student_id":    membership.StudentId,
		"club_id":       membership.ClubId,
		"status":        membership.Status,
		"note":          membership.Note,
		"entity_type":   "membership",
		"entity_id":     membership.Id.String(),
	})
}

func paymentData(payment *entity.Payment) map[string]interface{} {
	data := map[string]interface{}{
		"payment_id":  payment.Id,
		"request_id":  payment.RequestId,
		"status":      payment.Status,
		"amount":      payment.Amount.String(),
		"entity_type": "payment",
		"entity_id":   payment.Id.String(),
	}
	if payment.GatewayRef != nil {
		data["gateway_ref"] = *payment.GatewayRef
	}
	return data
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	now := time.Now()
	data["occurred_at"] = now
	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: now,
	}

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}
