package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"club-membership-be/internal/dto"
	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/repository/memory"
	"club-membership-be/pkg/events"
	"club-membership-be/pkg/gateway"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test"

func newSettlement(t *testing.T, f *fixture) (ISettlementService, *gochannel.GoChannel) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	svc := NewSettlementService(
		f.lifecycle,
		pubSub,
		memory.NewSignalCache(time.Minute),
		logger.NewNopLogger(),
		logger.NewNopLogger(),
		SettlementOptions{Topic: "settlements", ServerKey: testServerKey, Backoff: time.Millisecond},
	)
	return svc, pubSub
}

func notification(orderID, status string) *dto.MidtransWebhookRequest {
	req := &dto.MidtransWebhookRequest{
		TransactionStatus: status,
		OrderId:           orderID,
		PaymentType:       "bank_transfer",
		StatusCode:        "200",
		GrossAmount:       "7500.00",
	}
	sum := sha512.Sum512([]byte(req.OrderId + req.StatusCode + req.GrossAmount + testServerKey))
	req.SignatureKey = hex.EncodeToString(sum[:])
	return req
}

func TestHandleNotification_Settlement(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)
	ctx := context.Background()
	payment := f.pendingPayment(t)
	orderID := *payment.GatewayRef

	require.NoError(t, svc.HandleNotification(ctx, notification(orderID, "pending")))
	stored, err := f.lifecycle.GetPayment(ctx, payment.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)

	require.NoError(t, svc.HandleNotification(ctx, notification(orderID, "settlement")))
	require.NoError(t, svc.HandleNotification(ctx, notification(orderID, "settlement")))

	stored, err = f.lifecycle.GetPayment(ctx, payment.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)
	assert.Equal(t, "bank_transfer", stored.Method)
	assert.Len(t, f.memberships(t), 1)
}

func TestHandleNotification_RejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)
	payment := f.pendingPayment(t)

	req := notification(*payment.GatewayRef, "settlement")
	req.GrossAmount = "1.00"
	assert.ErrorIs(t, svc.HandleNotification(context.Background(), req), ErrInvalidSignature)

	stored, err := f.lifecycle.GetPayment(context.Background(), payment.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
}

func TestHandleNotification_ExpiryCancelsCurrentSession(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)
	ctx := context.Background()
	payment := f.pendingPayment(t)

	require.NoError(t, svc.HandleNotification(ctx, notification(*payment.GatewayRef, "expire")))

	stored, err := f.lifecycle.GetPayment(ctx, payment.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCancelled, stored.Status)
}

func TestHandleNotification_MalformedOrderID(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)

	err := svc.HandleNotification(context.Background(), notification("not-a-payment", "settlement"))
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestApply_DropsUnrecoverableSignals(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)
	ctx := context.Background()

	// unknown payment
	assert.NoError(t, svc.Apply(ctx, gateway.SettlementSignal{PaymentId: f.studentId, Success: true}))

	// settlement for a payment that never reached the gateway
	created := f.approve(t, f.submit(t).Id, 1000).Payment
	assert.NoError(t, svc.Apply(ctx, gateway.SettlementSignal{PaymentId: created.Id, Success: true}))

	stored, err := f.lifecycle.GetPayment(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCreated, stored.Status)
}

func TestConsume_AppliesQueuedSignals(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	payment := f.pendingPayment(t)

	require.NoError(t, svc.Consume(ctx))

	require.NoError(t, svc.HandleBusEvent(ctx, events.BaseEvent{
		Type: events.PaymentSettlement,
		Data: map[string]interface{}{
			"payment_id": payment.Id.String(),
			"method":     "qris",
			"success":    true,
		},
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool {
		stored, err := f.lifecycle.GetPayment(ctx, payment.Id)
		return err == nil && stored.Status == entity.PaymentStatusPaid
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := f.lifecycle.GetPayment(ctx, payment.Id)
	require.NoError(t, err)
	assert.Equal(t, "qris", stored.Method)
}

func TestHandleBusEvent_Malformed(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSettlement(t, f)

	err := svc.HandleBusEvent(context.Background(), events.BaseEvent{
		Type: events.PaymentSettlement,
		Data: map[string]interface{}{"payment_id": "nope"},
	})
	assert.NoError(t, err)
}
