package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/pkg/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubPayments struct {
	payments []*entity.Payment
	before   time.Time
}

func (s *stubPayments) ListStalePayments(ctx context.Context, before time.Time) ([]*entity.Payment, error) {
	s.before = before
	return s.payments, nil
}

type recordingSink struct {
	signals []gateway.SettlementSignal
}

func (s *recordingSink) Enqueue(ctx context.Context, signal gateway.SettlementSignal) error {
	s.signals = append(s.signals, signal)
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	args := m.Called(ctx, req)
	return nil, args.Error(1)
}

func (m *mockGateway) CancelCheckout(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockGateway) CheckStatus(ctx context.Context, orderID string) (*gateway.StatusResult, error) {
	args := m.Called(ctx, orderID)
	if r := args.Get(0); r != nil {
		return r.(*gateway.StatusResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func pending(t *testing.T) *entity.Payment {
	t.Helper()
	p := entity.NewPayment(uuid.New(), decimal.NewFromInt(1000), time.Now())
	require.NoError(t, p.MarkCheckoutStarted(p.NextGatewayRef(), "https://pay", time.Now()))
	return p
}

func TestRunOnce(t *testing.T) {
	paid, expired, waiting, broken := pending(t), pending(t), pending(t), pending(t)
	neverOpened := entity.NewPayment(uuid.New(), decimal.NewFromInt(1), time.Now())

	gw := &mockGateway{}
	gw.On("CheckStatus", mock.Anything, *paid.GatewayRef).
		Return(&gateway.StatusResult{Outcome: gateway.OutcomeSuccess, Method: "gopay"}, nil)
	gw.On("CheckStatus", mock.Anything, *expired.GatewayRef).
		Return(&gateway.StatusResult{Outcome: gateway.OutcomeFailure}, nil)
	gw.On("CheckStatus", mock.Anything, *waiting.GatewayRef).
		Return(&gateway.StatusResult{Outcome: gateway.OutcomePending}, nil)
	gw.On("CheckStatus", mock.Anything, *broken.GatewayRef).
		Return(nil, errors.New("timeout"))

	source := &stubPayments{payments: []*entity.Payment{paid, expired, waiting, broken, neverOpened}}
	sink := &recordingSink{}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	r := NewPaymentReconciler(source, gw, sink, logger.NewNopLogger(), 30*time.Minute)
	r.now = func() time.Time { return now }

	queued, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Equal(t, now.Add(-30*time.Minute), source.before)

	require.Len(t, sink.signals, 2)
	assert.Equal(t, paid.Id, sink.signals[0].PaymentId)
	assert.True(t, sink.signals[0].Success)
	assert.Equal(t, "gopay", sink.signals[0].Method)
	assert.Equal(t, gateway.SourceReconciler, sink.signals[0].Source)
	assert.Equal(t, expired.Id, sink.signals[1].PaymentId)
	assert.False(t, sink.signals[1].Success)
	assert.Equal(t, *expired.GatewayRef, sink.signals[1].GatewayRef)

	gw.AssertNotCalled(t, "CheckStatus", mock.Anything, "")
}

func TestStart_InvalidSchedule(t *testing.T) {
	r := NewPaymentReconciler(&stubPayments{}, &mockGateway{}, &recordingSink{}, logger.NewNopLogger(), time.Minute)
	assert.Error(t, r.Start("not a schedule"))
}
