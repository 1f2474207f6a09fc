// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/pkg/gateway"

	"github.com/robfig/cron/v3"
)

// StalePayments lists pending payments not updated since before.
type StalePayments interface {
	ListStalePayments(ctx context.Context, before time.Time) ([]*entity.Payment, error)
}

// SignalSink accepts settlement signals for asynchronous application.
type SignalSink interface {
	Enqueue(ctx context.Context, signal gateway.SettlementSignal) error
}

// PaymentReconciler asks the gateway about payments whose settlement signal
// never arrived and feeds the answers back as settlement signals.
type PaymentReconciler struct {
	payments StalePayments
	gateway  gateway.PaymentGateway
	sink     SignalSink
	logger   logger.ILogger
	staleFor time.Duration
	now      func() time.Time

	cron    *cron.Cron
	running sync.Mutex
}

func NewPaymentReconciler(payments StalePayments, gw gateway.PaymentGateway, sink SignalSink, logger logger.ILogger, staleFor time.Duration) *PaymentReconciler {
	return &PaymentReconciler{
		payments: payments,
		gateway:  gw,
		sink:     sink,
		logger:   logger,
		staleFor: staleFor,
		now:      time.Now,
	}
}

// Start schedules RunOnce on spec (standard five-field cron syntax).
func (r *PaymentReconciler) Start(spec string) error {
	r.cron = cron.New()
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("RECONCILER", "Reconciliation pass failed", map[string]interface{}{"error": err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	r.cron.Start()
	r.logger.Info("RECONCILER", "Payment reconciler scheduled", map[string]interface{}{"schedule": spec})
	return nil
}

// Stop waits for a running pass to finish.
func (r *PaymentReconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce checks every stale payment and returns how many signals were queued.
// Overlapping passes are skipped.
func (r *PaymentReconciler) RunOnce(ctx context.Context) (int, error) {
	if !r.running.TryLock() {
		return 0, nil
	}
	defer r.running.Unlock()

	stale, err := r.payments.ListStalePayments(ctx, r.now().Add(-r.staleFor))
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, payment := range stale {
		if payment.GatewayRef == nil {
			continue
		}
		orderID := *payment.GatewayRef

		status, err := r.gateway.CheckStatus(ctx, orderID)
		if err != nil {
			r.logger.Warn("RECONCILER", "Status check failed", map[string]interface{}{
				"payment_id": payment.Id,
				"order_id":   orderID,
				"error":      err.Error(),
			})
			continue
		}
		if status.Outcome == gateway.OutcomePending {
			continue
		}

		signal := gateway.SettlementSignal{
			PaymentId:  payment.Id,
			GatewayRef: orderID,
			Method:     status.Method,
			Success:    status.Outcome == gateway.OutcomeSuccess,
			Source:     gateway.SourceReconciler,
			Payload:    status.Raw,
		}
		if err := r.sink.Enqueue(ctx, signal); err != nil {
			return queued, err
		}
		queued++
	}

	if queued > 0 {
		r.logger.Info("RECONCILER", "Queued settlement signals", map[string]interface{}{
			"checked": len(stale),
			"queued":  queued,
		})
	}
	return queued, nil
}
