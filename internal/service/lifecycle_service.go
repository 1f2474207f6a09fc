package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/repository/specification"
	"club-membership-be/internal/repository/unitofwork"
	pkgEvents "club-membership-be/pkg/events"
	"club-membership-be/pkg/gateway"
	"club-membership-be/pkg/lock"
	"club-membership-be/pkg/membership/eligibility"
	membershipEvents "club-membership-be/pkg/membership/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubmitCommand struct {
	StudentId uuid.UUID
	ClubId    uuid.UUID
	Reason    string
	FullName  string
	Email     string
	Phone     string
}

type DecideCommand struct {
	RequestId uuid.UUID
	Decision  entity.Decision
	Note      string
	// Amount is the club fee at decision time; nil or zero means free.
	Amount *decimal.Decimal
}

type DecisionResult struct {
	Request    *entity.MembershipRequest
	Payment    *entity.Payment
	Membership *entity.Membership
}

type CheckoutResult struct {
	Payment     *entity.Payment
	CheckoutUrl string
	Token       string
}

type SettlementResult struct {
	Payment        *entity.Payment
	Request        *entity.MembershipRequest
	Membership     *entity.Membership
	AlreadySettled bool
}

type ILifecycleService interface {
	Submit(ctx context.Context, cmd SubmitCommand) (*entity.MembershipRequest, error)
	CheckEligibility(ctx context.Context, studentId, clubId uuid.UUID) (eligibility.Verdict, error)
	Decide(ctx context.Context, cmd DecideCommand) (*DecisionResult, error)
	InitiatePayment(ctx context.Context, paymentId uuid.UUID) (*CheckoutResult, error)
	CancelPayment(ctx context.Context, paymentId uuid.UUID) (*entity.Payment, error)
	SettlePayment(ctx context.Context, paymentId uuid.UUID, method string, payload json.RawMessage) (*SettlementResult, error)
	MarkPaymentFailed(ctx context.Context, paymentId uuid.UUID, gatewayRef string, payload json.RawMessage) (*entity.Payment, error)

	GetRequest(ctx context.Context, requestId uuid.UUID) (*entity.MembershipRequest, error)
	ListRequestsByClub(ctx context.Context, clubId uuid.UUID, status string, page, limit int) ([]*entity.MembershipRequest, error)
	ListRequestsByStudent(ctx context.Context, studentId uuid.UUID) ([]*entity.MembershipRequest, error)
	GetPayment(ctx context.Context, paymentId uuid.UUID) (*entity.Payment, error)
	GetPaymentByRequest(ctx context.Context, requestId uuid.UUID) (*entity.Payment, error)
	ListStalePayments(ctx context.Context, before time.Time) ([]*entity.Payment, error)
}

type LifecycleOptions struct {
	// FrontendURL is where the gateway sends the customer after checkout.
	FrontendURL string
	Now         func() time.Time
}

type lifecycleService struct {
	uowFactory  unitofwork.RepositoryFactory
	gateway     gateway.PaymentGateway
	locker      lock.Locker
	publisher   membershipEvents.Publisher
	logger      logger.ILogger
	frontendURL string
	now         func() time.Time
}

func NewLifecycleService(
	uowFactory unitofwork.RepositoryFactory,
	gw gateway.PaymentGateway,
	locker lock.Locker,
	publisher membershipEvents.Publisher,
	logger logger.ILogger,
	opts LifecycleOptions,
) ILifecycleService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &lifecycleService{
		uowFactory:  uowFactory,
		gateway:     gw,
		locker:      locker,
		publisher:   publisher,
		logger:      logger,
		frontendURL: opts.FrontendURL,
		now:         now,
	}
}

// withLock runs fn while holding the per-entity lock for key.
func withLock(ctx context.Context, locker lock.Locker, key string, fn func() error) error {
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrLockBusy, key, err)
	}
	defer release()
	return fn()
}

func gatewayError(err error) error {
	if errors.Is(err, gateway.ErrUnavailable) {
		return fmt.Errorf("%w: %v", entity.ErrGatewayUnavailable, err)
	}
	return err
}

func (s *lifecycleService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, studentId, clubId uuid.UUID) (eligibility.History, error) {
	var h eligibility.History
	pair := specification.ByStudentAndClub{StudentID: studentId, ClubID: clubId}

	req, err := uow.MembershipRequestRepository().FindOne(ctx, pair, specification.OrderBy{Field: "request_date", Desc: true})
	if err != nil {
		return h, err
	}
	h.LatestRequest = req

	if req != nil && req.PaymentId != nil {
		h.Payment, err = uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: *req.PaymentId})
		if err != nil {
			return h, err
		}
	}

	h.Membership, err = uow.MembershipRepository().FindOne(ctx, pair, specification.NotRemoved{})
	if err != nil {
		return h, err
	}
	if h.Membership == nil {
		h.Membership, err = uow.MembershipRepository().FindOne(ctx, pair, specification.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			return h, err
		}
	}
	return h, nil
}

func (s *lifecycleService) CheckEligibility(ctx context.Context, studentId, clubId uuid.UUID) (eligibility.Verdict, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	h, err := s.loadHistory(ctx, uow, studentId, clubId)
	if err != nil {
		return eligibility.Verdict{}, err
	}
	return eligibility.Resolve(h), nil
}

func (s *lifecycleService) Submit(ctx context.Context, cmd SubmitCommand) (*entity.MembershipRequest, error) {
	req, err := entity.NewMembershipRequest(cmd.StudentId, cmd.ClubId, cmd.Reason, cmd.FullName, cmd.Email, cmd.Phone, s.now())
	if err != nil {
		return nil, err
	}

	err = withLock(ctx, s.locker, lock.PairKey(cmd.StudentId, cmd.ClubId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		h, err := s.loadHistory(ctx, uow, cmd.StudentId, cmd.ClubId)
		if err != nil {
			return err
		}
		verdict := eligibility.Resolve(h)
		if !verdict.Allowed {
			s.logger.Info("MEMBERSHIP", "Submission denied", map[string]interface{}{
				"student_id": cmd.StudentId,
				"club_id":    cmd.ClubId,
				"reason":     verdict.Reason,
				"rule":       verdict.Rule,
			})
			return verdict.Err(h)
		}

		if err := uow.MembershipRequestRepository().Create(ctx, req); err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("MEMBERSHIP", "Membership request submitted", map[string]interface{}{
		"request_id": req.Id,
		"student_id": req.StudentId,
		"club_id":    req.ClubId,
		"to":         req.Status,
	})
	s.publisher.PublishRequestSubmitted(ctx, req)
	return req, nil
}

func (s *lifecycleService) Decide(ctx context.Context, cmd DecideCommand) (*DecisionResult, error) {
	if cmd.Decision != entity.DecisionApprove && cmd.Decision != entity.DecisionReject {
		return nil, fmt.Errorf("%w: unknown decision %q", entity.ErrValidation, cmd.Decision)
	}

	var result *DecisionResult
	var activated bool
	err := withLock(ctx, s.locker, lock.RequestKey(cmd.RequestId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		req, err := uow.MembershipRequestRepository().FindOne(ctx, specification.ByID{ID: cmd.RequestId}, specification.ForUpdate{})
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("membership request %s: %w", cmd.RequestId, entity.ErrNotFound)
		}

		now := s.now()
		result = &DecisionResult{Request: req}

		if cmd.Decision == entity.DecisionReject {
			if err := req.Reject(cmd.Note, now); err != nil {
				return err
			}
		} else {
			if err := req.Approve(cmd.Amount, cmd.Note, now); err != nil {
				return err
			}
			if req.RequiresPayment() {
				payment := entity.NewPayment(req.Id, *req.Amount, now)
				if err := uow.PaymentRepository().Create(ctx, payment); err != nil {
					return err
				}
				if err := req.LinkPayment(payment.Id); err != nil {
					return err
				}
				result.Payment = payment
			} else {
				result.Membership, activated, err = s.activateMembership(ctx, uow, req, now)
				if err != nil {
					return err
				}
			}
		}

		if err := req.CheckPaymentLink(); err != nil {
			return err
		}
		if err := uow.MembershipRequestRepository().Update(ctx, req); err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"request_id": result.Request.Id,
		"from":       entity.RequestStatusPending,
		"to":         result.Request.Status,
	}
	if result.Payment != nil {
		details["payment_id"] = result.Payment.Id
		details["amount"] = result.Payment.Amount.String()
	}
	s.logger.Info("MEMBERSHIP", "Membership request decided", details)
	s.publisher.PublishRequestDecided(ctx, result.Request)
	if activated {
		s.publisher.PublishMembershipChanged(ctx, pkgEvents.MembershipActivated, result.Membership)
	}
	return result, nil
}

// activateMembership makes sure the pair has a current membership. Removed
// rows stay as history and a new row is created instead.
func (s *lifecycleService) activateMembership(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.MembershipRequest, now time.Time) (*entity.Membership, bool, error) {
	current, err := uow.MembershipRepository().FindOne(ctx,
		specification.ByStudentAndClub{StudentID: req.StudentId, ClubID: req.ClubId},
		specification.NotRemoved{},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, false, err
	}

	if current != nil {
		if current.Status == entity.MembershipStatusLocked {
			s.logger.Warn("MEMBERSHIP", "Activation skipped, membership is locked", map[string]interface{}{
				"membership_id": current.Id,
				"request_id":    req.Id,
			})
		}
		return current, false, nil
	}

	membership := entity.NewActiveMembership(req.StudentId, req.ClubId, req.Id, now)
	if err := uow.MembershipRepository().Create(ctx, membership); err != nil {
		return nil, false, err
	}
	s.logger.Info("MEMBERSHIP", "Membership activated", map[string]interface{}{
		"membership_id": membership.Id,
		"request_id":    req.Id,
		"student_id":    req.StudentId,
		"club_id":       req.ClubId,
		"to":            membership.Status,
	})
	return membership, true, nil
}

func (s *lifecycleService) InitiatePayment(ctx context.Context, paymentId uuid.UUID) (*CheckoutResult, error) {
	var result *CheckoutResult
	err := withLock(ctx, s.locker, lock.PaymentKey(paymentId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)

		payment, err := s.findPayment(ctx, uow, paymentId)
		if err != nil {
			return err
		}
		if !payment.CanInitiate() {
			return &entity.TransitionError{Entity: "payment", From: payment.Status.String(), To: entity.PaymentStatusPending.String()}
		}

		req, err := uow.MembershipRequestRepository().FindOne(ctx, specification.ByID{ID: payment.RequestId})
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("membership request %s: %w", payment.RequestId, entity.ErrNotFound)
		}

		orderID := payment.NextGatewayRef()
		checkout, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
			OrderID:  orderID,
			Amount:   payment.Amount,
			ItemID:   req.ClubId.String(),
			ItemName: "Club membership fee",
			Customer: gateway.Customer{
				FullName: req.FullName,
				Email:    req.Email,
				Phone:    req.Phone,
			},
			FinishURL: s.finishURL(payment.Id),
		})
		if err != nil {
			s.logger.Warn("PAYMENT", "Checkout creation failed", map[string]interface{}{
				"payment_id": payment.Id,
				"order_id":   orderID,
				"error":      err.Error(),
			})
			if errors.Is(err, gateway.ErrUnavailable) {
				s.cancelOrphan(ctx, payment.Id, orderID)
			}
			return gatewayError(err)
		}

		from := payment.Status
		if err := payment.MarkCheckoutStarted(checkout.OrderID, checkout.RedirectURL, s.now()); err != nil {
			return err
		}
		if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
			s.cancelOrphan(ctx, payment.Id, checkout.OrderID)
			return err
		}

		s.logger.Info("PAYMENT", "Checkout started", map[string]interface{}{
			"payment_id": payment.Id,
			"order_id":   checkout.OrderID,
			"attempt":    payment.Attempts,
			"from":       from,
			"to":         payment.Status,
		})
		result = &CheckoutResult{
			Payment:     payment,
			CheckoutUrl: checkout.RedirectURL,
			Token:       checkout.Token,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCheckoutCreated(ctx, result.Payment)
	return result, nil
}

// cancelOrphan closes a session the gateway may hold without a local record
// so it cannot be paid.
func (s *lifecycleService) cancelOrphan(ctx context.Context, paymentId uuid.UUID, orderID string) {
	if err := s.gateway.CancelCheckout(context.WithoutCancel(ctx), orderID); err != nil {
		s.logger.Error("PAYMENT", "Failed to cancel orphaned checkout", map[string]interface{}{
			"payment_id": paymentId,
			"order_id":   orderID,
			"error":      err.Error(),
		})
	}
}

func (s *lifecycleService) finishURL(paymentId uuid.UUID) string {
	if s.frontendURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/memberships?payment=%s", s.frontendURL, paymentId)
}

func (s *lifecycleService) CancelPayment(ctx context.Context, paymentId uuid.UUID) (*entity.Payment, error) {
	var payment *entity.Payment
	err := withLock(ctx, s.locker, lock.PaymentKey(paymentId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)

		var err error
		payment, err = s.findPayment(ctx, uow, paymentId)
		if err != nil {
			return err
		}
		if payment.Status != entity.PaymentStatusPending {
			return &entity.TransitionError{Entity: "payment", From: payment.Status.String(), To: entity.PaymentStatusCancelled.String()}
		}

		if payment.GatewayRef != nil {
			if err := s.gateway.CancelCheckout(ctx, *payment.GatewayRef); err != nil {
				s.logger.Warn("PAYMENT", "Checkout cancellation failed", map[string]interface{}{
					"payment_id": payment.Id,
					"order_id":   *payment.GatewayRef,
					"error":      err.Error(),
				})
				return gatewayError(err)
			}
		}

		if err := payment.MarkCancelled(s.now()); err != nil {
			return err
		}
		return uow.PaymentRepository().Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("PAYMENT", "Payment cancelled", map[string]interface{}{
		"payment_id": payment.Id,
		"from":       entity.PaymentStatusPending,
		"to":         payment.Status,
	})
	s.publisher.PublishPaymentCancelled(ctx, payment)
	return payment, nil
}

func (s *lifecycleService) SettlePayment(ctx context.Context, paymentId uuid.UUID, method string, payload json.RawMessage) (*SettlementResult, error) {
	var result *SettlementResult
	var activated bool
	err := withLock(ctx, s.locker, lock.PaymentKey(paymentId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		payment, err := s.findPayment(ctx, uow, paymentId, specification.ForUpdate{})
		if err != nil {
			return err
		}

		req, err := uow.MembershipRequestRepository().FindOne(ctx, specification.ByID{ID: payment.RequestId}, specification.ForUpdate{})
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("membership request %s: %w", payment.RequestId, entity.ErrNotFound)
		}

		now := s.now()
		changed, err := payment.MarkPaid(method, now)
		if err != nil {
			return err
		}
		result = &SettlementResult{Payment: payment, Request: req, AlreadySettled: !changed}
		if !changed {
			return nil
		}
		if len(payload) > 0 {
			payment.GatewayPayload = payload
		}

		if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
			return err
		}
		result.Membership, activated, err = s.activateMembership(ctx, uow, req, now)
		if err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadySettled {
		s.logger.Info("PAYMENT", "Duplicate settlement ignored", map[string]interface{}{
			"payment_id": paymentId,
		})
		return result, nil
	}

	s.logger.Info("PAYMENT", "Payment settled", map[string]interface{}{
		"payment_id": result.Payment.Id,
		"request_id": result.Request.Id,
		"method":     result.Payment.Method,
		"from":       entity.PaymentStatusPending,
		"to":         result.Payment.Status,
	})
	s.publisher.PublishPaymentSettled(ctx, result.Payment, result.Request)
	if activated {
		s.publisher.PublishMembershipChanged(ctx, pkgEvents.MembershipActivated, result.Membership)
	}
	return result, nil
}

// MarkPaymentFailed closes a pending payment whose current checkout failed at
// the gateway. Signals for older sessions or non-pending payments are ignored.
func (s *lifecycleService) MarkPaymentFailed(ctx context.Context, paymentId uuid.UUID, gatewayRef string, payload json.RawMessage) (*entity.Payment, error) {
	var payment *entity.Payment
	var changed bool
	err := withLock(ctx, s.locker, lock.PaymentKey(paymentId), func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)

		var err error
		payment, err = s.findPayment(ctx, uow, paymentId)
		if err != nil {
			return err
		}
		if payment.Status != entity.PaymentStatusPending || !payment.MatchesGatewayRef(gatewayRef) {
			return nil
		}

		if err := payment.MarkCancelled(s.now()); err != nil {
			return err
		}
		if len(payload) > 0 {
			payment.GatewayPayload = payload
		}
		if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		s.logger.Debug("PAYMENT", "Failure signal ignored", map[string]interface{}{
			"payment_id":  paymentId,
			"gateway_ref": gatewayRef,
			"status":      payment.Status,
		})
		return payment, nil
	}

	s.logger.Info("PAYMENT", "Payment failed at gateway", map[string]interface{}{
		"payment_id":  payment.Id,
		"gateway_ref": gatewayRef,
		"from":        entity.PaymentStatusPending,
		"to":          payment.Status,
	})
	s.publisher.PublishPaymentCancelled(ctx, payment)
	return payment, nil
}

func (s *lifecycleService) findPayment(ctx context.Context, uow unitofwork.UnitOfWork, paymentId uuid.UUID, extra ...specification.Specification) (*entity.Payment, error) {
	specs := append([]specification.Specification{specification.ByID{ID: paymentId}}, extra...)
	payment, err := uow.PaymentRepository().FindOne(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %s: %w", paymentId, entity.ErrNotFound)
	}
	return payment, nil
}

func (s *lifecycleService) GetRequest(ctx context.Context, requestId uuid.UUID) (*entity.MembershipRequest, error) {
	req, err := s.uowFactory.NewUnitOfWork(ctx).MembershipRequestRepository().FindOne(ctx, specification.ByID{ID: requestId})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("membership request %s: %w", requestId, entity.ErrNotFound)
	}
	return req, nil
}

func (s *lifecycleService) ListRequestsByClub(ctx context.Context, clubId uuid.UUID, status string, page, limit int) ([]*entity.MembershipRequest, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	specs := []specification.Specification{specification.ByClub{ClubID: clubId}}
	if status != "" {
		specs = append(specs, specification.StatusIs{Status: status})
	}
	specs = append(specs,
		specification.OrderBy{Field: "request_date", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	return s.uowFactory.NewUnitOfWork(ctx).MembershipRequestRepository().FindAll(ctx, specs...)
}

func (s *lifecycleService) ListRequestsByStudent(ctx context.Context, studentId uuid.UUID) ([]*entity.MembershipRequest, error) {
	return s.uowFactory.NewUnitOfWork(ctx).MembershipRequestRepository().FindAll(ctx,
		specification.ByStudent{StudentID: studentId},
		specification.OrderBy{Field: "request_date", Desc: true},
	)
}

func (s *lifecycleService) GetPayment(ctx context.Context, paymentId uuid.UUID) (*entity.Payment, error) {
	return s.findPayment(ctx, s.uowFactory.NewUnitOfWork(ctx), paymentId)
}

func (s *lifecycleService) GetPaymentByRequest(ctx context.Context, requestId uuid.UUID) (*entity.Payment, error) {
	payment, err := s.uowFactory.NewUnitOfWork(ctx).PaymentRepository().FindOne(ctx, specification.ByRequestID{RequestID: requestId})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("payment for request %s: %w", requestId, entity.ErrNotFound)
	}
	return payment, nil
}

// ListStalePayments returns pending payments not touched since before.
func (s *lifecycleService) ListStalePayments(ctx context.Context, before time.Time) ([]*entity.Payment, error) {
	return s.uowFactory.NewUnitOfWork(ctx).PaymentRepository().FindAll(ctx,
		specification.StatusIs{Status: string(entity.PaymentStatusPending)},
		specification.UpdatedBefore{Before: before},
		specification.OrderBy{Field: "updated_at"},
		specification.Pagination{Limit: 100},
	)
}
