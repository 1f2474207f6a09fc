package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "created"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) String() string { return string(s) }

// Payment settles the fee of one approved membership request.
// GatewayRef is the order id of the most recent checkout session.
type Payment struct {
	Id             uuid.UUID
	RequestId      uuid.UUID
	Status         PaymentStatus
	Amount         decimal.Decimal
	PaidDate       *time.Time
	Method         string
	GatewayRef     *string
	CheckoutUrl    string
	Attempts       int
	GatewayPayload json.RawMessage
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewPayment(requestId uuid.UUID, amount decimal.Decimal, now time.Time) *Payment {
	return &Payment{
		Id:        uuid.New(),
		RequestId: requestId,
		Status:    PaymentStatusCreated,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanInitiate reports whether a new checkout session may be minted.
func (p *Payment) CanInitiate() bool {
	return p.Status == PaymentStatusCreated || p.Status == PaymentStatusCancelled
}

// NextGatewayRef returns a new order id for the next checkout session. Every
// call yields a different id: a call that timed out may still have created
// its session at the gateway.
func (p *Payment) NextGatewayRef() string {
	return fmt.Sprintf("%s-%d-%s", p.Id, p.Attempts+1, uuid.NewString()[:8])
}

func (p *Payment) MarkCheckoutStarted(gatewayRef, checkoutUrl string, now time.Time) error {
	if !p.CanInitiate() {
		return invalidTransition("payment", p.Status, PaymentStatusPending)
	}
	p.Status = PaymentStatusPending
	p.GatewayRef = &gatewayRef
	p.CheckoutUrl = checkoutUrl
	p.Attempts++
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkCancelled(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return invalidTransition("payment", p.Status, PaymentStatusCancelled)
	}
	p.Status = PaymentStatusCancelled
	p.CheckoutUrl = ""
	p.UpdatedAt = now
	return nil
}

// MarkPaid moves a pending payment to paid. A payment that is already paid is
// left untouched and reported as unchanged.
func (p *Payment) MarkPaid(method string, now time.Time) (bool, error) {
	switch p.Status {
	case PaymentStatusPaid:
		return false, nil
	case PaymentStatusPending:
		p.Status = PaymentStatusPaid
		p.Method = method
		p.PaidDate = &now
		p.CheckoutUrl = ""
		p.UpdatedAt = now
		return true, nil
	default:
		return false, invalidTransition("payment", p.Status, PaymentStatusPaid)
	}
}

// MatchesGatewayRef is true when ref is empty or names the current checkout.
func (p *Payment) MatchesGatewayRef(ref string) bool {
	if ref == "" {
		return true
	}
	return p.GatewayRef != nil && *p.GatewayRef == ref
}
