// Package gateway is the boundary to the external payment provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable covers timeouts and transport failures. Callers may retry.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected means the gateway answered and refused the call.
	ErrRejected = errors.New("payment gateway rejected the request")
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Customer struct {
	FullName string
	Email    string
	Phone    string
}

type CheckoutRequest struct {
	// OrderID is unique per checkout attempt, see OrderID.
	OrderID   string
	Amount    decimal.Decimal
	ItemID    string
	ItemName  string
	Customer  Customer
	FinishURL string
}

type Checkout struct {
	OrderID     string
	Token       string
	RedirectURL string
}

type StatusResult struct {
	OrderID string
	Outcome Outcome
	Method  string
	Raw     []byte
}

// PaymentGateway opens, cancels and inspects hosted checkout sessions.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// CancelCheckout is idempotent: an unknown or already closed session is not an error.
	CancelCheckout(ctx context.Context, orderID string) error
	CheckStatus(ctx context.Context, orderID string) (*StatusResult, error)
}

// TranslateStatus maps a Midtrans transaction/fraud status pair to an outcome.
// ok is false for statuses that carry no decision.
func TranslateStatus(transactionStatus, fraudStatus string) (Outcome, bool) {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "challenge":
			return OutcomePending, true
		case "deny":
			return OutcomeFailure, true
		}
		return OutcomeSuccess, true
	case "settlement":
		return OutcomeSuccess, true
	case "deny", "cancel", "expire", "failure":
		return OutcomeFailure, true
	case "pending", "authorize":
		return OutcomePending, true
	}
	return "", false
}

// ParseOrderID splits an order id of the form <payment uuid>-<attempt>-<nonce>.
// The nonce is optional so ids minted before it existed still resolve.
func ParseOrderID(orderID string) (uuid.UUID, int, error) {
	if len(orderID) < 38 || orderID[36] != '-' {
		return uuid.Nil, 0, fmt.Errorf("malformed order id %q", orderID)
	}
	paymentId, err := uuid.Parse(orderID[:36])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("malformed order id %q: %w", orderID, err)
	}
	rest := orderID[37:]
	if idx := strings.Index(rest, "-"); idx >= 0 {
		if idx == len(rest)-1 {
			return uuid.Nil, 0, fmt.Errorf("malformed order id %q: empty nonce", orderID)
		}
		rest = rest[:idx]
	}
	attempt, err := strconv.Atoi(rest)
	if err != nil || attempt < 1 {
		return uuid.Nil, 0, fmt.Errorf("malformed order id %q: bad attempt", orderID)
	}
	return paymentId, attempt, nil
}
