package entity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrDuplicateRequest       = errors.New("membership request not allowed")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrValidation             = errors.New("validation failed")
	ErrConcurrentModification = errors.New("resource was modified concurrently")
	ErrLockBusy               = errors.New("resource is busy")
)

// DenialReason tells the caller which eligibility rule refused a new request.
type DenialReason string

const (
	DenialAwaitingDecision   DenialReason = "awaiting_leader_decision"
	DenialPaymentOutstanding DenialReason = "payment_outstanding"
	DenialPaymentCancelled   DenialReason = "payment_cancelled"
	DenialAlreadyMember      DenialReason = "already_member"
)

func (r DenialReason) Message() string {
	switch r {
	case DenialAwaitingDecision:
		return "your previous request is awaiting the leader's decision"
	case DenialPaymentOutstanding:
		return "finish or cancel the existing payment first"
	case DenialPaymentCancelled:
		return "resume your cancelled payment instead of submitting a new request"
	case DenialAlreadyMember:
		return "you are already a member of this club"
	default:
		return "a new request is not allowed right now"
	}
}

// EligibilityError is returned by Submit when the resolver denies a new request.
type EligibilityError struct {
	Reason    DenialReason
	RequestId uuid.UUID
	PaymentId *uuid.UUID
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateRequest.Error(), e.Reason)
}

func (e *EligibilityError) Unwrap() error {
	return ErrDuplicateRequest
}

// TransitionError describes a refused state change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move from %s to %s", ErrInvalidTransition.Error(), e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(entity string, from, to fmt.Stringer) error {
	return &TransitionError{Entity: entity, From: from.String(), To: to.String()}
}
