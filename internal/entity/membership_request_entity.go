package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) String() string { return string(s) }

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// MembershipRequest is a student's ask to join a club. The contact fields are a
// snapshot taken at submission time.
type MembershipRequest struct {
	Id          uuid.UUID
	StudentId   uuid.UUID
	ClubId      uuid.UUID
	Reason      string
	FullName    string
	Email       string
	Phone       string
	Status      RequestStatus
	PaymentId   *uuid.UUID
	Amount      *decimal.Decimal
	Note        string
	RequestDate time.Time
	DecidedAt   *time.Time
	Version     int
	UpdatedAt   time.Time
}

func NewMembershipRequest(studentId, clubId uuid.UUID, reason, fullName, email, phone string, now time.Time) (*MembershipRequest, error) {
	fields := []struct{ name, value string }{
		{"reason", reason},
		{"full_name", fullName},
		{"email", email},
		{"phone", phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	if studentId == uuid.Nil || clubId == uuid.Nil {
		return nil, fmt.Errorf("%w: student and club are required", ErrValidation)
	}

	return &MembershipRequest{
		Id:          uuid.New(),
		StudentId:   studentId,
		ClubId:      clubId,
		Reason:      strings.TrimSpace(reason),
		FullName:    strings.TrimSpace(fullName),
		Email:       strings.TrimSpace(email),
		Phone:       strings.TrimSpace(phone),
		Status:      RequestStatusPending,
		RequestDate: now,
		UpdatedAt:   now,
	}, nil
}

// RequiresPayment reports whether the approved fee is non-zero.
func (r *MembershipRequest) RequiresPayment() bool {
	return r.Amount != nil && r.Amount.IsPositive()
}

func (r *MembershipRequest) Approve(amount *decimal.Decimal, note string, now time.Time) error {
	if r.Status != RequestStatusPending {
		return invalidTransition("membership request", r.Status, RequestStatusApproved)
	}
	if amount != nil && amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	r.Status = RequestStatusApproved
	r.Amount = amount
	r.Note = strings.TrimSpace(note)
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *MembershipRequest) Reject(note string, now time.Time) error {
	if r.Status != RequestStatusPending {
		return invalidTransition("membership request", r.Status, RequestStatusRejected)
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return fmt.Errorf("%w: a note is required when rejecting", ErrValidation)
	}
	r.Status = RequestStatusRejected
	r.Note = note
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *MembershipRequest) LinkPayment(paymentId uuid.UUID) error {
	if r.Status != RequestStatusApproved || !r.RequiresPayment() {
		return fmt.Errorf("%w: payment can only be linked to a paid approval", ErrInvalidTransition)
	}
	if r.PaymentId != nil {
		return fmt.Errorf("%w: request already has a payment", ErrInvalidTransition)
	}
	r.PaymentId = &paymentId
	return nil
}

// CheckPaymentLink verifies that PaymentId is set iff the request is approved with a fee.
func (r *MembershipRequest) CheckPaymentLink() error {
	needsPayment := r.Status == RequestStatusApproved && r.RequiresPayment()
	if needsPayment != (r.PaymentId != nil) {
		return fmt.Errorf("membership request %s has inconsistent payment link (status=%s)", r.Id, r.Status)
	}
	return nil
}
