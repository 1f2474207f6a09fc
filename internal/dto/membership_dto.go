package dto

import (
	"time"

	"club-membership-be/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Requests ---

type SubmitMembershipRequest struct {
	ClubId   uuid.UUID `json:"club_id" validate:"required"`
	Reason   string    `json:"reason" validate:"required,max=2000"`
	FullName string    `json:"full_name" validate:"required,max=255"`
	Email    string    `json:"email" validate:"required,email"`
	Phone    string    `json:"phone" validate:"required,max=50"`
}

type DecideMembershipRequest struct {
	Decision string           `json:"decision" validate:"required,oneof=approve reject"`
	Note     string           `json:"note" validate:"required_if=Decision reject,max=2000"`
	Amount   *decimal.Decimal `json:"amount"`
}

type MembershipNoteRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type ListRequestsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit" validate:"omitempty,max=100"`
}

// MidtransWebhookRequest is the HTTP notification body sent by Midtrans.
type MidtransWebhookRequest struct {
	TransactionStatus string `json:"transaction_status"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionId     string `json:"transaction_id"`
	// Signature validation fields
	SignatureKey string `json:"signature_key"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`
}

// --- Responses ---

type MembershipRequestResponse struct {
	Id          uuid.UUID        `json:"id"`
	StudentId   uuid.UUID        `json:"student_id"`
	ClubId      uuid.UUID        `json:"club_id"`
	Reason      string           `json:"reason"`
	FullName    string           `json:"full_name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	Status      string           `json:"status"`
	PaymentId   *uuid.UUID       `json:"payment_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Note        string           `json:"note,omitempty"`
	RequestDate time.Time        `json:"request_date"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
}

type PaymentResponse struct {
	Id          uuid.UUID       `json:"id"`
	RequestId   uuid.UUID       `json:"request_id"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	PaidDate    *time.Time      `json:"paid_date"`
	Method      string          `json:"method,omitempty"`
	CheckoutUrl string          `json:"checkout_url,omitempty"`
	OrderId     string          `json:"order_id,omitempty"`
	Attempts    int             `json:"attempts"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type MembershipResponse struct {
	Id              uuid.UUID  `json:"id"`
	StudentId       uuid.UUID  `json:"student_id"`
	ClubId          uuid.UUID  `json:"club_id"`
	RequestId       *uuid.UUID `json:"request_id"`
	Status          string     `json:"status"`
	JoinDate        *time.Time `json:"join_date"`
	Note            string     `json:"note,omitempty"`
	StatusChangedAt time.Time  `json:"status_changed_at"`
}

type DecisionResponse struct {
	Request    *MembershipRequestResponse `json:"request"`
	Payment    *PaymentResponse           `json:"payment,omitempty"`
	Membership *MembershipResponse        `json:"membership,omitempty"`
}

type CheckoutResponse struct {
	Payment     *PaymentResponse `json:"payment"`
	CheckoutUrl string           `json:"checkout_url"`
	SnapToken   string           `json:"snap_token"`
}

type EligibilityResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewMembershipRequestResponse(r *entity.MembershipRequest) *MembershipRequestResponse {
	if r == nil {
		return nil
	}
	return &MembershipRequestResponse{
		Id:          r.Id,
		StudentId:   r.StudentId,
		ClubId:      r.ClubId,
		Reason:      r.Reason,
		FullName:    r.FullName,
		Email:       r.Email,
		Phone:       r.Phone,
		Status:      string(r.Status),
		PaymentId:   r.PaymentId,
		Amount:      r.Amount,
		Note:        r.Note,
		RequestDate: r.RequestDate,
		DecidedAt:   r.DecidedAt,
	}
}

func NewMembershipRequestResponses(items []*entity.MembershipRequest) []*MembershipRequestResponse {
	out := make([]*MembershipRequestResponse, 0, len(items))
	for _, r := range items {
		out = append(out, NewMembershipRequestResponse(r))
	}
	return out
}

func NewPaymentResponse(p *entity.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	res := &PaymentResponse{
		Id:          p.Id,
		RequestId:   p.RequestId,
		Status:      string(p.Status),
		Amount:      p.Amount,
		PaidDate:    p.PaidDate,
		Method:      p.Method,
		CheckoutUrl: p.CheckoutUrl,
		Attempts:    p.Attempts,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.GatewayRef != nil {
		res.OrderId = *p.GatewayRef
	}
	return res
}

func NewMembershipResponse(m *entity.Membership) *MembershipResponse {
	if m == nil {
		return nil
	}
	return &MembershipResponse{
		Id:              m.Id,
		StudentId:       m.StudentId,
		ClubId:          m.ClubId,
		RequestId:       m.RequestId,
		Status:          string(m.Status),
		JoinDate:        m.JoinDate,
		Note:            m.Note,
		StatusChangedAt: m.StatusChangedAt,
	}
}

func NewMembershipResponses(items []*entity.Membership) []*MembershipResponse {
	out := make([]*MembershipResponse, 0, len(items))
	for _, m := range items {
		out = append(out, NewMembershipResponse(m))
	}
	return out
}
