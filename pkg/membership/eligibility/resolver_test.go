package eligibility

import (
	"errors"
	"testing"
	"time"

	"club-membership-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(status entity.RequestStatus) *entity.MembershipRequest {
	return &entity.MembershipRequest{Id: uuid.New(), Status: status}
}

func payment(status entity.PaymentStatus) *entity.Payment {
	return &entity.Payment{Id: uuid.New(), Status: status}
}

func membership(status entity.MembershipStatus) *entity.Membership {
	return &entity.Membership{Id: uuid.New(), Status: status, StatusChangedAt: time.Now()}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		history     History
		wantAllowed bool
		wantReason  entity.DenialReason
		wantRule    Rule
	}{
		{
			name:        "no prior request",
			history:     History{},
			wantAllowed: true,
			wantRule:    RuleNoPriorRequest,
		},
		{
			name:        "last request rejected",
			history:     History{LatestRequest: request(entity.RequestStatusRejected)},
			wantAllowed: true,
			wantRule:    RuleLastRejected,
		},
		{
			name: "rejected wins over an active membership",
			history: History{
				LatestRequest: request(entity.RequestStatusRejected),
				Membership:    membership(entity.MembershipStatusActive),
			},
			wantAllowed: true,
			wantRule:    RuleLastRejected,
		},
		{
			name: "active member",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Membership:    membership(entity.MembershipStatusActive),
			},
			wantReason: entity.DenialAlreadyMember,
			wantRule:   RuleAlreadyMember,
		},
		{
			name: "locked member",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Membership:    membership(entity.MembershipStatusLocked),
			},
			wantReason: entity.DenialAlreadyMember,
			wantRule:   RuleAlreadyMember,
		},
		{
			name:       "pending request awaits leader",
			history:    History{LatestRequest: request(entity.RequestStatusPending)},
			wantReason: entity.DenialAwaitingDecision,
			wantRule:   RuleOutstanding,
		},
		{
			name: "pending request after removal still waits",
			history: History{
				LatestRequest: request(entity.RequestStatusPending),
				Membership:    membership(entity.MembershipStatusRemoved),
			},
			wantReason: entity.DenialAwaitingDecision,
			wantRule:   RuleOutstanding,
		},
		{
			name: "approved with created payment",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Payment:       payment(entity.PaymentStatusCreated),
			},
			wantReason: entity.DenialPaymentOutstanding,
			wantRule:   RuleOutstanding,
		},
		{
			name: "approved with pending payment",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Payment:       payment(entity.PaymentStatusPending),
			},
			wantReason: entity.DenialPaymentOutstanding,
			wantRule:   RuleOutstanding,
		},
		{
			name: "approved with cancelled payment must resume",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Payment:       payment(entity.PaymentStatusCancelled),
			},
			wantReason: entity.DenialPaymentCancelled,
			wantRule:   RuleOutstanding,
		},
		{
			name: "paid then removed re-registers",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Payment:       payment(entity.PaymentStatusPaid),
				Membership:    membership(entity.MembershipStatusRemoved),
			},
			wantAllowed: true,
			wantRule:    RuleReRegistration,
		},
		{
			name: "free approval then removed falls through",
			history: History{
				LatestRequest: request(entity.RequestStatusApproved),
				Membership:    membership(entity.MembershipStatusRemoved),
			},
			wantAllowed: true,
			wantRule:    RuleFallThrough,
		},
		{
			name:        "unknown request status fails open",
			history:     History{LatestRequest: request(entity.RequestStatus("archived"))},
			wantAllowed: true,
			wantRule:    RuleFallThrough,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Resolve(tt.history)
			assert.Equal(t, tt.wantAllowed, v.Allowed)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantRule, v.Rule)
		})
	}
}

func TestVerdictErr(t *testing.T) {
	h := History{
		LatestRequest: request(entity.RequestStatusApproved),
		Payment:       payment(entity.PaymentStatusPending),
	}
	err := Resolve(h).Err(h)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrDuplicateRequest)

	var eligErr *entity.EligibilityError
	require.True(t, errors.As(err, &eligErr))
	assert.Equal(t, entity.DenialPaymentOutstanding, eligErr.Reason)
	assert.Equal(t, h.LatestRequest.Id, eligErr.RequestId)
	require.NotNil(t, eligErr.PaymentId)
	assert.Equal(t, h.Payment.Id, *eligErr.PaymentId)

	assert.NoError(t, Resolve(History{}).Err(History{}))
}
