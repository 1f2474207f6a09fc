// Package eligibility decides whether a student may submit a new membership
// request for a club given the latest request, its payment and the latest
// membership row for the same pair.
package eligibility

import (
	"club-membership-be/internal/entity"
)

// History is the most recent state for one (student, club) pair.
// Payment belongs to LatestRequest; Membership is the newest membership row,
// removed or not.
type History struct {
	LatestRequest *entity.MembershipRequest
	Payment       *entity.Payment
	Membership    *entity.Membership
}

// Rule identifies the rule that produced a verdict.
type Rule int

const (
	RuleNoPriorRequest Rule = iota + 1
	RuleLastRejected
	RuleAlreadyMember
	RuleOutstanding
	RuleReRegistration
	RuleFallThrough
)

type Verdict struct {
	Allowed bool
	Reason  entity.DenialReason
	Rule    Rule
}

func allow(rule Rule) Verdict {
	return Verdict{Allowed: true, Rule: rule}
}

func deny(rule Rule, reason entity.DenialReason) Verdict {
	return Verdict{Allowed: false, Rule: rule, Reason: reason}
}

// Resolve evaluates the rules in order. It has no side effects.
func Resolve(h History) Verdict {
	req := h.LatestRequest
	if req == nil {
		return allow(RuleNoPriorRequest)
	}

	if req.Status == entity.RequestStatusRejected {
		return allow(RuleLastRejected)
	}

	// A locked member still holds the seat; resubmitting would bypass the lock.
	if h.Membership != nil && h.Membership.IsCurrent() {
		return deny(RuleAlreadyMember, entity.DenialAlreadyMember)
	}

	switch req.Status {
	case entity.RequestStatusPending:
		return deny(RuleOutstanding, entity.DenialAwaitingDecision)
	case entity.RequestStatusApproved:
		if h.Payment == nil {
			break
		}
		switch h.Payment.Status {
		case entity.PaymentStatusCreated, entity.PaymentStatusPending:
			return deny(RuleOutstanding, entity.DenialPaymentOutstanding)
		case entity.PaymentStatusCancelled:
			return deny(RuleOutstanding, entity.DenialPaymentCancelled)
		case entity.PaymentStatusPaid:
			if h.Membership != nil && h.Membership.Status == entity.MembershipStatusRemoved {
				return allow(RuleReRegistration)
			}
		}
	}

	return allow(RuleFallThrough)
}

// Err converts a denial into the error returned to callers of Submit.
func (v Verdict) Err(h History) error {
	if v.Allowed {
		return nil
	}
	e := &entity.EligibilityError{Reason: v.Reason}
	if h.LatestRequest != nil {
		e.RequestId = h.LatestRequest.Id
	}
	if h.Payment != nil {
		id := h.Payment.Id
		e.PaymentId = &id
	}
	return e
}
