// Package status moves existing memberships between active, locked and removed.
package status

import (
	"context"
	"fmt"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/repository/specification"
	"club-membership-be/internal/repository/unitofwork"
	pkgEvents "club-membership-be/pkg/events"
	membershipEvents "club-membership-be/pkg/membership/events"

	"github.com/google/uuid"
)

// Manager applies leader-driven status changes. Callers serialize access per
// membership; the manager adds a row lock and a version check on top.
type Manager struct {
	logger    logger.ILogger
	publisher membershipEvents.Publisher
	now       func() time.Time
}

func NewManager(logger logger.ILogger, publisher membershipEvents.Publisher, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		logger:    logger,
		publisher: publisher,
		now:       now,
	}
}

// Lock suspends an active membership.
func (m *Manager) Lock(ctx context.Context, uow unitofwork.UnitOfWork, membershipId uuid.UUID, note string) (*entity.Membership, error) {
	return m.apply(ctx, uow, membershipId, pkgEvents.MembershipLocked, func(ms *entity.Membership, now time.Time) error {
		return ms.Lock(note, now)
	})
}

// Unlock reinstates a locked membership.
func (m *Manager) Unlock(ctx context.Context, uow unitofwork.UnitOfWork, membershipId uuid.UUID) (*entity.Membership, error) {
	return m.apply(ctx, uow, membershipId, pkgEvents.MembershipUnlocked, func(ms *entity.Membership, now time.Time) error {
		return ms.Unlock(now)
	})
}

// Remove ends a membership. The row stays as history.
func (m *Manager) Remove(ctx context.Context, uow unitofwork.UnitOfWork, membershipId uuid.UUID, note string) (*entity.Membership, error) {
	return m.apply(ctx, uow, membershipId, pkgEvents.MembershipRemoved, func(ms *entity.Membership, now time.Time) error {
		return ms.Remove(note, now)
	})
}

func (m *Manager) apply(ctx context.Context, uow unitofwork.UnitOfWork, membershipId uuid.UUID, eventType string, transition func(*entity.Membership, time.Time) error) (*entity.Membership, error) {
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	membership, err := uow.MembershipRepository().FindOne(ctx,
		specification.ByID{ID: membershipId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("membership %s: %w", membershipId, entity.ErrNotFound)
	}

	from := membership.Status
	if err := transition(membership, m.now()); err != nil {
		return nil, err
	}

	if err := uow.MembershipRepository().Update(ctx, membership); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	m.logger.Info("MEMBERSHIP", "Membership status changed", map[string]interface{}{
		"membership_id": membership.Id,
		"student_id":    membership.StudentId,
		"club_id":       membership.ClubId,
		"from":          from,
		"to":            membership.Status,
	})
	m.publisher.PublishMembershipChanged(ctx, eventType, membership)

	return membership, nil
}
