package service

import (
	"context"
	"fmt"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"
	"club-membership-be/internal/repository/unitofwork"
	"club-membership-be/pkg/lock"
	"club-membership-be/pkg/membership/status"

	"github.com/google/uuid"
)

// IMembershipAdminService exposes the leader's administrative actions on
// existing memberships.
type IMembershipAdminService interface {
	Lock(ctx context.Context, membershipId uuid.UUID, note string) (*entity.Membership, error)
	Unlock(ctx context.Context, membershipId uuid.UUID) (*entity.Membership, error)
	Remove(ctx context.Context, membershipId uuid.UUID, note string) (*entity.Membership, error)

	GetMembership(ctx context.Context, membershipId uuid.UUID) (*entity.Membership, error)
	ListMembershipsByClub(ctx context.Context, clubId uuid.UUID, status string) ([]*entity.Membership, error)
	ListMembershipsByStudent(ctx context.Context, studentId uuid.UUID) ([]*entity.Membership, error)
}

type membershipAdminService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	manager    *status.Manager
}

func NewMembershipAdminService(uowFactory unitofwork.RepositoryFactory, locker lock.Locker, manager *status.Manager) IMembershipAdminService {
	return &membershipAdminService{
		uowFactory: uowFactory,
		locker:     locker,
		manager:    manager,
	}
}

func (s *membershipAdminService) Lock(ctx context.Context, membershipId uuid.UUID, note string) (*entity.Membership, error) {
	var out *entity.Membership
	err := withLock(ctx, s.locker, lock.MembershipKey(membershipId), func() (err error) {
		out, err = s.manager.Lock(ctx, s.uowFactory.NewUnitOfWork(ctx), membershipId, note)
		return err
	})
	return out, err
}

func (s *membershipAdminService) Unlock(ctx context.Context, membershipId uuid.UUID) (*entity.Membership, error) {
	var out *entity.Membership
	err := withLock(ctx, s.locker, lock.MembershipKey(membershipId), func() (err error) {
		out, err = s.manager.Unlock(ctx, s.uowFactory.NewUnitOfWork(ctx), membershipId)
		return err
	})
	return out, err
}

func (s *membershipAdminService) Remove(ctx context.Context, membershipId uuid.UUID, note string) (*entity.Membership, error) {
	var out *entity.Membership
	err := withLock(ctx, s.locker, lock.MembershipKey(membershipId), func() (err error) {
		out, err = s.manager.Remove(ctx, s.uowFactory.NewUnitOfWork(ctx), membershipId, note)
		return err
	})
	return out, err
}

func (s *membershipAdminService) GetMembership(ctx context.Context, membershipId uuid.UUID) (*entity.Membership, error) {
	membership, err := s.uowFactory.NewUnitOfWork(ctx).MembershipRepository().FindOne(ctx, specification.ByID{ID: membershipId})
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("membership %s: %w", membershipId, entity.ErrNotFound)
	}
	return membership, nil
}

// ListMembershipsByClub lists current members unless a status is given.
func (s *membershipAdminService) ListMembershipsByClub(ctx context.Context, clubId uuid.UUID, status string) ([]*entity.Membership, error) {
	specs := []specification.Specification{specification.ByClub{ClubID: clubId}}
	if status != "" {
		specs = append(specs, specification.StatusIs{Status: status})
	} else {
		specs = append(specs, specification.NotRemoved{})
	}
	specs = append(specs, specification.OrderBy{Field: "created_at"})
	return s.uowFactory.NewUnitOfWork(ctx).MembershipRepository().FindAll(ctx, specs...)
}

func (s *membershipAdminService) ListMembershipsByStudent(ctx context.Context, studentId uuid.UUID) ([]*entity.Membership, error) {
	return s.uowFactory.NewUnitOfWork(ctx).MembershipRepository().FindAll(ctx,
		specification.ByStudent{StudentID: studentId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}
