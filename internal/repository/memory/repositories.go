package memory

import (
	"context"
	"fmt"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"

	"github.com/google/uuid"
)

func versionConflict(id uuid.UUID, version int) error {
	return fmt.Errorf("%w: %v (version %d)", entity.ErrConcurrentModification, id, version)
}

type requestRepository struct {
	uow *unitOfWork
}

func requestRow(r *entity.MembershipRequest) row {
	return row{
		id:        r.Id,
		studentId: r.StudentId,
		clubId:    r.ClubId,
		status:    string(r.Status),
		times: map[string]time.Time{
			"request_date": r.RequestDate,
			"updated_at":   r.UpdatedAt,
		},
	}
}

func (r *requestRepository) Create(ctx context.Context, req *entity.MembershipRequest) error {
	return r.uow.run(func(t *tables) error {
		if _, ok := t.requests[req.Id]; ok {
			return fmt.Errorf("membership request %s already exists", req.Id)
		}
		t.requests[req.Id] = *req
		return nil
	})
}

func (r *requestRepository) Update(ctx context.Context, req *entity.MembershipRequest) error {
	return r.uow.run(func(t *tables) error {
		stored, ok := t.requests[req.Id]
		if !ok || stored.Version != req.Version {
			return versionConflict(req.Id, req.Version)
		}
		req.Version++
		t.requests[req.Id] = *req
		return nil
	})
}

func (r *requestRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipRequest, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *requestRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipRequest, error) {
	var out []*entity.MembershipRequest
	err := r.uow.run(func(t *tables) error {
		items := make([]entity.MembershipRequest, 0, len(t.requests))
		rows := make([]row, 0, len(t.requests))
		for _, v := range t.requests {
			items = append(items, v)
			rows = append(rows, requestRow(&v))
		}
		idx, err := selectRows(rows, specs)
		if err != nil {
			return err
		}
		for _, i := range idx {
			item := items[i]
			out = append(out, &item)
		}
		return nil
	})
	return out, err
}

type paymentRepository struct {
	uow *unitOfWork
}

func paymentRow(p *entity.Payment) row {
	requestId := p.RequestId
	return row{
		id:         p.Id,
		requestId:  &requestId,
		gatewayRef: p.GatewayRef,
		status:     string(p.Status),
		times: map[string]time.Time{
			"created_at": p.CreatedAt,
			"updated_at": p.UpdatedAt,
		},
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return r.uow.run(func(t *tables) error {
		for _, existing := range t.payments {
			if existing.RequestId == payment.RequestId {
				return fmt.Errorf("%w: request %s already has a payment", entity.ErrConcurrentModification, payment.RequestId)
			}
		}
		t.payments[payment.Id] = *payment
		return nil
	})
}

func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	return r.uow.run(func(t *tables) error {
		stored, ok := t.payments[payment.Id]
		if !ok || stored.Version != payment.Version {
			return versionConflict(payment.Id, payment.Version)
		}
		payment.Version++
		updated := *payment
		// amount and owner are immutable once written
		updated.Amount = stored.Amount
		updated.RequestId = stored.RequestId
		t.payments[payment.Id] = updated
		return nil
	})
}

func (r *paymentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *paymentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	var out []*entity.Payment
	err := r.uow.run(func(t *tables) error {
		items := make([]entity.Payment, 0, len(t.payments))
		rows := make([]row, 0, len(t.payments))
		for _, v := range t.payments {
			items = append(items, v)
			rows = append(rows, paymentRow(&v))
		}
		idx, err := selectRows(rows, specs)
		if err != nil {
			return err
		}
		for _, i := range idx {
			item := items[i]
			out = append(out, &item)
		}
		return nil
	})
	return out, err
}

type membershipRepository struct {
	uow *unitOfWork
}

func membershipRow(m *entity.Membership) row {
	return row{
		id:        m.Id,
		studentId: m.StudentId,
		clubId:    m.ClubId,
		requestId: m.RequestId,
		status:    string(m.Status),
		times: map[string]time.Time{
			"created_at":        m.CreatedAt,
			"updated_at":        m.UpdatedAt,
			"status_changed_at": m.StatusChangedAt,
		},
	}
}

func (r *membershipRepository) Create(ctx context.Context, membership *entity.Membership) error {
	return r.uow.run(func(t *tables) error {
		if membership.IsCurrent() {
			for _, existing := range t.memberships {
				if existing.StudentId == membership.StudentId && existing.ClubId == membership.ClubId && existing.IsCurrent() {
					return entity.ErrConcurrentModification
				}
			}
		}
		t.memberships[membership.Id] = *membership
		return nil
	})
}

func (r *membershipRepository) Update(ctx context.Context, membership *entity.Membership) error {
	return r.uow.run(func(t *tables) error {
		stored, ok := t.memberships[membership.Id]
		if !ok || stored.Version != membership.Version {
			return versionConflict(membership.Id, membership.Version)
		}
		membership.Version++
		t.memberships[membership.Id] = *membership
		return nil
	})
}

func (r *membershipRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Membership, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *membershipRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Membership, error) {
	var out []*entity.Membership
	err := r.uow.run(func(t *tables) error {
		items := make([]entity.Membership, 0, len(t.memberships))
		rows := make([]row, 0, len(t.memberships))
		for _, v := range t.memberships {
			items = append(items, v)
			rows = append(rows, membershipRow(&v))
		}
		idx, err := selectRows(rows, specs)
		if err != nil {
			return err
		}
		for _, i := range idx {
			item := items[i]
			out = append(out, &item)
		}
		return nil
	})
	return out, err
}
