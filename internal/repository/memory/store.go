// Package memory is a process-local repository backend. It honours the same
// contracts as the gorm backend: optimistic versions, unique payment per
// request, one current membership per pair and all-or-nothing transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/contract"
	"club-membership-be/internal/repository/specification"
	"club-membership-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type tables struct {
	requests    map[uuid.UUID]entity.MembershipRequest
	payments    map[uuid.UUID]entity.Payment
	memberships map[uuid.UUID]entity.Membership
}

func (t *tables) clone() *tables {
	c := &tables{
		requests:    make(map[uuid.UUID]entity.MembershipRequest, len(t.requests)),
		payments:    make(map[uuid.UUID]entity.Payment, len(t.payments)),
		memberships: make(map[uuid.UUID]entity.Membership, len(t.memberships)),
	}
	for k, v := range t.requests {
		c.requests[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.memberships {
		c.memberships[k] = v
	}
	return c
}

// Store holds all rows. Transactions are serialized store-wide.
type Store struct {
	mu   sync.Mutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: &tables{
		requests:    map[uuid.UUID]entity.MembershipRequest{},
		payments:    map[uuid.UUID]entity.Payment{},
		memberships: map[uuid.UUID]entity.Membership{},
	}}
}

// NewUnitOfWork satisfies unitofwork.RepositoryFactory.
func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

type unitOfWork struct {
	store    *Store
	inTx     bool
	snapshot *tables
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.inTx = true
	u.snapshot = u.store.data.clone()
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.inTx = false
	u.snapshot = nil
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.inTx {
		return nil
	}
	u.store.data = u.snapshot
	u.inTx = false
	u.snapshot = nil
	u.store.mu.Unlock()
	return nil
}

// run executes fn under the store lock unless the unit already holds it.
func (u *unitOfWork) run(fn func(t *tables) error) error {
	if !u.inTx {
		u.store.mu.Lock()
		defer u.store.mu.Unlock()
	}
	return fn(u.store.data)
}

func (u *unitOfWork) MembershipRequestRepository() contract.MembershipRequestRepository {
	return &requestRepository{uow: u}
}

func (u *unitOfWork) PaymentRepository() contract.PaymentRepository {
	return &paymentRepository{uow: u}
}

func (u *unitOfWork) MembershipRepository() contract.MembershipRepository {
	return &membershipRepository{uow: u}
}

// row exposes the columns specifications filter and sort on.
type row struct {
	id         uuid.UUID
	studentId  uuid.UUID
	clubId     uuid.UUID
	requestId  *uuid.UUID
	gatewayRef *string
	status     string
	times      map[string]time.Time
}

func matches(r row, specs []specification.Specification) (bool, error) {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if r.id != s.ID {
				return false, nil
			}
		case specification.ByStudentAndClub:
			if r.studentId != s.StudentID || r.clubId != s.ClubID {
				return false, nil
			}
		case specification.ByStudent:
			if r.studentId != s.StudentID {
				return false, nil
			}
		case specification.ByClub:
			if r.clubId != s.ClubID {
				return false, nil
			}
		case specification.ByRequestID:
			if r.requestId == nil || *r.requestId != s.RequestID {
				return false, nil
			}
		case specification.ByGatewayRef:
			if r.gatewayRef == nil || *r.gatewayRef != s.Ref {
				return false, nil
			}
		case specification.StatusIs:
			if r.status != s.Status {
				return false, nil
			}
		case specification.NotRemoved:
			if r.status == string(entity.MembershipStatusRemoved) {
				return false, nil
			}
		case specification.UpdatedBefore:
			if !r.times["updated_at"].Before(s.Before) {
				return false, nil
			}
		case specification.ForUpdate, specification.OrderBy, specification.Pagination:
		default:
			return false, fmt.Errorf("memory store: unsupported specification %T", spec)
		}
	}
	return true, nil
}

// selectRows filters, orders and pages rows, returning the surviving indexes.
func selectRows(rows []row, specs []specification.Specification) ([]int, error) {
	var idx []int
	for i, r := range rows {
		ok, err := matches(r, specs)
		if err != nil {
			return nil, err
		}
		if ok {
			idx = append(idx, i)
		}
	}

	// stable default order keeps results deterministic across map iteration
	sort.SliceStable(idx, func(a, b int) bool {
		return rows[idx[a]].id.String() < rows[idx[b]].id.String()
	})

	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			field, desc := s.Field, s.Desc
			sort.SliceStable(idx, func(a, b int) bool {
				ta, tb := rows[idx[a]].times[field], rows[idx[b]].times[field]
				if desc {
					return ta.After(tb)
				}
				return ta.Before(tb)
			})
		case specification.Pagination:
			if s.Offset >= len(idx) {
				return nil, nil
			}
			idx = idx[s.Offset:]
			if s.Limit > 0 && s.Limit < len(idx) {
				idx = idx[:s.Limit]
			}
		}
	}
	return idx, nil
}
