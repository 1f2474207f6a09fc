package memory

import (
	"context"
	"testing"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, studentId, clubId uuid.UUID, at time.Time) *entity.MembershipRequest {
	req, err := entity.NewMembershipRequest(studentId, clubId, "I like chess", "Ada Lovelace", "ada@example.com", "0811", at)
	require.NoError(t, err)
	return req
}

func TestStore_OptimisticVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.NewUnitOfWork(ctx).MembershipRequestRepository()

	req := newRequest(t, uuid.New(), uuid.New(), t0)
	require.NoError(t, repo.Create(ctx, req))

	first, err := repo.FindOne(ctx, specification.ByID{ID: req.Id})
	require.NoError(t, err)
	second, err := repo.FindOne(ctx, specification.ByID{ID: req.Id})
	require.NoError(t, err)

	require.NoError(t, first.Reject("full", t0))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 1, first.Version)

	amount := decimal.NewFromInt(10)
	require.NoError(t, second.Approve(&amount, "", t0))
	assert.ErrorIs(t, repo.Update(ctx, second), entity.ErrConcurrentModification)

	stored, err := repo.FindOne(ctx, specification.ByID{ID: req.Id})
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusRejected, stored.Status)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	uow := store.NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	req := newRequest(t, uuid.New(), uuid.New(), t0)
	require.NoError(t, uow.MembershipRequestRepository().Create(ctx, req))
	require.NoError(t, uow.Rollback())
	require.NoError(t, uow.Rollback())

	found, err := store.NewUnitOfWork(ctx).MembershipRequestRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStore_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	uow := NewStore().NewUnitOfWork(ctx)

	requestId := uuid.New()
	require.NoError(t, uow.PaymentRepository().Create(ctx, entity.NewPayment(requestId, decimal.NewFromInt(5), t0)))
	assert.Error(t, uow.PaymentRepository().Create(ctx, entity.NewPayment(requestId, decimal.NewFromInt(5), t0)))

	studentId, clubId := uuid.New(), uuid.New()
	first := entity.NewActiveMembership(studentId, clubId, uuid.New(), t0)
	require.NoError(t, uow.MembershipRepository().Create(ctx, first))
	assert.ErrorIs(t,
		uow.MembershipRepository().Create(ctx, entity.NewActiveMembership(studentId, clubId, uuid.New(), t0)),
		entity.ErrConcurrentModification)

	require.NoError(t, first.Remove("graduated", t0))
	require.NoError(t, uow.MembershipRepository().Update(ctx, first))
	assert.NoError(t, uow.MembershipRepository().Create(ctx, entity.NewActiveMembership(studentId, clubId, uuid.New(), t0)))

	current, err := uow.MembershipRepository().FindAll(ctx, specification.ByStudentAndClub{StudentID: studentId, ClubID: clubId}, specification.NotRemoved{})
	require.NoError(t, err)
	assert.Len(t, current, 1)
}

func TestStore_PaymentAmountIsImmutable(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().NewUnitOfWork(ctx).PaymentRepository()

	payment := entity.NewPayment(uuid.New(), decimal.NewFromInt(25), t0)
	require.NoError(t, repo.Create(ctx, payment))

	payment.Amount = decimal.NewFromInt(1)
	require.NoError(t, repo.Update(ctx, payment))

	stored, err := repo.FindOne(ctx, specification.ByID{ID: payment.Id})
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(25)))
}

func TestStore_OrderingAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().NewUnitOfWork(ctx).MembershipRequestRepository()

	studentId, clubId := uuid.New(), uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		req := newRequest(t, studentId, clubId, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, req))
		ids = append(ids, req.Id)
	}

	latest, err := repo.FindOne(ctx,
		specification.ByStudentAndClub{StudentID: studentId, ClubID: clubId},
		specification.OrderBy{Field: "request_date", Desc: true},
	)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.Id)

	page, err := repo.FindAll(ctx,
		specification.ByClub{ClubID: clubId},
		specification.OrderBy{Field: "request_date"},
		specification.Pagination{Limit: 2, Offset: 1},
	)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].Id)
	assert.Equal(t, ids[2], page[1].Id)
}

func TestSignalCache(t *testing.T) {
	c := NewSignalCache(50 * time.Millisecond)
	assert.False(t, c.Seen("p-1:success"))

	c.Remember("p-1:success")
	assert.True(t, c.Seen("p-1:success"))
	assert.False(t, c.Seen("p-1:failure"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, c.Seen("p-1:success"))
}
