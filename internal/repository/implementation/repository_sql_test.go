package implementation

import (
	"context"
	"testing"
	"time"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPaymentRepository_UpdateBumpsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	ref := "ref-1"
	payment := &entity.Payment{Id: uuid.New(), Status: entity.PaymentStatusPending, GatewayRef: &ref, Attempts: 1, Version: 2}

	mock.ExpectExec(`UPDATE "payments" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), payment))
	assert.Equal(t, 3, payment.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpdateDetectsStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	payment := &entity.Payment{Id: uuid.New(), Status: entity.PaymentStatusPaid, Version: 4}

	mock.ExpectExec(`UPDATE "payments" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), payment)
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)
	assert.Equal(t, 4, payment.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FindOneForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	id, requestId := uuid.New(), uuid.New()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "request_id", "status", "amount", "method", "attempts", "version", "created_at", "updated_at"}).
		AddRow(id.String(), requestId.String(), "pending", "7500.00", "", 1, 2, now, now)

	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	payment, err := repo.FindOne(context.Background(), specification.ByID{ID: id}, specification.ForUpdate{})
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	assert.Equal(t, "7500", payment.Amount.String())
	assert.Equal(t, requestId, payment.RequestId)
	assert.Equal(t, 2, payment.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FindOneMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payment, err := repo.FindOne(context.Background(), specification.ByID{ID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, payment)
}

func TestMembershipRequestRepository_StaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMembershipRequestRepository(db)

	request := &entity.MembershipRequest{Id: uuid.New(), Status: entity.RequestStatusRejected, Note: "full", Version: 0}

	mock.ExpectExec(`UPDATE "membership_requests" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), request), entity.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}
