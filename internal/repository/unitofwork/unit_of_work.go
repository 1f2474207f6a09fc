package unitofwork

import (
	"context"

	"club-membership-be/internal/repository/contract"
)

// UnitOfWork scopes repositories to one optional transaction. Repositories
// obtained after Begin run inside the transaction until Commit or Rollback.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	MembershipRequestRepository() contract.MembershipRequestRepository
	PaymentRepository() contract.PaymentRepository
	MembershipRepository() contract.MembershipRepository
}
