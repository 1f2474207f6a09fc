package contract

import (
	"context"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"
)

type MembershipRequestRepository interface {
	Create(ctx context.Context, request *entity.MembershipRequest) error
	// Update persists the request if its version is unchanged and bumps it.
	Update(ctx context.Context, request *entity.MembershipRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipRequest, error)
}
