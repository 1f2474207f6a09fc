package contract

import (
	"context"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *entity.Membership) error
	Update(ctx context.Context, membership *entity.Membership) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Membership, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Membership, error)
}
