package contract

import (
	"context"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error)
}
