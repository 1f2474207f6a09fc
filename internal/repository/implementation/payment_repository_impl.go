package implementation

import (
	"context"
	"errors"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/mapper"
	"club-membership-be/internal/model"
	"club-membership-be/internal/repository/contract"
	"club-membership-be/internal/repository/specification"

	"gorm.io/gorm"
)

type PaymentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MembershipMapper
}

func NewPaymentRepository(db *gorm.DB) contract.PaymentRepository {
	return &PaymentRepositoryImpl{
		db:     db,
		mapper: mapper.NewMembershipMapper(),
	}
}

func (r *PaymentRepositoryImpl) Create(ctx context.Context, payment *entity.Payment) error {
	m := r.mapper.PaymentToModel(payment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*payment = *r.mapper.PaymentToEntity(m)
	return nil
}

// Update never touches amount or request_id; both are fixed at creation.
func (r *PaymentRepositoryImpl) Update(ctx context.Context, payment *entity.Payment) error {
	m := r.mapper.PaymentToModel(payment)
	version, err := updateVersioned(ctx, r.db, &model.Payment{}, payment.Id, payment.Version, map[string]interface{}{
		"status":          m.Status,
		"paid_date":       m.PaidDate,
		"method":          m.Method,
		"gateway_ref":     m.GatewayRef,
		"checkout_url":    m.CheckoutUrl,
		"attempts":        m.Attempts,
		"gateway_payload": m.GatewayPayload,
	})
	if err != nil {
		return err
	}
	payment.Version = version
	return nil
}

func (r *PaymentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	var m model.Payment
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PaymentToEntity(&m), nil
}

func (r *PaymentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	var models []*model.Payment
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Payment, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PaymentToEntity(m)
	}
	return entities, nil
}
