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

type MembershipRequestRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MembershipMapper
}

func NewMembershipRequestRepository(db *gorm.DB) contract.MembershipRequestRepository {
	return &MembershipRequestRepositoryImpl{
		db:     db,
		mapper: mapper.NewMembershipMapper(),
	}
}

func (r *MembershipRequestRepositoryImpl) Create(ctx context.Context, request *entity.MembershipRequest) error {
	m := r.mapper.RequestToModel(request)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*request = *r.mapper.RequestToEntity(m)
	return nil
}

func (r *MembershipRequestRepositoryImpl) Update(ctx context.Context, request *entity.MembershipRequest) error {
	version, err := updateVersioned(ctx, r.db, &model.MembershipRequest{}, request.Id, request.Version, map[string]interface{}{
		"status":     string(request.Status),
		"payment_id": request.PaymentId,
		"amount":     request.Amount,
		"note":       request.Note,
		"decided_at": request.DecidedAt,
	})
	if err != nil {
		return err
	}
	request.Version = version
	return nil
}

func (r *MembershipRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MembershipRequest, error) {
	var m model.MembershipRequest
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RequestToEntity(&m), nil
}

func (r *MembershipRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MembershipRequest, error) {
	var models []*model.MembershipRequest
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MembershipRequest, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RequestToEntity(m)
	}
	return entities, nil
}
