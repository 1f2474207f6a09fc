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

type MembershipRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MembershipMapper
}

func NewMembershipRepository(db *gorm.DB) contract.MembershipRepository {
	return &MembershipRepositoryImpl{
		db:     db,
		mapper: mapper.NewMembershipMapper(),
	}
}

func (r *MembershipRepositoryImpl) Create(ctx context.Context, membership *entity.Membership) error {
	m := r.mapper.MembershipToModel(membership)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entity.ErrConcurrentModification
		}
		return err
	}
	*membership = *r.mapper.MembershipToEntity(m)
	return nil
}

func (r *MembershipRepositoryImpl) Update(ctx context.Context, membership *entity.Membership) error {
	version, err := updateVersioned(ctx, r.db, &model.Membership{}, membership.Id, membership.Version, map[string]interface{}{
		"status":            string(membership.Status),
		"join_date":         membership.JoinDate,
		"note":              membership.Note,
		"status_changed_at": membership.StatusChangedAt,
	})
	if err != nil {
		return err
	}
	membership.Version = version
	return nil
}

func (r *MembershipRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Membership, error) {
	var m model.Membership
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MembershipToEntity(&m), nil
}

func (r *MembershipRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Membership, error) {
	var models []*model.Membership
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Membership, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MembershipToEntity(m)
	}
	return entities, nil
}
