package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

// NewUnitOfWork returns a short lived unit; one per operation.
func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db.WithContext(ctx))
}
