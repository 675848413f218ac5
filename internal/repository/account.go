package repository

import (
	"context"

	"gorm.io/gorm"

	"paymob-integration/internal/model"
)

type AccountRepository interface {
	Get(ctx context.Context, id uint) (*model.GatewayAccount, error)
	Upsert(ctx context.Context, account *model.GatewayAccount) error
}

type accountRepoImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepoImpl{db: db}
}

func (r *accountRepoImpl) Get(ctx context.Context, id uint) (*model.GatewayAccount, error) {
	var account model.GatewayAccount
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepoImpl) Upsert(ctx context.Context, account *model.GatewayAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}
