package repository

import (
	"context"

	"gorm.io/gorm"

	"paymob-integration/internal/model"
)

// PayableRepository looks up what a component/area/item triple costs.
type PayableRepository interface {
	Find(ctx context.Context, component, paymentArea string, itemID int64) (*model.PayableItem, error)
	Upsert(ctx context.Context, item *model.PayableItem) error
}

type payableRepoImpl struct {
	db *gorm.DB
}

func NewPayableRepository(db *gorm.DB) PayableRepository {
	return &payableRepoImpl{db: db}
}

func (r *payableRepoImpl) Find(ctx context.Context, component, paymentArea string, itemID int64) (*model.PayableItem, error) {
	var item model.PayableItem
	err := r.db.WithContext(ctx).
		Where("component = ? AND payment_area = ? AND item_id = ?", component, paymentArea, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *payableRepoImpl) Upsert(ctx context.Context, item *model.PayableItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}
