package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"paymob-integration/internal/model"
)

// ErrStatusConflict is returned when a conditional status update finds
// the order no longer in the expected status. Webhook redelivery makes
// this expected traffic, not corruption.
var ErrStatusConflict = errors.New("order status changed concurrently")

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByPmOrderID(ctx context.Context, pmOrderID string) (*model.Order, error)
	// FindReusable returns the most recent order still in status new for
	// the same purchasable and user created at or after since.
	FindReusable(ctx context.Context, component, paymentArea string, itemID, userID int64, since time.Time) (*model.Order, error)
	// SetPmOrderID sets the processor order id only while unset; once
	// stored it is immutable.
	SetPmOrderID(ctx context.Context, id uint, pmOrderID string) error
	// UpdateStatusFrom transitions the status with a compare-and-swap:
	// the write applies only while the persisted status still equals
	// from, otherwise ErrStatusConflict.
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uint, from, to string) error
	SetPaymentID(ctx context.Context, tx *gorm.DB, id uint, paymentID uint) error

	AddNote(ctx context.Context, tx *gorm.DB, note *model.OrderNote) error
	// Notes returns the order's audit notes, newest first.
	Notes(ctx context.Context, orderID uint) ([]*model.OrderNote, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByPmOrderID(ctx context.Context, pmOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("pm_order_id = ?", pmOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindReusable(ctx context.Context, component, paymentArea string, itemID, userID int64, since time.Time) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where(`
			component = ?
			AND payment_area = ?
			AND item_id = ?
			AND user_id = ?
			AND status = ?
			AND created_at >= ?
		`,
			component, paymentArea, itemID, userID, model.StatusNew, since,
		).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) SetPmOrderID(ctx context.Context, id uint, pmOrderID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND (pm_order_id IS NULL OR pm_order_id = '')", id).
		Updates(map[string]interface{}{
			"pm_order_id": pmOrderID,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepoImpl) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uint, from, to string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepoImpl) SetPaymentID(ctx context.Context, tx *gorm.DB, id uint, paymentID uint) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_id": paymentID,
			"updated_at": time.Now(),
		}).Error
}

func (r *orderRepoImpl) AddNote(ctx context.Context, tx *gorm.DB, note *model.OrderNote) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(note).Error
}

func (r *orderRepoImpl) Notes(ctx context.Context, orderID uint) ([]*model.OrderNote, error) {
	var notes []*model.OrderNote
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
