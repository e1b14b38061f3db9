package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

// WindowAggregate is the count and amount sum of payments processed inside
// one rolling window. Zero-valued when no rows match.
type WindowAggregate struct {
	Count int64
	Sum   float64
}

// Repository provides the DB operations of the payment store. The payments
// table is owned exclusively by this package; nothing else writes to it.
type Repository interface {
	Insert(ctx context.Context, payment *models.Payment) (uint, error)
	QueryWindow(ctx context.Context, since time.Time) (WindowAggregate, error)
	DeleteOlderThan(ctx context.Context, horizon time.Time) error
}

// statementTimeout bounds how long a statement may wait for a pooled
// connection. Exhaustion past this limit surfaces as a storage error
// instead of a hung request.
const statementTimeout = 10 * time.Second

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Insert(ctx context.Context, payment *models.Payment) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return 0, err
	}
	return payment.ID, nil
}

func (r *gormRepository) QueryWindow(ctx context.Context, since time.Time) (WindowAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	var agg WindowAggregate
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Where("processed_at > ?", since).
		Scan(&agg).Error
	return agg, err
}

func (r *gormRepository) DeleteOlderThan(ctx context.Context, horizon time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	// Strictly before the horizon; a row exactly at the horizon is retained.
	return r.db.WithContext(ctx).
		Where("processed_at < ?", horizon).
		Delete(&models.Payment{}).Error
}
