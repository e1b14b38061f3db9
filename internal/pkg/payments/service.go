package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/paypal"
)

// Service persists accepted sale notifications.
type Service struct {
	repo Repository
}

// NewService creates a payment service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordSale stores one completed sale. processed_at is the ingestion
// instant, not the provider timestamp, and is what every window query and
// the retention sweep key on.
func (s *Service) RecordSale(ctx context.Context, sale *paypal.SaleNotification) (*models.Payment, error) {
	payment := &models.Payment{
		PaymentID:   sale.PaymentID,
		Amount:      sale.Amount,
		Currency:    sale.Currency,
		Status:      sale.State,
		CreateTime:  sale.CreateTime,
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := s.repo.Insert(ctx, payment); err != nil {
		return nil, fmt.Errorf("insert payment %s: %w", sale.PaymentID, err)
	}
	return payment, nil
}

// Repo exposes the underlying repository for components that aggregate over
// the payments table.
func (s *Service) Repo() Repository {
	return s.repo
}
