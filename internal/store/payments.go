package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// CreatePayment records a payment for an existing request. A request has at most one payment;
// a second one fails with ErrDuplicate, a missing request with ErrNotFound.
func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, "id = ?", p.RequestID).Error; err != nil {
			return translate(err)
		}
		var n int64
		if err := tx.Model(&models.Payment{}).Where("request_id = ?", r.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		if n > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", translate(err))
		}
		return nil
	})
}

// PaymentByRequest loads the payment attached to a request.
func (s *Store) PaymentByRequest(ctx context.Context, requestID uuid.UUID) (models.Payment, error) {
	var p models.Payment
	if err := s.conn(ctx).First(&p, "request_id = ?", requestID).Error; err != nil {
		return models.Payment{}, translate(err)
	}
	return p, nil
}

// SetPaymentStatus records the outcome reported for a payment.
func (s *Store) SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PayStatus) (models.Payment, error) {
	var p models.Payment
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&p).Update("status", status).Error; err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return models.Payment{}, err
	}
	return p, nil
}
