package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// CreateLawyer inserts a lawyer profile. A linked user must exist (ErrForeignKey) and must not
// already own a profile (ErrDuplicate).
func (s *Store) CreateLawyer(ctx context.Context, l *models.Lawyer) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if l.UserID != nil {
			ok, err := exists(tx, &models.User{}, *l.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrForeignKey
			}
		}
		if err := tx.Create(l).Error; err != nil {
			return fmt.Errorf("insert lawyer: %w", translate(err))
		}
		return nil
	})
}

// ListLawyers returns every lawyer, best rated first.
func (s *Store) ListLawyers(ctx context.Context) ([]models.Lawyer, error) {
	out := []models.Lawyer{}
	if err := s.conn(ctx).Order("rating DESC NULLS LAST").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list lawyers: %w", err)
	}
	return out, nil
}

// GetLawyer loads a lawyer by id.
func (s *Store) GetLawyer(ctx context.Context, id uuid.UUID) (models.Lawyer, error) {
	var l models.Lawyer
	if err := s.conn(ctx).First(&l, "id = ?", id).Error; err != nil {
		return models.Lawyer{}, translate(err)
	}
	return l, nil
}
