package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// ownerModels maps each attachment owner kind to the model holding its rows.
var ownerModels = map[models.EntityType]any{
	models.EntityUser:    &models.User{},
	models.EntityLawyer:  &models.Lawyer{},
	models.EntityRequest: &models.Request{},
	models.EntityPayment: &models.Payment{},
	models.EntityArticle: &models.Article{},
}

// OwnerExists reports whether (kind, id) names an existing row.
func (s *Store) OwnerExists(ctx context.Context, kind models.EntityType, id uuid.UUID) (bool, error) {
	m, ok := ownerModels[kind]
	if !ok {
		return false, fmt.Errorf("unknown entity type %q", kind)
	}
	return exists(s.conn(ctx), m, id)
}

// CreateAttachment records an uploaded object.
func (s *Store) CreateAttachment(ctx context.Context, a *models.Attachment) error {
	if err := s.conn(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("insert attachment: %w", translate(err))
	}
	return nil
}

// ListAttachments returns the attachments of one owner.
func (s *Store) ListAttachments(ctx context.Context, kind models.EntityType, id uuid.UUID) ([]models.Attachment, error) {
	out := []models.Attachment{}
	if err := s.conn(ctx).
		Where("entity_type = ? AND entity_id = ?", kind, id).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return out, nil
}

// GetAttachment loads an attachment by id.
func (s *Store) GetAttachment(ctx context.Context, id uuid.UUID) (models.Attachment, error) {
	var a models.Attachment
	if err := s.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return models.Attachment{}, translate(err)
	}
	return a, nil
}

// deleteAttachmentsOf removes every attachment owned by one of the listed rows and returns them.
func deleteAttachmentsOf(tx *gorm.DB, owners map[models.EntityType][]uuid.UUID) ([]models.Attachment, error) {
	var removed []models.Attachment
	for kind, ids := range owners {
		if len(ids) == 0 {
			continue
		}
		var batch []models.Attachment
		if err := tx.Where("entity_type = ? AND entity_id IN ?", kind, ids).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("collect %s attachments: %w", kind, err)
		}
		if len(batch) == 0 {
			continue
		}
		if err := tx.Where("entity_type = ? AND entity_id IN ?", kind, ids).Delete(&models.Attachment{}).Error; err != nil {
			return nil, fmt.Errorf("delete %s attachments: %w", kind, err)
		}
		removed = append(removed, batch...)
	}
	return removed, nil
}
