package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// FindOrCreateByPhone returns the user owning phone, inserting it on first sight.
// Concurrent first logins for the same phone converge on one row.
func (s *Store) FindOrCreateByPhone(ctx context.Context, phone string) (models.User, error) {
	role := models.RoleUser
	u := models.User{Phone: &phone, Role: &role}

	db := s.conn(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&u).Error; err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	var out models.User
	if err := db.First(&out, "phone = ?", phone).Error; err != nil {
		return models.User{}, fmt.Errorf("load user: %w", translate(err))
	}
	return out, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

// UserExists reports whether id names a user.
func (s *Store) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(s.conn(ctx), &models.User{}, id)
}

// UserPatch holds the profile fields a user may change; nil means unchanged.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *models.Role
}

// UpdateUser applies p and returns the stored row.
func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, p UserPatch) (models.User, error) {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.Role != nil {
		updates["role"] = string(*p.Role)
	}

	var u models.User
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return tx.First(&u, "id = ?", id).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// DeleteUser physically removes the user with its requests, their payments and history,
// and every attachment pointing at one of those rows. A linked lawyer profile is kept and
// unlinked. Nothing is removed unless everything is. The removed attachments are returned so
// the caller can drop the stored objects.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) ([]models.Attachment, error) {
	var removed []models.Attachment
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		var requestIDs []uuid.UUID
		if err := tx.Model(&models.Request{}).Where("user_id = ?", id).Pluck("id", &requestIDs).Error; err != nil {
			return fmt.Errorf("collect requests: %w", err)
		}
		var paymentIDs []uuid.UUID
		if len(requestIDs) > 0 {
			if err := tx.Model(&models.Payment{}).Where("request_id IN ?", requestIDs).Pluck("id", &paymentIDs).Error; err != nil {
				return fmt.Errorf("collect payments: %w", err)
			}
		}

		owners := map[models.EntityType][]uuid.UUID{
			models.EntityUser:    {id},
			models.EntityRequest: requestIDs,
			models.EntityPayment: paymentIDs,
		}
		var err error
		if removed, err = deleteAttachmentsOf(tx, owners); err != nil {
			return err
		}

		if len(requestIDs) > 0 {
			if err := deleteRequestRows(tx, requestIDs); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Lawyer{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("unlink lawyer: %w", err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// deleteRequestRows removes requests and everything hanging off them.
func deleteRequestRows(tx *gorm.DB, ids []uuid.UUID) error {
	if err := tx.Where("request_id IN ?", ids).Delete(&models.Payment{}).Error; err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if err := tx.Where("request_id IN ?", ids).Delete(&models.RequestHistory{}).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Request{}).Error; err != nil {
		return fmt.Errorf("delete requests: %w", err)
	}
	return nil
}
