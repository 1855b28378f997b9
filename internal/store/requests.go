package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// History actions.
const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
	ActionAssigned      = "assigned"
	ActionUnassigned    = "unassigned"
)

// CheckFunc vets a status change against the row's current status while the row is locked.
// A non-nil error aborts the transaction and is returned unchanged.
type CheckFunc func(from, to models.RequestStatus) error

// CreateRequest inserts r and its creation history row.
func (s *Store) CreateRequest(ctx context.Context, r *models.Request, actor *uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("insert request: %w", translate(err))
		}
		return writeHistory(tx, r.ID, actor, ActionCreated, "", r.Status)
	})
}

// GetRequest loads a request by id.
func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (models.Request, error) {
	var r models.Request
	if err := s.conn(ctx).First(&r, "id = ?", id).Error; err != nil {
		return models.Request{}, translate(err)
	}
	return r, nil
}

// ListRequests returns up to limit requests, newest first, optionally of one status.
func (s *Store) ListRequests(ctx context.Context, status *models.RequestStatus, limit int) ([]models.Request, error) {
	q := s.conn(ctx).Model(&models.Request{}).Order("created_at DESC").Limit(limit)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	out := make([]models.Request, 0, limit)
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// UpdateRequestStatus locks the row, runs check, then writes the new status and a history row.
// Concurrent updates of the same request are serialised by the row lock.
func (s *Store) UpdateRequestStatus(ctx context.Context, id uuid.UUID, to models.RequestStatus, actor *uuid.UUID, check CheckFunc) (models.Request, error) {
	var r models.Request
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		from := r.Status
		if check != nil {
			if err := check(from, to); err != nil {
				return err
			}
		}
		if err := tx.Model(&r).Update("status", to).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		r.Status = to
		return writeHistory(tx, r.ID, actor, ActionStatusChanged, from, to)
	})
	if err != nil {
		return models.Request{}, err
	}
	return r, nil
}

// AssignRequest sets or clears the assigned lawyer. Status is left alone.
func (s *Store) AssignRequest(ctx context.Context, id uuid.UUID, lawyerID *uuid.UUID, actor *uuid.UUID) (models.Request, error) {
	var r models.Request
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if lawyerID != nil {
			ok, err := exists(tx, &models.Lawyer{}, *lawyerID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrForeignKey
			}
		}
		if err := tx.Model(&r).Update("assigned_lawyer", lawyerID).Error; err != nil {
			return fmt.Errorf("assign lawyer: %w", err)
		}
		r.AssignedLawyer = lawyerID

		action := ActionAssigned
		if lawyerID == nil {
			action = ActionUnassigned
		}
		return writeHistory(tx, r.ID, actor, action, r.Status, r.Status)
	})
	if err != nil {
		return models.Request{}, err
	}
	return r, nil
}

// DeleteRequest removes the request, its payment, its history and their attachments.
func (s *Store) DeleteRequest(ctx context.Context, id uuid.UUID) ([]models.Attachment, error) {
	var removed []models.Attachment
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		var paymentIDs []uuid.UUID
		if err := tx.Model(&models.Payment{}).Where("request_id = ?", id).Pluck("id", &paymentIDs).Error; err != nil {
			return fmt.Errorf("collect payments: %w", err)
		}
		var err error
		removed, err = deleteAttachmentsOf(tx, map[models.EntityType][]uuid.UUID{
			models.EntityRequest: {id},
			models.EntityPayment: paymentIDs,
		})
		if err != nil {
			return err
		}
		return deleteRequestRows(tx, []uuid.UUID{id})
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RequestHistory returns the audit trail of a request, oldest first.
func (s *Store) RequestHistory(ctx context.Context, id uuid.UUID) ([]models.RequestHistory, error) {
	var out []models.RequestHistory
	if err := s.conn(ctx).Where("request_id = ?", id).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return out, nil
}

// LawyerExists reports whether id names a lawyer.
func (s *Store) LawyerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(s.conn(ctx), &models.Lawyer{}, id)
}

func writeHistory(tx *gorm.DB, requestID uuid.UUID, actor *uuid.UUID, action string, from, to models.RequestStatus) error {
	h := models.RequestHistory{
		RequestID: requestID,
		ActorID:   actor,
		Action:    action,
		OldStatus: from,
		NewStatus: to,
	}
	if err := tx.Create(&h).Error; err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
