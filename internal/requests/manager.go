// Package requests owns the consultation request lifecycle: creation, status changes,
// lawyer assignment and removal.
package requests

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/metrics"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// ListLimit caps every listing.
const ListLimit = 100

var (
	ErrRequestNotFound   = apperr.New(apperr.NotFound, "Request not found")
	ErrInvalidStatus     = apperr.New(apperr.InvalidInput, "Invalid status")
	ErrInvalidTransition = apperr.New(apperr.Conflict, "Status transition not allowed")
	ErrLawyerNotFound    = apperr.New(apperr.InvalidInput, "Assigned lawyer does not exist")
	ErrUserNotFound      = apperr.New(apperr.InvalidInput, "User does not exist")
)

// Repository is the persistence the manager needs. *store.Store implements it.
type Repository interface {
	CreateRequest(ctx context.Context, r *models.Request, actor *uuid.UUID) error
	GetRequest(ctx context.Context, id uuid.UUID) (models.Request, error)
	ListRequests(ctx context.Context, status *models.RequestStatus, limit int) ([]models.Request, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, to models.RequestStatus, actor *uuid.UUID, check store.CheckFunc) (models.Request, error)
	AssignRequest(ctx context.Context, id uuid.UUID, lawyerID *uuid.UUID, actor *uuid.UUID) (models.Request, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) ([]models.Attachment, error)
	RequestHistory(ctx context.Context, id uuid.UUID) ([]models.RequestHistory, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	LawyerExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateInput carries the caller-supplied fields of a new request.
type CreateInput struct {
	UserID          *uuid.UUID
	Description     string
	PreferredWindow string
	AssignedLawyer  *uuid.UUID
}

// Manager applies lifecycle rules on top of a Repository.
type Manager struct {
	repo   Repository
	policy Policy
	log    logrus.FieldLogger
}

// NewManager uses Permissive when policy is nil.
func NewManager(repo Repository, policy Policy, log logrus.FieldLogger) *Manager {
	if policy == nil {
		policy = Permissive
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{repo: repo, policy: policy, log: log}
}

// Create stores a new pending request. Referenced user and lawyer must exist.
func (m *Manager) Create(ctx context.Context, in CreateInput, actor *uuid.UUID) (models.Request, error) {
	if in.UserID != nil {
		ok, err := m.repo.UserExists(ctx, *in.UserID)
		if err != nil {
			return models.Request{}, err
		}
		if !ok {
			return models.Request{}, ErrUserNotFound
		}
	}
	if in.AssignedLawyer != nil {
		ok, err := m.repo.LawyerExists(ctx, *in.AssignedLawyer)
		if err != nil {
			return models.Request{}, err
		}
		if !ok {
			return models.Request{}, ErrLawyerNotFound
		}
	}

	r := models.Request{
		UserID:          in.UserID,
		Description:     optional(in.Description),
		PreferredWindow: optional(in.PreferredWindow),
		Status:          models.RequestPending,
		AssignedLawyer:  in.AssignedLawyer,
	}
	if err := m.repo.CreateRequest(ctx, &r, actor); err != nil {
		if errors.Is(err, store.ErrForeignKey) {
			// a referenced row vanished after the checks above
			if in.AssignedLawyer != nil {
				return models.Request{}, ErrLawyerNotFound
			}
			return models.Request{}, ErrUserNotFound
		}
		return models.Request{}, err
	}
	return r, nil
}

// Get loads one request.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (models.Request, error) {
	r, err := m.repo.GetRequest(ctx, id)
	return r, notFound(err)
}

// List returns at most ListLimit requests, newest first. An empty filter lists every status;
// any other value is matched exactly, so an unknown status simply matches nothing.
func (m *Manager) List(ctx context.Context, status string) ([]models.Request, error) {
	var filter *models.RequestStatus
	if st := models.RequestStatus(strings.TrimSpace(status)); st != "" {
		filter = &st
	}
	return m.repo.ListRequests(ctx, filter, ListLimit)
}

// SetStatus moves a request to status. The value is validated before anything is written;
// the policy is checked against the locked row.
func (m *Manager) SetStatus(ctx context.Context, id uuid.UUID, status string, actor *uuid.UUID) (models.Request, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return models.Request{}, err
	}

	var from models.RequestStatus
	r, err := m.repo.UpdateRequestStatus(ctx, id, to, actor, func(cur, next models.RequestStatus) error {
		from = cur
		return m.policy(cur, next)
	})
	if err != nil {
		return models.Request{}, notFound(err)
	}

	metrics.RecordTransition(string(from), string(to))
	m.log.WithFields(logrus.Fields{
		"request_id": id,
		"from":       from,
		"to":         to,
	}).Info("request status changed")
	return r, nil
}

// Assign sets or clears the assigned lawyer without touching the status.
func (m *Manager) Assign(ctx context.Context, id uuid.UUID, lawyerID *uuid.UUID, actor *uuid.UUID) (models.Request, error) {
	r, err := m.repo.AssignRequest(ctx, id, lawyerID, actor)
	if errors.Is(err, store.ErrForeignKey) {
		return models.Request{}, ErrLawyerNotFound
	}
	return r, notFound(err)
}

// Delete removes the request and its payment. The removed attachments are returned.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) ([]models.Attachment, error) {
	removed, err := m.repo.DeleteRequest(ctx, id)
	return removed, notFound(err)
}

// History returns the audit trail of an existing request.
func (m *Manager) History(ctx context.Context, id uuid.UUID) ([]models.RequestHistory, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.repo.RequestHistory(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRequestNotFound
	}
	return err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
