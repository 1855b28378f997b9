// Package lawyers exposes the lawyer directory.
package lawyers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

var (
	ErrLawyerNotFound = apperr.New(apperr.NotFound, "Lawyer not found")
	ErrUserNotFound   = apperr.New(apperr.InvalidInput, "User does not exist")
	ErrUserLinked     = apperr.New(apperr.Conflict, "User already has a lawyer profile")
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	CreateLawyer(ctx context.Context, l *models.Lawyer) error
	ListLawyers(ctx context.Context) ([]models.Lawyer, error)
	GetLawyer(ctx context.Context, id uuid.UUID) (models.Lawyer, error)
}

// ===== DTOs =====

type CreateLawyerRequest struct {
	UserID       string          `json:"user_id" validate:"omitempty,uuid"`
	Specialties  []string        `json:"specialties" validate:"max=20,dive,required,max=100"`
	Rating       *float64        `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Availability json.RawMessage `json:"availability" swaggertype:"object"`
}

type Handler struct{ s Store }

func NewHandler(s Store) *Handler { return &Handler{s: s} }

// Create Lawyer godoc
// @Summary      Create lawyer
// @Description  Add a lawyer profile, optionally linked to an existing user (one profile per user)
// @Tags         lawyers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateLawyerRequest  true  "Lawyer"
// @Success      201  {object}  models.Lawyer
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /lawyers [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateLawyerRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	for i := range in.Specialties {
		in.Specialties[i] = strings.TrimSpace(in.Specialties[i])
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	l := models.Lawyer{
		Specialties: pq.StringArray(in.Specialties),
		Rating:      in.Rating,
	}
	if l.Specialties == nil {
		l.Specialties = pq.StringArray{}
	}
	if in.UserID != "" {
		id := uuid.MustParse(in.UserID) // validated above
		l.UserID = &id
	}
	if raw := bytes.TrimSpace(in.Availability); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		l.Availability = datatypes.JSON(raw)
	}

	switch err := h.s.CreateLawyer(c.UserContext(), &l); {
	case errors.Is(err, store.ErrForeignKey):
		return ErrUserNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrUserLinked
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(l)
}

// List Lawyers godoc
// @Summary      List lawyers
// @Description  Best rated first
// @Tags         lawyers
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Lawyer
// @Router       /lawyers [get]
func (h *Handler) List(c *fiber.Ctx) error {
	rows, err := h.s.ListLawyers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Get Lawyer godoc
// @Summary      Lawyer detail
// @Tags         lawyers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "lawyer id (uuid)"
// @Success      200  {object}  models.Lawyer
// @Failure      404  {object}  models.ErrorResponse
// @Router       /lawyers/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}
	l, err := h.s.GetLawyer(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrLawyerNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(l)
}
