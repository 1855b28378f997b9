// Package users lets the authenticated caller manage their own account.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/auth"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	UpdateUser(ctx context.Context, id uuid.UUID, p store.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) ([]models.Attachment, error)
}

// ObjectRemover drops the stored files of removed attachments.
type ObjectRemover interface {
	RemoveObjects(ctx context.Context, atts []models.Attachment)
}

// ===== DTOs =====

type UpdateMeRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=120"`
	Email *string `json:"email" validate:"omitempty,email,max=120"`
	Role  *string `json:"role" validate:"omitempty,role"`
}

type Handler struct {
	s     Store
	files ObjectRemover
	log   logrus.FieldLogger
}

func NewHandler(s Store, files ObjectRemover, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{s: s, files: files, log: log}
}

// Update Me godoc
// @Summary      Update profile
// @Description  Change name, email or role of the caller; omitted fields stay as they are
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  UpdateMeRequest  true  "Profile"
// @Success      200  {object}  models.User
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /users/me [patch]
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	me := auth.MustUser(c)

	var in UpdateMeRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	trim(in.Name)
	trim(in.Email)
	trim(in.Role)
	if in.Role != nil && *in.Role == "" {
		in.Role = nil
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	patch := store.UserPatch{Name: in.Name, Email: in.Email}
	if in.Role != nil {
		r := models.Role(*in.Role)
		patch.Role = &r
	}
	u, err := h.s.UpdateUser(c.UserContext(), me.ID, patch)
	if errors.Is(err, store.ErrNotFound) {
		return auth.ErrPrincipalNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// Delete Me godoc
// @Summary      Delete account
// @Description  Removes the caller with their requests, payments, history and attachments
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  models.ErrorResponse
// @Router       /users/me [delete]
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	me := auth.MustUser(c)

	removed, err := h.s.DeleteUser(c.UserContext(), me.ID)
	if errors.Is(err, store.ErrNotFound) {
		return auth.ErrPrincipalNotFound
	}
	if err != nil {
		return err
	}

	h.log.WithFields(logrus.Fields{
		"user_id":     me.ID,
		"attachments": len(removed),
	}).Info("user deleted")

	if h.files != nil && len(removed) > 0 {
		h.files.RemoveObjects(c.UserContext(), removed)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
