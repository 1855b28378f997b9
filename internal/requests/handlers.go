package requests

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-consult-backend/internal/auth"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

// ===== DTOs =====

type CreateRequestBody struct {
	UserID          string `json:"user_id" validate:"omitempty,uuid"`
	Description     string `json:"description" validate:"max=5000"`
	PreferredWindow string `json:"preferred_window" validate:"max=255"`
	AssignedLawyer  string `json:"assigned_lawyer" validate:"omitempty,uuid"`
}

type StatusBody struct {
	Status string `json:"status"`
}

type AssignBody struct {
	LawyerID *string `json:"lawyer_id" validate:"omitempty,uuid"`
}

// ObjectRemover drops the stored files of removed attachments. Failures are its own concern.
type ObjectRemover interface {
	RemoveObjects(ctx context.Context, atts []models.Attachment)
}

type Handler struct {
	m     *Manager
	files ObjectRemover
}

func NewHandler(m *Manager, files ObjectRemover) *Handler {
	return &Handler{m: m, files: files}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	return id, nil
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s) // validated by the DTO
	return &id
}

func actorOf(c *fiber.Ctx) *uuid.UUID {
	if u, ok := auth.CurrentUser(c); ok {
		return &u.ID
	}
	return nil
}

// Create Request godoc
// @Summary      Create request
// @Description  Submit a consultation request; it always starts as pending. user_id defaults to the caller.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateRequestBody  true  "Request payload"
// @Success      201  {object}  models.Request
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /requests [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateRequestBody
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	in.AssignedLawyer = strings.TrimSpace(in.AssignedLawyer)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID := optionalUUID(in.UserID)
	if userID == nil {
		userID = actorOf(c)
	}
	r, err := h.m.Create(c.UserContext(), CreateInput{
		UserID:          userID,
		Description:     in.Description,
		PreferredWindow: in.PreferredWindow,
		AssignedLawyer:  optionalUUID(in.AssignedLawyer),
	}, actorOf(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// List Requests godoc
// @Summary      List requests
// @Description  Newest first, at most 100, optionally filtered by status
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "pending|assigned|calling|completed"
// @Success      200  {array}   models.Request
// @Router       /requests [get]
func (h *Handler) List(c *fiber.Ctx) error {
	rows, err := h.m.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Get Request godoc
// @Summary      Request detail
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "request id (uuid)"
// @Success      200  {object}  models.Request
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.m.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// Set Status godoc
// @Summary      Update request status
// @Description  Status comes from the query string or a JSON body {"status": "..."}
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id      path   string  true   "request id (uuid)"
// @Param        status  query  string  false  "pending|assigned|calling|completed"
// @Success      200  {object}  models.Request
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /requests/{id}/status [patch]
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	status := c.Query("status")
	if status == "" && len(c.Body()) > 0 {
		var in StatusBody
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
		status = in.Status
	}
	r, err := h.m.SetStatus(c.UserContext(), id, status, actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// Assign Lawyer godoc
// @Summary      Assign lawyer
// @Description  Set or clear (null) the assigned lawyer; status is unchanged
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string      true  "request id (uuid)"
// @Param        payload  body  AssignBody  true  "Lawyer"
// @Success      200  {object}  models.Request
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id}/assign [patch]
func (h *Handler) Assign(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AssignBody
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	var lawyerID *uuid.UUID
	if in.LawyerID != nil {
		lawyerID = optionalUUID(strings.TrimSpace(*in.LawyerID))
	}
	r, err := h.m.Assign(c.UserContext(), id, lawyerID, actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// Delete Request godoc
// @Summary      Delete request
// @Description  Removes the request with its payment, history and attachments
// @Tags         requests
// @Security     BearerAuth
// @Param        id   path string true "request id (uuid)"
// @Success      204
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	removed, err := h.m.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	if h.files != nil && len(removed) > 0 {
		h.files.RemoveObjects(c.UserContext(), removed)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Request History godoc
// @Summary      Request history
// @Description  Status changes and assignments, oldest first
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "request id (uuid)"
// @Success      200  {array}   models.RequestHistory
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id}/history [get]
func (h *Handler) History(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rows, err := h.m.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}
