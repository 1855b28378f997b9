// Package payments records payment outcomes for requests. Nothing here talks to a payment
// provider; the status is whatever the caller reports.
package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/requests"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

var (
	ErrPaymentNotFound  = apperr.New(apperr.NotFound, "Payment not found")
	ErrPaymentExists    = apperr.New(apperr.Conflict, "Payment already recorded for this request")
	ErrInvalidPayStatus = apperr.New(apperr.InvalidInput, "Invalid payment status")
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentByRequest(ctx context.Context, requestID uuid.UUID) (models.Payment, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PayStatus) (models.Payment, error)
}

// ===== DTOs =====

type CreatePaymentRequest struct {
	ProviderRef string `json:"provider_ref" validate:"max=255"`
	Amount      string `json:"amount" validate:"omitempty,amount"`
	Status      string `json:"status" validate:"omitempty,oneof=pending paid failed"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type Handler struct{ s Store }

func NewHandler(s Store) *Handler { return &Handler{s: s} }

func parseUUID(c *fiber.Ctx, param, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

// ========== Record payment ==========

// Create Payment godoc
// @Summary      Record payment
// @Description  Record the payment of a request (one per request). Amount defaults to 300.00.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "request id (uuid)"
// @Param        payload  body  CreatePaymentRequest  true  "Payment"
// @Success      201  {object}  models.Payment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /requests/{id}/payment [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	requestID, err := parseUUID(c, "id", "request")
	if err != nil {
		return err
	}
	var in CreatePaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
	}
	in.Amount = strings.TrimSpace(in.Amount)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	p := models.Payment{
		RequestID: &requestID,
		Amount:    models.DefaultPaymentAmount,
		Status:    models.PayPending,
	}
	if in.Amount != "" {
		p.Amount = in.Amount
	}
	if in.Status != "" {
		p.Status = models.PayStatus(in.Status)
	}
	if ref := strings.TrimSpace(in.ProviderRef); ref != "" {
		p.ProviderRef = &ref
	}

	switch err := h.s.CreatePayment(c.UserContext(), &p); {
	case errors.Is(err, store.ErrNotFound):
		return requests.ErrRequestNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrPaymentExists
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Get Payment godoc
// @Summary      Payment of a request
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "request id (uuid)"
// @Success      200  {object}  models.Payment
// @Failure      404  {object}  models.ErrorResponse
// @Router       /requests/{id}/payment [get]
func (h *Handler) GetByRequest(c *fiber.Ctx) error {
	requestID, err := parseUUID(c, "id", "request")
	if err != nil {
		return err
	}
	p, err := h.s.PaymentByRequest(c.UserContext(), requestID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// ========== Record outcome ==========

// Set Payment Status godoc
// @Summary      Update payment status
// @Description  Record the outcome reported by the payment provider (pending|paid|failed)
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "payment id (uuid)"
// @Param        payload  body  StatusRequest  true  "Status"
// @Success      200  {object}  models.Payment
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /payments/{id}/status [patch]
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id", "payment")
	if err != nil {
		return err
	}
	var in StatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	status := models.PayStatus(strings.TrimSpace(in.Status))
	if !status.Valid() {
		return ErrInvalidPayStatus
	}

	p, err := h.s.SetPaymentStatus(c.UserContext(), id, status)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(p)
}
