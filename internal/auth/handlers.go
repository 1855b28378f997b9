package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/legal-consult-backend/internal/otp"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-consult-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /auth/request-code
type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// Request body for /auth/verify
type VerifyRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code"`
}

// codes longer than this are never issued
const maxCodeLen = 16

// Standard auth response
type AuthResponse struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

/* ============================== Handler ================================= */

type Handler struct {
	codes  *otp.Authenticator
	tokens *Tokens
}

func NewHandler(codes *otp.Authenticator, tokens *Tokens) *Handler {
	return &Handler{codes: codes, tokens: tokens}
}

/* ============================ Request Code ============================== */

// @Summary      Request a one-time code
// @Description  Issue a 6-digit code for the phone; any earlier code stops working
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  RequestCodeRequest  true  "Phone"
// @Success      200      {object}  models.AckResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Router       /auth/request-code [post]
func (h *Handler) RequestCode(c *fiber.Ctx) error {
	var in RequestCodeRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Phone = sanitize.NormalizePhone(in.Phone)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	if err := h.codes.Issue(c.UserContext(), in.Phone); err != nil {
		return err
	}
	return c.JSON(models.AckResponse{OK: true})
}

/* ================================ Verify ================================ */

// @Summary      Verify a one-time code
// @Description  Exchange a valid code for a bearer token; creates the user on first login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  VerifyRequest  true  "Phone and code"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ErrorResponse  "Invalid or expired code"
// @Router       /auth/verify [post]
func (h *Handler) Verify(c *fiber.Ctx) error {
	var in VerifyRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Phone = sanitize.NormalizePhone(in.Phone)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" || len(in.Code) > maxCodeLen {
		return otp.ErrInvalidOrExpiredCode
	}

	u, err := h.codes.Verify(c.UserContext(), in.Phone, in.Code)
	if err != nil {
		return err
	}

	sum := u.Summary()
	token, err := h.tokens.Issue(sum.ID, sum.Phone)
	if err != nil {
		return err
	}
	return c.JSON(AuthResponse{Token: token, User: sum})
}

/* ================================= Me =================================== */

// @Summary      Current user
// @Description  Identity bound to the bearer token
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.UserSummary
// @Failure      401  {object}  models.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	u, ok := CurrentUser(c)
	if !ok {
		return ErrMissingCredential
	}
	return c.JSON(u.Summary())
}
