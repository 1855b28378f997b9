package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// UserLookup loads the principal named by a token.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Resolver turns an Authorization header into the current user.
type Resolver struct {
	tokens *Tokens
	users  UserLookup
}

func NewResolver(tokens *Tokens, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve strips the Bearer scheme, verifies the token and loads its user.
func (r *Resolver) Resolve(ctx context.Context, header string) (models.User, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return models.User{}, err
	}
	claims, err := r.tokens.Parse(raw)
	if err != nil {
		return models.User{}, err
	}
	id, _ := claims.UserID() // validated by Parse

	u, err := r.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrPrincipalNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

/* ============================== Middleware ============================== */

const localUser = "user"

// RequireAuth resolves the bearer token and stores the user in the request context.
func RequireAuth(r *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := r.Resolve(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		SetUser(c, u)
		return c.Next()
	}
}

// SetUser stores u as the authenticated user. Tests use it in place of a real token.
func SetUser(c *fiber.Ctx, u models.User) {
	c.Locals(localUser, u)
	c.Locals(logging.UserIDKey, u.ID.String())
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	u, ok := c.Locals(localUser).(models.User)
	return u, ok
}

// MustUser reads the authenticated user from context or panics (programming error).
func MustUser(c *fiber.Ctx) models.User {
	u, ok := CurrentUser(c)
	if !ok {
		panic(errors.New("user not in context"))
	}
	return u
}

/* =========================== Error Formatting =========================== */

// httpCodeToString converts an HTTP status code to a short, stable string.
func httpCodeToString(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorHandler is the global Fiber error handler. Classified errors keep their message;
// anything unclassified becomes an opaque 500 and is logged.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := apperr.HTTPStatus(err)
		msg := fiber.ErrInternalServerError.Message

		var fe *fiber.Error
		var ae *apperr.Error
		explicit := false
		switch {
		case errors.As(err, &fe):
			if strings.TrimSpace(fe.Message) != "" {
				msg = fe.Message
			}
			explicit = fe.Code != fiber.StatusInternalServerError
		case errors.As(err, &ae):
			msg = ae.Message
		}
		if code >= fiber.StatusInternalServerError && !explicit {
			msg = fiber.ErrInternalServerError.Message
			log.WithFields(logrus.Fields{
				logrus.ErrorKey: logging.RedactedError(err),
				"path":          c.Path(),
			}).Error("unhandled error")
		}

		return c.Status(code).JSON(models.ErrorResponse{
			Code:    httpCodeToString(code),
			Error:   true,
			Message: msg,
		})
	}
}
