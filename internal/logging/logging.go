// Package logging configures the process-wide logrus logger and the Fiber access log.
package logging

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/pkg/sanitize"
)

// UserIDKey is the fiber local holding the authenticated user's id as a string.
const UserIDKey = "userID"

// New builds a logger from level ("debug", "info", ...) and format ("json" or "text").
func New(level, format string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return log
}

// RedactedError is err's message with phone numbers masked, for log fields.
func RedactedError(err error) string {
	if err == nil {
		return ""
	}
	return sanitize.RedactPhones(err.Error())
}

// AccessLog writes one entry per HTTP request. Server errors are logged at error level.
// The user id is added once authentication has set UserIDKey.
func AccessLog(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperr.HTTPStatus(err)
		}

		entry := log.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		})
		if id, ok := c.Locals(UserIDKey).(string); ok && id != "" {
			entry = entry.WithField("user_id", id)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			if err != nil {
				entry = entry.WithField(logrus.ErrorKey, RedactedError(err))
			}
			entry.Error("request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
		return err
	}
}
