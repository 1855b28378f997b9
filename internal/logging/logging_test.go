package logging

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
)

func TestNew(t *testing.T) {
	l := New("debug", "text")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	l = New("nonsense", "json")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

func TestAccessLog_Levels(t *testing.T) {
	log, hook := test.NewNullLogger()

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperr.HTTPStatus(err))
	}})
	app.Use(AccessLog(log))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return apperr.New(apperr.NotFound, "Request not found") })
	app.Get("/boom", func(c *fiber.Ctx) error { return assert.AnError })

	for path, want := range map[string]logrus.Level{
		"/ok":      logrus.InfoLevel,
		"/missing": logrus.WarnLevel,
		"/boom":    logrus.ErrorLevel,
	} {
		hook.Reset()
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()

		entry := hook.LastEntry()
		require.NotNil(t, entry, path)
		assert.Equal(t, want, entry.Level, path)
		assert.Equal(t, path, entry.Data["path"])
	}
}

func TestAccessLog_UserAndRedaction(t *testing.T) {
	log, hook := test.NewNullLogger()

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperr.HTTPStatus(err))
	}})
	app.Use(AccessLog(log))
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals(UserIDKey, "3f1c")
		return c.SendString("ok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("send code to +15551234567: timeout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "3f1c", hook.LastEntry().Data["user_id"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	_, hasUser := entry.Data["user_id"]
	assert.False(t, hasUser)
	msg, _ := entry.Data[logrus.ErrorKey].(string)
	assert.NotContains(t, msg, "5551234567")
	assert.Contains(t, msg, "[redacted phone]")
}
