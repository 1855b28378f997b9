package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/attachments"
	"github.com/aldoetobex/legal-consult-backend/internal/auth"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

func testApp() *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return newApp(deps{
		log:         log,
		store:       store.New(nil),
		tokens:      auth.NewTokens("test-secret-0123456789", time.Hour),
		bucket:      attachments.NewBucket("", "", "attachments", log),
		corsOrigins: "*",
	})
}

func TestHealth(t *testing.T) {
	resp, err := testApp().Test(httptest.NewRequest("GET", "/health", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["version"] != version {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMetricsExposed(t *testing.T) {
	resp, err := testApp().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// Every non-public route must reject a request without credentials before touching storage.
func TestProtectedRoutesRequireToken(t *testing.T) {
	app := testApp()
	routes := [][2]string{
		{"GET", "/api/auth/me"},
		{"POST", "/api/requests"},
		{"GET", "/api/requests"},
		{"GET", "/api/requests/00000000-0000-0000-0000-000000000000"},
		{"PATCH", "/api/requests/00000000-0000-0000-0000-000000000000/status"},
		{"PATCH", "/api/requests/00000000-0000-0000-0000-000000000000/assign"},
		{"DELETE", "/api/requests/00000000-0000-0000-0000-000000000000"},
		{"GET", "/api/requests/00000000-0000-0000-0000-000000000000/history"},
		{"POST", "/api/requests/00000000-0000-0000-0000-000000000000/payment"},
		{"GET", "/api/requests/00000000-0000-0000-0000-000000000000/payment"},
		{"PATCH", "/api/payments/00000000-0000-0000-0000-000000000000/status"},
		{"GET", "/api/lawyers"},
		{"POST", "/api/lawyers"},
		{"GET", "/api/lawyers/00000000-0000-0000-0000-000000000000"},
		{"PATCH", "/api/users/me"},
		{"DELETE", "/api/users/me"},
		{"POST", "/api/attachments"},
		{"GET", "/api/attachments"},
		{"GET", "/api/attachments/00000000-0000-0000-0000-000000000000/signed-url"},
	}
	for _, r := range routes {
		resp, err := app.Test(httptest.NewRequest(r[0], r[1], nil), -1)
		if err != nil {
			t.Fatalf("%s %s: %v", r[0], r[1], err)
		}
		var e models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusUnauthorized || e.Message != "Missing Authorization" {
			t.Fatalf("%s %s: expected 401 Missing Authorization, got %d %q", r[0], r[1], resp.StatusCode, e.Message)
		}
	}
}
