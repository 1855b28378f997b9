package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/internal/otp"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

// memUsers is an in-memory user table keyed by phone.
type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uuid.UUID]models.User{}} }

func (m *memUsers) FindOrCreateByPhone(_ context.Context, phone string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Phone != nil && *u.Phone == phone {
			return u, nil
		}
	}
	p := phone
	u := models.User{ID: uuid.New(), Phone: &p}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) delete(id uuid.UUID) {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
}

// lastCode records the most recent code per phone instead of sending it.
type lastCode struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *lastCode) SendOTP(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[phone] = code
	return nil
}

func (n *lastCode) get(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[phone]
}

type testEnv struct {
	app   *fiber.App
	users *memUsers
	sent  *lastCode
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)

	users := newMemUsers()
	sent := &lastCode{codes: map[string]string{}}
	codes := otp.NewAuthenticator(otp.NewMemoryStore(), users, sent,
		otp.WithHashCost(4), otp.WithLogger(quiet))
	tokens := NewTokens(testSecret, time.Hour)
	h := NewHandler(codes, tokens)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quiet)})
	app.Post("/api/auth/request-code", h.RequestCode)
	app.Post("/api/auth/verify", h.Verify)
	app.Get("/api/auth/me", RequireAuth(NewResolver(tokens, users)), h.Me)
	return &testEnv{app: app, users: users, sent: sent}
}

func (e *testEnv) do(t *testing.T, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

/* ============================================================================
   Tests
   ============================================================================ */

func TestAuthFlow_WrongThenRightCode(t *testing.T) {
	e := newTestEnv(t)
	const phone = "+15551234567"

	code, body := e.do(t, "POST", "/api/auth/request-code", `{"phone":"`+phone+`"}`, "")
	if code != 200 || body["ok"] != true {
		t.Fatalf("request-code: %d %v", code, body)
	}

	issued := e.sent.get(phone)
	wrong := "000000"
	if issued == wrong {
		wrong = "111111"
	}
	code, body = e.do(t, "POST", "/api/auth/verify", `{"phone":"`+phone+`","code":"`+wrong+`"}`, "")
	if code != 400 {
		t.Fatalf("wrong code: expected 400, got %d", code)
	}
	if body["message"] != "Invalid or expired code" {
		t.Fatalf("wrong code message: %v", body["message"])
	}

	code, body = e.do(t, "POST", "/api/auth/verify", `{"phone":"`+phone+`","code":"`+issued+`"}`, "")
	if code != 200 {
		t.Fatalf("verify: expected 200, got %d %v", code, body)
	}
	token, _ := body["token"].(string)
	user, _ := body["user"].(map[string]any)
	if token == "" || user["phone"] != phone {
		t.Fatalf("verify body: %v", body)
	}

	code, body = e.do(t, "GET", "/api/auth/me", "", token)
	if code != 200 {
		t.Fatalf("me: expected 200, got %d %v", code, body)
	}
	if body["id"] != user["id"] || body["phone"] != phone {
		t.Fatalf("me mismatch: %v vs %v", body, user)
	}
}

func TestAuthFlow_NormalizesPhone(t *testing.T) {
	e := newTestEnv(t)

	code, _ := e.do(t, "POST", "/api/auth/request-code", `{"phone":"+1 (555) 123-4567"}`, "")
	if code != 200 {
		t.Fatalf("request-code: %d", code)
	}
	issued := e.sent.get("+15551234567")
	if issued == "" {
		t.Fatal("code should be keyed by the normalised phone")
	}
	code, _ = e.do(t, "POST", "/api/auth/verify", `{"phone":"+15551234567","code":"`+issued+`"}`, "")
	if code != 200 {
		t.Fatalf("verify: %d", code)
	}
}

func TestRequestCode_Validation(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, "POST", "/api/auth/request-code", `{"phone":""}`, "")
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["phone"]; !ok {
		t.Fatalf("expected phone error, got %v", body)
	}

	code, _ = e.do(t, "POST", "/api/auth/request-code", `{"phone":`, "")
	if code != 400 {
		t.Fatalf("malformed json: expected 400, got %d", code)
	}
}

func TestVerify_MalformedCode(t *testing.T) {
	e := newTestEnv(t)
	const phone = "+15551234567"
	e.do(t, "POST", "/api/auth/request-code", `{"phone":"`+phone+`"}`, "")

	for _, c := range []string{`""`, `"   "`, `"` + strings.Repeat("1", 17) + `"`} {
		code, body := e.do(t, "POST", "/api/auth/verify", `{"phone":"`+phone+`","code":`+c+`}`, "")
		if code != 400 || body["message"] != "Invalid or expired code" {
			t.Fatalf("code %s: %d %v", c, code, body)
		}
		if _, ok := body["errors"]; ok {
			t.Fatalf("code %s: unexpected validation map %v", c, body)
		}
	}

	// the issued code still works afterwards
	code, _ := e.do(t, "POST", "/api/auth/verify", `{"phone":"`+phone+`","code":"`+e.sent.get(phone)+`"}`, "")
	if code != 200 {
		t.Fatalf("verify after malformed attempts: %d", code)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, "GET", "/api/auth/me", "", "")
	if code != 401 || body["message"] != "Missing Authorization" {
		t.Fatalf("no header: %d %v", code, body)
	}

	code, body = e.do(t, "GET", "/api/auth/me", "", "garbage")
	if code != 401 || body["message"] != "Invalid token" {
		t.Fatalf("bad token: %d %v", code, body)
	}
}

func TestMe_DeletedPrincipal(t *testing.T) {
	e := newTestEnv(t)
	u, _ := e.users.FindOrCreateByPhone(context.Background(), "+15550009999")
	token, err := NewTokens(testSecret, time.Hour).Issue(u.ID, *u.Phone)
	if err != nil {
		t.Fatal(err)
	}
	e.users.delete(u.ID)

	code, body := e.do(t, "GET", "/api/auth/me", "", token)
	if code != 401 || body["message"] != "User not found" {
		t.Fatalf("deleted user: %d %v", code, body)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logrus.New())})
	app.Get("/x", l.Middleware(), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	first, _ := app.Test(httptest.NewRequest("GET", "/x", nil))
	second, _ := app.Test(httptest.NewRequest("GET", "/x", nil))
	if first.StatusCode != 204 || second.StatusCode != 429 {
		t.Fatalf("expected 204 then 429, got %d then %d", first.StatusCode, second.StatusCode)
	}
}

func TestErrorHandler_RedactsAndTagsUser(t *testing.T) {
	log, hook := test.NewNullLogger()
	id := uuid.New()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Get("/x", func(c *fiber.Ctx) error {
		SetUser(c, models.User{ID: id})
		if c.Locals(logging.UserIDKey) != id.String() {
			t.Errorf("user id local: %v", c.Locals(logging.UserIDKey))
		}
		return errors.New("notify +15551234567 failed")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected an error log entry")
	}
	if msg, _ := entry.Data[logrus.ErrorKey].(string); strings.Contains(msg, "5551234567") {
		t.Fatalf("phone leaked into log: %q", msg)
	}
}
