package otp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

/* ================================ Fakes ================================= */

type fakeUsers struct {
	mu      sync.Mutex
	byPhone map[string]models.User
	calls   int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byPhone: map[string]models.User{}} }

func (f *fakeUsers) FindOrCreateByPhone(_ context.Context, phone string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if u, ok := f.byPhone[phone]; ok {
		return u, nil
	}
	p := phone
	u := models.User{ID: uuid.New(), Phone: &p}
	f.byPhone[phone] = u
	return u, nil
}

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newCapture() *captureNotifier { return &captureNotifier{codes: map[string]string{}} }

func (n *captureNotifier) SendOTP(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[phone] = code
	return n.err
}

func (n *captureNotifier) last(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[phone]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	auth  *Authenticator
	store *MemoryStore
	users *fakeUsers
	sent  *captureNotifier
	clock *clock
}

func newHarness() *harness {
	h := &harness{
		store: NewMemoryStore(),
		users: newFakeUsers(),
		sent:  newCapture(),
		clock: &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	h.auth = NewAuthenticator(h.store, h.users, h.sent,
		WithHashCost(bcrypt.MinCost),
		WithClock(h.clock.Now),
		WithLogger(quiet),
	)
	return h
}

const phone = "+15551234567"

/* ================================ Tests ================================= */

func TestGenerateCode_FixedWidthDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeDigits)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestIssue_StoresHashNotCode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.auth.Issue(ctx, phone))

	e, ok, _ := h.store.Get(ctx, phone)
	require.True(t, ok)
	code := h.sent.last(phone)
	assert.NotEqual(t, code, e.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(e.CodeHash), []byte(code)))
	assert.Equal(t, h.clock.Now().Add(DefaultTTL), e.ExpiresAt)
}

func TestIssue_EmptyPhone(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.auth.Issue(context.Background(), "  "), ErrPhoneRequired)
}

func TestIssue_NotifierFailureIsNotReturned(t *testing.T) {
	h := newHarness()
	h.sent.err = errors.New("gateway down")

	require.NoError(t, h.auth.Issue(context.Background(), phone))
	assert.Equal(t, 1, h.store.Len())
}

func TestVerify_WrongThenRightCode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	code := h.sent.last(phone)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := h.auth.Verify(ctx, phone, wrong)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	u, err := h.auth.Verify(ctx, phone, code)
	require.NoError(t, err)
	assert.Equal(t, phone, *u.Phone)
}

func TestVerify_SingleUse(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	code := h.sent.last(phone)

	_, err := h.auth.Verify(ctx, phone, code)
	require.NoError(t, err)

	_, err = h.auth.Verify(ctx, phone, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerify_SecondIssueInvalidatesFirst(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	first := h.sent.last(phone)

	// reissue until the codes differ (1 in a million they collide)
	second := first
	for second == first {
		require.NoError(t, h.auth.Issue(ctx, phone))
		second = h.sent.last(phone)
	}

	_, err := h.auth.Verify(ctx, phone, first)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	_, err = h.auth.Verify(ctx, phone, second)
	assert.NoError(t, err)
}

func TestVerify_ExpiresAtTenMinutes(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	code := h.sent.last(phone)

	h.clock.Advance(DefaultTTL) // exactly at expiry

	_, err := h.auth.Verify(ctx, phone, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	assert.Equal(t, 0, h.store.Len(), "expired entry should be dropped")
}

func TestVerify_JustBeforeExpiry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	code := h.sent.last(phone)

	h.clock.Advance(DefaultTTL - time.Second)

	_, err := h.auth.Verify(ctx, phone, code)
	assert.NoError(t, err)
}

func TestVerify_UnknownPhone(t *testing.T) {
	h := newHarness()
	_, err := h.auth.Verify(context.Background(), "+19999999999", "123456")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerify_SameUserAcrossCycles(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.auth.Issue(ctx, phone))
	u1, err := h.auth.Verify(ctx, phone, h.sent.last(phone))
	require.NoError(t, err)

	require.NoError(t, h.auth.Issue(ctx, phone))
	u2, err := h.auth.Verify(ctx, phone, h.sent.last(phone))
	require.NoError(t, err)

	assert.Equal(t, u1.ID, u2.ID)
}

func TestVerify_ConcurrentVerifiersOneWinner(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	code := h.sent.last(phone)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.auth.Verify(ctx, phone, code); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestVerify_IssueRacingVerify(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.auth.Issue(ctx, phone))
	e, _, _ := h.store.Get(ctx, phone)

	// a concurrent issue replaced the entry between read and consume
	require.NoError(t, h.store.Put(ctx, phone, Entry{CodeHash: "other", ExpiresAt: e.ExpiresAt}))
	won, err := h.store.CompareAndDelete(ctx, phone, e)
	require.NoError(t, err)
	assert.False(t, won)
	assert.Equal(t, 1, h.store.Len())
}
