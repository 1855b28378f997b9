package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestTokens_IssueParseRoundTrip(t *testing.T) {
	tok := NewTokens(testSecret, time.Hour)
	id := uuid.New()

	raw, err := tok.Issue(id, "+15551234567")
	require.NoError(t, err)

	claims, err := tok.Parse(raw)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "+15551234567", claims.Phone)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokens_Parse_Empty(t *testing.T) {
	_, err := NewTokens(testSecret, time.Hour).Parse("  ")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestTokens_Parse_Rejects(t *testing.T) {
	tok := NewTokens(testSecret, time.Hour)
	id := uuid.New()
	valid, err := tok.Issue(id, "+15551234567")
	require.NoError(t, err)

	claims := &Claims{
		Phone: "+15551234567",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	otherKey, err := NewTokens("another-secret-abcdefgh", time.Hour).Issue(id, "+15551234567")
	require.NoError(t, err)

	noExp := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}}
	withoutExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSub := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, badSub).SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":         "not.a.token",
		"tampered":        valid[:strings.LastIndex(valid, ".")] + ".c2lnbmF0dXJl",
		"wrong algorithm": hs512,
		"alg none":        none,
		"wrong key":       otherKey,
		"no expiry":       withoutExp,
		"bad subject":     badSubject,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tok.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestTokens_Parse_Expired(t *testing.T) {
	tok := NewTokens(testSecret, time.Minute)
	issuedAt := time.Now().Add(-2 * time.Minute)
	tok.now = func() time.Time { return issuedAt }
	raw, err := tok.Issue(uuid.New(), "+15551234567")
	require.NoError(t, err)

	tok.now = time.Now
	_, err = tok.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestBearerToken(t *testing.T) {
	got, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)

	got, err = BearerToken("bearer   abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingCredential, "header %q", h)
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))

	now = now.Add(2 * limiterIdle)
	l.Allow("10.0.0.3")
	l.mu.Lock()
	_, kept := l.perIP["10.0.0.1"]
	l.mu.Unlock()
	assert.False(t, kept, "idle buckets are dropped")
}
