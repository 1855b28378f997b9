package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/aldoetobex/legal-consult-backend/internal/apperr"
	"github.com/aldoetobex/legal-consult-backend/internal/metrics"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
	"github.com/aldoetobex/legal-consult-backend/pkg/sanitize"
)

const (
	// CodeDigits is the fixed width of a code.
	CodeDigits = 6
	// DefaultTTL is how long a code stays valid.
	DefaultTTL = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000) // 10^CodeDigits

var (
	ErrInvalidOrExpiredCode = apperr.New(apperr.InvalidInput, "Invalid or expired code")
	ErrPhoneRequired        = apperr.New(apperr.InvalidInput, "phone is required")
)

// Users resolves a verified phone to a user, creating it on first sight.
type Users interface {
	FindOrCreateByPhone(ctx context.Context, phone string) (models.User, error)
}

// Authenticator owns the issue/verify protocol. Safe for concurrent use.
type Authenticator struct {
	store    Store
	users    Users
	notifier Notifier
	ttl      time.Duration
	cost     int
	now      func() time.Time
	log      logrus.FieldLogger
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithTTL sets the code lifetime.
func WithTTL(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithHashCost sets the bcrypt cost for stored codes.
func WithHashCost(cost int) Option {
	return func(a *Authenticator) { a.cost = cost }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Authenticator) { a.log = l }
}

// NewAuthenticator wires the store, user lookup and delivery channel.
func NewAuthenticator(store Store, users Users, notifier Notifier, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:    store,
		users:    users,
		notifier: notifier,
		ttl:      DefaultTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// GenerateCode draws a zero-padded code uniformly from 000000–999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// Issue replaces any outstanding code for phone with a fresh one and hands it to the notifier.
// Delivery failures are logged, not returned.
func (a *Authenticator) Issue(ctx context.Context, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return ErrPhoneRequired
	}
	code, err := GenerateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), a.cost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	e := Entry{CodeHash: string(hash), ExpiresAt: a.now().Add(a.ttl)}
	if err := a.store.Put(ctx, phone, e); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	metrics.RecordOTP(metrics.OTPIssued)

	if a.notifier != nil {
		if err := a.notifier.SendOTP(ctx, phone, code); err != nil {
			metrics.RecordOTP(metrics.OTPNotifyFailed)
			a.log.WithError(err).WithField("phone", sanitize.MaskPhone(phone)).Error("otp delivery failed")
		}
	}
	return nil
}

// Verify checks code against the outstanding entry for phone and consumes it on success.
// A wrong code leaves the entry in place; an expired one is dropped.
func (a *Authenticator) Verify(ctx context.Context, phone, code string) (models.User, error) {
	e, ok, err := a.store.Get(ctx, phone)
	if err != nil {
		return models.User{}, fmt.Errorf("load code: %w", err)
	}
	if !ok {
		metrics.RecordOTP(metrics.OTPRejected)
		return models.User{}, ErrInvalidOrExpiredCode
	}

	if !a.now().Before(e.ExpiresAt) {
		if _, err := a.store.CompareAndDelete(ctx, phone, e); err != nil {
			a.log.WithError(err).Warn("drop expired code")
		}
		metrics.RecordOTP(metrics.OTPExpired)
		return models.User{}, ErrInvalidOrExpiredCode
	}

	if bcrypt.CompareHashAndPassword([]byte(e.CodeHash), []byte(code)) != nil {
		metrics.RecordOTP(metrics.OTPRejected)
		return models.User{}, ErrInvalidOrExpiredCode
	}

	// Lost the race to a concurrent issue or verify for the same phone.
	won, err := a.store.CompareAndDelete(ctx, phone, e)
	if err != nil {
		return models.User{}, fmt.Errorf("consume code: %w", err)
	}
	if !won {
		metrics.RecordOTP(metrics.OTPRejected)
		return models.User{}, ErrInvalidOrExpiredCode
	}
	metrics.RecordOTP(metrics.OTPVerified)

	u, err := a.users.FindOrCreateByPhone(ctx, phone)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}
