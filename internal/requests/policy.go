package requests

import (
	"strings"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// Policy decides whether a request may move from one status to another.
// Both statuses are already known to be valid.
type Policy func(from, to models.RequestStatus) error

// Permissive allows any status to follow any other, including itself.
func Permissive(_, _ models.RequestStatus) error { return nil }

// ForwardOnly allows staying put or moving later in the lifecycle, never back.
func ForwardOnly(from, to models.RequestStatus) error {
	if to.Rank() < from.Rank() {
		return ErrInvalidTransition
	}
	return nil
}

// ParseStatus maps user input onto one of the four lifecycle states.
func ParseStatus(s string) (models.RequestStatus, error) {
	st := models.RequestStatus(strings.TrimSpace(s))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}
