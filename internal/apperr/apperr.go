// Package apperr defines the error kinds every core operation surfaces.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidInput
	Unauthenticated
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case InvalidInput:
		return "INVALID_INPUT"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case Conflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// Error is a classified, client-safe error. Message is shown to callers as is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New returns a sentinel-friendly *Error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf walks the chain and returns the first classified kind, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to a response status. Fiber errors keep their own code.
func HTTPStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch KindOf(err) {
	case NotFound:
		return fiber.StatusNotFound
	case InvalidInput:
		return fiber.StatusBadRequest
	case Unauthenticated:
		return fiber.StatusUnauthorized
	case Conflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
