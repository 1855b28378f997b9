// pkg/models/api.go
package models

import "github.com/google/uuid"

// Laravel-style validation error body (400)
type ValidationErrorResponse struct {
	Message string              `json:"message" example:"Validation failed"`
	Errors  map[string][]string `json:"errors"`
}

// Generic error body (400/401/404/409/500)
type ErrorResponse struct {
	Error   bool   `json:"error" example:"true"`
	Message string `json:"message" example:"Request not found"`
	Code    string `json:"code,omitempty" example:"NOT_FOUND"`
}

// AckResponse is returned by fire-and-forget operations.
type AckResponse struct {
	OK bool `json:"ok" example:"true"`
}

// UserSummary is the public identity of an authenticated user.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Phone string    `json:"phone" example:"+15551234567"`
}

// Summary maps a user to its public identity.
func (u User) Summary() UserSummary {
	s := UserSummary{ID: u.ID}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	return s
}
