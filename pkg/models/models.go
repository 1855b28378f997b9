package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
// Persisted as text; only the values below may enter through the API.
type Role string

const (
	RoleUser   Role = "user"
	RoleLawyer Role = "lawyer"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLawyer, RoleAdmin:
		return true
	}
	return false
}

// RequestStatus defines lifecycle states for a consultation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAssigned  RequestStatus = "assigned"
	RequestCalling   RequestStatus = "calling"
	RequestCompleted RequestStatus = "completed"
)

// RequestStatuses lists every status in lifecycle order.
var RequestStatuses = []RequestStatus{RequestPending, RequestAssigned, RequestCalling, RequestCompleted}

// Valid reports whether s is one of the four lifecycle states.
func (s RequestStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of s in the lifecycle, or -1 when unknown.
func (s RequestStatus) Rank() int {
	for i, v := range RequestStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// PayStatus defines lifecycle states for a payment.
type PayStatus string

const (
	PayPending PayStatus = "pending"
	PayPaid    PayStatus = "paid"
	PayFailed  PayStatus = "failed"
)

// Valid reports whether s is a recognised payment status.
func (s PayStatus) Valid() bool {
	switch s {
	case PayPending, PayPaid, PayFailed:
		return true
	}
	return false
}

// EntityType names the owner kinds an attachment may point at.
type EntityType string

const (
	EntityUser    EntityType = "user"
	EntityLawyer  EntityType = "lawyer"
	EntityRequest EntityType = "request"
	EntityPayment EntityType = "payment"
	EntityArticle EntityType = "article"
)

// Valid reports whether t is a known attachment owner kind.
func (t EntityType) Valid() bool {
	switch t {
	case EntityUser, EntityLawyer, EntityRequest, EntityPayment, EntityArticle:
		return true
	}
	return false
}

/* =============================== Entities =============================== */

// DefaultPaymentAmount is the consultation fee recorded when none is given.
const DefaultPaymentAmount = "300.00"

// User is identified by phone; created on first successful OTP verification.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      *string   `json:"name"`
	Phone     *string   `gorm:"uniqueIndex" json:"phone"`
	Email     *string   `json:"email"`
	Role      *Role     `gorm:"type:varchar(20)" json:"role"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`

	Lawyer   *Lawyer   `gorm:"foreignKey:UserID" json:"-"`
	Requests []Request `gorm:"foreignKey:UserID" json:"-"`
}

// Lawyer is the professional profile, optionally linked back to a User.
type Lawyer struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Specialties  pq.StringArray `gorm:"type:text[]" json:"specialties"`
	Rating       *float64       `gorm:"type:numeric(2,1)" json:"rating"`
	Availability datatypes.JSON `gorm:"column:availability_json;type:jsonb" json:"availability"`

	AssignedRequests []Request `gorm:"foreignKey:AssignedLawyer" json:"-"`
}

// Request is a consultation request; Status is owned by the lifecycle manager.
type Request struct {
	ID              uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          *uuid.UUID    `gorm:"type:uuid;index" json:"user_id"`
	Description     *string       `gorm:"type:text" json:"description"`
	Status          RequestStatus `gorm:"type:varchar(50);not null;default:'pending'" json:"status"`
	AssignedLawyer  *uuid.UUID    `gorm:"type:uuid;index" json:"assigned_lawyer"`
	PreferredWindow *string       `gorm:"type:varchar(255)" json:"preferred_window"`
	CreatedAt       time.Time     `gorm:"not null;default:now();index" json:"created_at"`

	Payment *Payment `gorm:"foreignKey:RequestID" json:"-"`
}

// Payment records the outcome of paying for a request. Status is recorded, never computed.
type Payment struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID   *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"request_id"`
	ProviderRef *string    `json:"provider_ref"`
	Amount      string     `gorm:"type:numeric(10,2);not null;default:300.00" json:"amount"` // fixed-point, kept as decimal text
	Status      PayStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

// Attachment is a stored file pointing at any owner via (EntityType, EntityID).
// The association is not a foreign key; owners are checked when the row is written.
type Attachment struct {
	ID         uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType *EntityType `gorm:"type:varchar(20);index:idx_attachment_owner" json:"entity_type"`
	EntityID   *uuid.UUID  `gorm:"type:uuid;index:idx_attachment_owner" json:"entity_id"`
	S3URL      *string     `gorm:"column:s3_url;type:text" json:"url"`
	Mime       *string     `json:"mime"`
}

// Article is the read-only reference corpus.
type Article struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title     string         `gorm:"type:text;not null" json:"title"`
	Year      *int           `json:"year"`
	Court     *string        `json:"court"`
	Summary   *string        `gorm:"type:text" json:"summary"`
	FullText  *string        `gorm:"type:text" json:"full_text,omitempty"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

// RequestHistory is an audit log entry for status changes and assignments.
type RequestHistory struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID     `gorm:"type:uuid;not null;index" json:"request_id"`
	ActorID   *uuid.UUID    `gorm:"type:uuid" json:"actor_id"`               // nil for system actions
	Action    string        `gorm:"type:varchar(50);not null" json:"action"` // created, status_changed, assigned, unassigned
	OldStatus RequestStatus `gorm:"type:varchar(50)" json:"old_status"`
	NewStatus RequestStatus `gorm:"type:varchar(50)" json:"new_status"`
	CreatedAt time.Time     `gorm:"not null;default:now()" json:"created_at"`
}
