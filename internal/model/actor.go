package model

import (
	"errors"
	"strings"
	"time"
)

// Role is the canonical, lower-case role of an actor. Raw strings from
// storage or requests go through ParseRole and are never compared directly.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDoctor    Role = "doctor"
	RoleSecretary Role = "secretary"
	RolePromoter  Role = "promoter"
	RolePatient   Role = "patient"
)

// Roles lists every role in the closed set.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleSecretary, RolePromoter, RolePatient}

var ErrUnknownRole = errors.New("unknown role")

// ParseRole normalizes casing and surrounding whitespace ("ADMIN", " Doctor ").
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleSecretary, RolePromoter, RolePatient:
		return true
	}
	return false
}

// IsStaff reports whether the role authorizes through capabilities rather
// than through ownership of the resource.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RolePatient
}

type ActorStatus string

const (
	ActorStatusActive   ActorStatus = "active"
	ActorStatusInactive ActorStatus = "inactive"
)

func ParseActorStatus(raw string) (ActorStatus, error) {
	s := ActorStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case ActorStatusActive, ActorStatusInactive:
		return s, nil
	}
	return "", errors.New("unknown actor status")
}

// Actor is an authenticated principal. LinkedResourceID points at the
// clinical record a patient actor owns, nil until an admin links one.
type Actor struct {
	ID               string      `json:"id" db:"id"`
	Email            string      `json:"email" db:"email"`
	Name             string      `json:"name" db:"name"`
	Role             Role        `json:"role" db:"role"`
	Status           ActorStatus `json:"status" db:"status"`
	LinkedResourceID *string     `json:"linked_resource_id,omitempty" db:"linked_resource_id"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

func (a *Actor) IsActive() bool {
	return a.Status == ActorStatusActive
}

// HasLinkedResource is false for a nil or empty link.
func (a *Actor) HasLinkedResource() bool {
	return a.LinkedResourceID != nil && *a.LinkedResourceID != ""
}

// Credential is the stored secret for an actor. Kept apart from Actor so
// the hash never travels with the principal through request handling.
type Credential struct {
	ActorID      string    `db:"actor_id"`
	PasswordHash string    `db:"password_hash"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ActorFilter narrows the staff directory listing.
type ActorFilter struct {
	Role   Role        `json:"role" form:"role"`
	Status ActorStatus `json:"status" form:"status"`
}

// CacheKey identifies the filter shape in the directory cache.
func (f ActorFilter) CacheKey() string {
	return "directory:" + string(f.Role) + ":" + string(f.Status)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type LinkResourceRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}
