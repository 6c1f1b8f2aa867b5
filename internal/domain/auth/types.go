package auth

// Package auth contains domain-level types for identity and session state.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and claim transport.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Privileged reports whether the role unlocks restricted menu items.
// Admin and manager are the only privileged roles.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// ParseRole normalizes a raw claim value into a Role.
// Unknown or empty values fall back to RoleUser so that a malformed
// claim can never grant privilege.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleUser
	}
}

// User represents the authenticated principal as reported by the
// identity provider. Adapters map provider-specific shapes into this.
// The provider owns this data; the shell never mutates it locally.
type User struct {
	UID           string
	DisplayName   string
	Email         string
	PhoneNumber   string
	PhotoURL      string
	EmailVerified bool
}

// Record is the users/{uid} document persisted in the document store
// on first sign-in. Role here is the stored default; the live role is
// always re-read from the token claim, never from this record.
type Record struct {
	UID         string    `json:"uid" firestore:"uid"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"displayName" firestore:"displayName"`
	Role        Role      `json:"role" firestore:"role"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
}

// Snapshot is the locally cached "last known profile" used for offline
// display (name, photo). It is allowed to go stale and must never be
// consulted for authorization.
type Snapshot struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photo_url"`
	Role        Role      `json:"role"`
	SavedAt     time.Time `json:"saved_at"`
}

// State is the derived session state: anonymous when User is nil,
// authenticated otherwise. Role is only meaningful when authenticated.
type State struct {
	User *User
	Role Role
}

// Anonymous reports whether no user is signed in.
func (s State) Anonymous() bool { return s.User == nil }

// Credential is the result of a successful password or federated
// sign-in, as returned by the identity provider adapter.
type Credential struct {
	User         *User
	Federated    bool
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}
