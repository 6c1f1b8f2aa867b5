package testutil

import (
	"time"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
)

// RecordBuilder provides a fluent interface for building user records
// in tests.
type RecordBuilder struct {
	rec domainauth.Record
}

// NewRecord creates a RecordBuilder with sensible defaults.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{
		rec: domainauth.Record{
			UID:         "test-user-1",
			Email:       "test.user@example.com",
			DisplayName: "Test User",
			Role:        domainauth.RoleUser,
			CreatedAt:   time.Now().UTC().Truncate(time.Second),
		},
	}
}

// WithUID sets the record UID.
func (b *RecordBuilder) WithUID(uid string) *RecordBuilder {
	b.rec.UID = uid
	return b
}

// WithEmail sets the record email.
func (b *RecordBuilder) WithEmail(email string) *RecordBuilder {
	b.rec.Email = email
	return b
}

// WithRole sets the record role.
func (b *RecordBuilder) WithRole(role domainauth.Role) *RecordBuilder {
	b.rec.Role = role
	return b
}

// Build returns the assembled record.
func (b *RecordBuilder) Build() domainauth.Record {
	return b.rec
}

// UserBuilder provides a fluent interface for building users in tests.
type UserBuilder struct {
	user domainauth.User
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		user: domainauth.User{
			UID:           "test-user-1",
			Email:         "test.user@example.com",
			DisplayName:   "Test User",
			EmailVerified: true,
		},
	}
}

// WithUID sets the user UID.
func (b *UserBuilder) WithUID(uid string) *UserBuilder {
	b.user.UID = uid
	return b
}

// WithDisplayName sets the display name.
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.user.DisplayName = name
	return b
}

// Build returns the assembled user.
func (b *UserBuilder) Build() domainauth.User {
	return b.user
}

// Ptr returns the assembled user as a pointer.
func (b *UserBuilder) Ptr() *domainauth.User {
	u := b.user
	return &u
}
