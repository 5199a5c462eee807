package models

import "github.com/mmynk/backstack/internal/resource"

// Users describes the users table.
var Users = &resource.Descriptor{
	Name:  "users",
	Table: "users",
	New:   func() resource.Model { return &User{} },
}

// User represents a registered user account.
type User struct {
	ID int64 `json:"id"`

	// Email is the user's email address (unique). Used for login.
	Email *string `json:"email"`

	DisplayName *string `json:"display_name"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized and never accepted from payloads.
	PasswordHash string `json:"-"`

	Admin bool `json:"is_admin"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at"`
}

// NewUser creates a user with the given credentials.
func NewUser(email, displayName, passwordHash string) *User {
	u := &User{Email: &email, PasswordHash: passwordHash}
	if displayName != "" {
		u.DisplayName = &displayName
	}
	return u
}

// GetEmail returns the email address, or "" when unset.
func (u *User) GetEmail() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) Descriptor() *resource.Descriptor { return Users }
func (u *User) GetID() int64                     { return u.ID }
func (u *User) SetID(id int64)                   { u.ID = id }

func (u *User) Columns() []resource.Column {
	return []resource.Column{
		{Name: "email", Value: resource.Deref(u.Email), Dest: &u.Email},
		{Name: "display_name", Value: resource.Deref(u.DisplayName), Dest: &u.DisplayName},
		{Name: "password_hash", Value: u.PasswordHash, Dest: &u.PasswordHash},
		{Name: "is_admin", Value: u.Admin, Dest: &u.Admin},
		{Name: "created_at", Value: u.CreatedAt, Dest: &u.CreatedAt, ReadOnly: true},
	}
}
