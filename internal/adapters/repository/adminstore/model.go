// Package adminstore persists admin console users and their sessions.
package adminstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Role grants a set of permissions in the admin console.
type Role string

// Roles, from most to least privileged.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Allows reports whether r may act where need is required.
func (r Role) Allows(need Role) bool {
	return rank(r) >= rank(need)
}

func rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// User is an admin console account.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:320;not null" validate:"required,email,max=320"`
	DisplayName  string     `json:"display_name" gorm:"size:200" validate:"max=200"`
	Role         Role       `json:"role" gorm:"size:16;not null" validate:"required,oneof=admin editor viewer"`
	PasswordHash string     `json:"-" gorm:"not null" validate:"required"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// TableName implements gorm's tabler.
func (User) TableName() string { return "admin_users" }

// Session is a login. A token is accepted only while its session is live.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"index;size:36;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	Revoked   bool      `json:"revoked"`
}

// TableName implements gorm's tabler.
func (Session) TableName() string { return "admin_sessions" }

// Live reports whether the session can still authenticate requests at now.
func (s Session) Live(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

var validate = validator.New()

// Validate checks u's struct tags.
func Validate(u User) error {
	if err := validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %s", ErrInvalid, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// NormalizeEmail folds an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
