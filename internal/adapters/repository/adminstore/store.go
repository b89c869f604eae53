package adminstore

import (
	"context"
	"time"
)

// Store persists users and sessions.
type Store interface {
	// CreateUser assigns an id when u.ID is empty. ErrEmailExists on a taken email.
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// ListUsers returns users ordered by creation.
	ListUsers(ctx context.Context) ([]User, error)
	// DeleteUser removes the user and revokes its sessions.
	DeleteUser(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	CountUsers(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string) error
	// CountLiveSessions counts sessions that are neither revoked nor expired at now.
	CountLiveSessions(ctx context.Context, now time.Time) (int, error)
	// PurgeSessions deletes sessions that expired before now and returns how many.
	PurgeSessions(ctx context.Context, now time.Time) (int, error)

	Close() error
}
