// Package auth implements admin console login, sessions and role checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

const defaultSessionTTL = 12 * time.Hour

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Email     string          `json:"email"`
	Role      adminstore.Role `json:"role"`
}

// Require returns ErrForbidden unless p's role covers need.
func (p Principal) Require(need adminstore.Role) error {
	if !p.Role.Allows(need) {
		return fmt.Errorf("%w: %s required", ErrForbidden, need)
	}
	return nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      adminstore.User `json:"user"`
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Role        adminstore.Role `json:"role"`
	Password    string          `json:"password"`
}

// Service ties the admin store, password hashing and tokens together.
type Service struct {
	store      adminstore.Store
	hasher     PasswordHasher
	tokens     *TokenService
	sessionTTL time.Duration
	now        func() time.Time
	logger     logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets how long a login stays valid.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns an auth service over store.
func NewService(store adminstore.Store, tokens *TokenService, opts ...Option) *Service {
	s := &Service{
		store:      store,
		hasher:     NewBcryptHasher(0),
		tokens:     tokens,
		sessionTTL: defaultSessionTTL,
		now:        time.Now,
		logger:     logger.Get().Named("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials, opens a session and signs a token for it.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, adminstore.ErrNotFound) {
		metrics.RecordAdminLogin("denied")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		metrics.RecordAdminLogin("error")
		return LoginResult{}, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordAdminLogin("denied")
			s.logger.Info(ctx, "login denied", logger.String("email", u.Email))
		} else {
			metrics.RecordAdminLogin("error")
		}
		return LoginResult{}, err
	}

	now := s.now().UTC()
	sess, err := s.store.CreateSession(ctx, adminstore.Session{
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	if err != nil {
		metrics.RecordAdminLogin("error")
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(u.ID, sess.ID, u.Role, sess.ExpiresAt)
	if err != nil {
		metrics.RecordAdminLogin("error")
		return LoginResult{}, err
	}
	if err := s.store.RecordLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn(ctx, "record login failed", logger.Error(err))
	} else {
		u.LastLoginAt = &now
	}

	metrics.RecordAdminLogin("ok")
	s.publishSessions(ctx)
	s.logger.Info(ctx, "admin login", logger.String("user_id", u.ID), logger.String("role", string(u.Role)))
	return LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Authenticate checks the token and that its session and user still exist.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	sess, err := s.store.GetSession(ctx, claims.SessionID)
	if errors.Is(err, adminstore.ErrNotFound) {
		return Principal{}, ErrSessionRevoked
	}
	if err != nil {
		return Principal{}, err
	}
	if !sess.Live(s.now()) || sess.UserID != claims.Subject {
		return Principal{}, ErrSessionRevoked
	}
	u, err := s.store.GetUser(ctx, claims.Subject)
	if errors.Is(err, adminstore.ErrNotFound) {
		return Principal{}, ErrSessionRevoked
	}
	if err != nil {
		return Principal{}, err
	}
	// The stored role wins over the token's, so demotions apply immediately.
	return Principal{UserID: u.ID, SessionID: sess.ID, Email: u.Email, Role: u.Role}, nil
}

// Logout revokes the caller's session.
func (s *Service) Logout(ctx context.Context, p Principal) error {
	if err := s.store.RevokeSession(ctx, p.SessionID); err != nil {
		return err
	}
	s.publishSessions(ctx)
	return nil
}

// CreateUser hashes the password and stores a new user.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (adminstore.User, error) {
	if in.Role == "" {
		in.Role = adminstore.RoleViewer
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return adminstore.User{}, err
	}
	return s.store.CreateUser(ctx, adminstore.User{
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id string) (adminstore.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]adminstore.User, error) {
	return s.store.ListUsers(ctx)
}

// DeleteUser removes a user and revokes its sessions.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.publishSessions(ctx)
	return nil
}

// Bootstrap creates an admin with email and password unless that email exists.
// It reports whether a user was created.
func (s *Service) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, adminstore.ErrNotFound) {
		return false, err
	}
	u, err := s.CreateUser(ctx, NewUser{Email: email, DisplayName: "Administrator", Role: adminstore.RoleAdmin, Password: password})
	if errors.Is(err, adminstore.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info(ctx, "bootstrap admin created", logger.String("user_id", u.ID))
	return true, nil
}

// Stats returns the user count and live session count.
func (s *Service) Stats(ctx context.Context) (users, sessions int, err error) {
	if users, err = s.store.CountUsers(ctx); err != nil {
		return 0, 0, err
	}
	if sessions, err = s.store.CountLiveSessions(ctx, s.now()); err != nil {
		return 0, 0, err
	}
	return users, sessions, nil
}

// PurgeExpired deletes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.PurgeSessions(ctx, s.now())
	if err == nil {
		s.publishSessions(ctx)
	}
	return n, err
}

func (s *Service) publishSessions(ctx context.Context) {
	if n, err := s.store.CountLiveSessions(ctx, s.now()); err == nil {
		metrics.UpdateActiveSessions(n)
	}
}
