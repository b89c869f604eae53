package adminstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore implements Store on PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenPostgres connects to dsn and migrates the admin tables.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an open connection and runs AutoMigrate.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&User{}, &Session{}); err != nil {
		return nil, fmt.Errorf("migrate admin tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.Email = NormalizeEmail(u.Email)
	if err := Validate(u); err != nil {
		return User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *GormStore) first(ctx context.Context, out any, notFound error, query string, args ...any) error {
	err := s.db.WithContext(ctx).Where(query, args...).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func (s *GormStore) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := s.first(ctx, &u, ErrUserNotFound, "id = ?", id); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := s.first(ctx, &u, ErrUserNotFound, "email = ?", NormalizeEmail(email)); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Model(&Session{}).Where("user_id = ?", id).Update("revoked", true).Error
	})
}

func (s *GormStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", at.UTC())
	if res.Error != nil {
		return fmt.Errorf("record login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormStore) CountUsers(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

func (s *GormStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	if sess.UserID == "" || sess.ExpiresAt.IsZero() {
		return Session{}, ErrInvalid
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if _, err := s.GetUser(ctx, sess.UserID); err != nil {
		return Session{}, err
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Session{}, ErrDuplicate
		}
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	if err := s.first(ctx, &sess, ErrSessionNotFound, "id = ?", id); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *GormStore) RevokeSession(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *GormStore) CountLiveSessions(ctx context.Context, now time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("revoked = ? AND expires_at > ?", false, now).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return int(n), nil
}

func (s *GormStore) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
