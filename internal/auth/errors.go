package auth

import "errors"

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrExpiredToken       = errors.New("auth: token expired")
	ErrSessionRevoked     = errors.New("auth: session revoked or expired")
	ErrForbidden          = errors.New("auth: insufficient role")
	ErrWeakPassword       = errors.New("auth: password too short")
	ErrWeakSecret         = errors.New("auth: jwt secret must be at least 32 bytes")
)
