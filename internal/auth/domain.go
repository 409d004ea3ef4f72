// Package auth owns user accounts and the token lifecycle: registration,
// login, JWT access tokens, database-backed refresh tokens, and the
// logout denylist.
package auth

import "time"

// User is a registered account. PasswordHash is bcrypt output and never
// leaves this package.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken is the stored form of a refresh token. Only the SHA-256
// hash of the raw value is persisted, so a leaked database cannot mint
// sessions. Revoked is one-way.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
