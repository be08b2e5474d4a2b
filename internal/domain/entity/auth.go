package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, authorized user session.
// It is used to obtain a new access token after the old one expires,
// without requiring credentials again.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this session record.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	TokenHash string    // SHA-256 hash of the raw refresh token. The raw token is never stored.
	ExpiresAt time.Time // The exact time this session becomes invalid.
	CreatedAt time.Time // When the session was created (i.e., when the user logged in).
}

// IsExpired reports whether the session has passed its expiry time.
func (t *RefreshToken) IsExpired() bool {
	return t.ExpiresAt.Before(time.Now())
}

// HashToken derives the storage hash for a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}
