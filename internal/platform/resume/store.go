// Package resume persists the transient "resume checkout after login" signal.
// The signal is written when an unauthenticated shopper submits a valid
// checkout form and is consumed exactly once after a successful sign-in.
package resume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// DefaultTTL is the default duration a resume signal stays valid.
const DefaultTTL = 30 * time.Minute

// ErrSessionRequired indicates that no session identifier was supplied.
var ErrSessionRequired = errors.New("resume: session id is required")

// Signal records a pending checkout re-entry for a shopper session.
type Signal struct {
	SessionID string
	ReturnTo  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the signal is past its TTL at the given instant.
func (s Signal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists resume signals keyed by shopper session.
type Store interface {
	// Set writes (or refreshes) the signal for the session.
	Set(ctx context.Context, signal Signal) error
	// Consume destructively reads the signal; ok is false when no live
	// signal exists for the session.
	Consume(ctx context.Context, sessionID string, now time.Time) (Signal, bool, error)
}

func sessionKey(sessionID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sessionID)))
	return hex.EncodeToString(sum[:])
}
