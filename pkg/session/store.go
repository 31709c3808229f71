package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PendingSelection maps a course number to the refs of all candidate
// courses the user still has to choose from.
type PendingSelection map[string][]int64

// Pending is the deferred selection of one login: the account it was
// created for and the candidates per course number. The account id is
// authoritative; confirmation requests never get to name their own.
type Pending struct {
	UserID  int64            `json:"user_id"`
	Courses PendingSelection `json:"courses"`
}

// DefaultTTL bounds how long a pending selection survives without
// being confirmed.
const DefaultTTL = 30 * time.Minute

// Store persists pending selections keyed by session id. Sessions are
// serialized per user by the host platform, so no concurrent-writer
// protection is needed beyond what the backend gives us.
type Store interface {
	// Put stores the selection under the session id, replacing any
	// previous value and restarting the expiry.
	Put(ctx context.Context, sessionID string, pending *Pending) error

	// Get returns the stored selection or nil when none exists.
	Get(ctx context.Context, sessionID string) (*Pending, error)

	// Delete removes the selection.
	Delete(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
