// Package session holds per-user conversation state: preferences, a bounded
// message history and at most one pending action awaiting confirmation.
package session

import (
	"context"
	"time"
)

// Role identifies who produced a history message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of recorded conversation history
type Message struct {
	Role Role
	Text string
	At   time.Time
}

// Preferences are the durable per-user settings
type Preferences struct {
	// Timezone is an IANA zone name. Empty means the application default.
	Timezone  string
	Connected bool
}

// PendingActionKind names what a stored pending action will do once confirmed
type PendingActionKind string

const (
	PendingCreate PendingActionKind = "create"
	PendingUpdate PendingActionKind = "update"
	PendingDelete PendingActionKind = "delete"
)

// PendingAction is a mutation proposed to the user but not yet executed. It
// expires so a stale "yes" cannot trigger an action the user no longer sees.
type PendingAction struct {
	Kind      PendingActionKind
	EventID   string
	Summary   string
	Arguments map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the action may no longer be confirmed
func (p *PendingAction) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Store persists per-user session state. Implementations must be safe for
// concurrent use across different users.
type Store interface {
	// Preferences returns the stored preferences for a user, or zero-value
	// preferences when the user is unknown.
	Preferences(ctx context.Context, userID string) (Preferences, error)
	SetPreferences(ctx context.Context, userID string, prefs Preferences) error

	// History returns the recorded messages for a user, oldest first.
	History(ctx context.Context, userID string) ([]Message, error)
	// AppendHistory records messages, dropping the oldest entries beyond
	// the store's retention limit.
	AppendHistory(ctx context.Context, userID string, msgs ...Message) error
	ClearHistory(ctx context.Context, userID string) error

	// PendingAction returns the user's unexpired pending action, or nil.
	PendingAction(ctx context.Context, userID string) (*PendingAction, error)
	SetPendingAction(ctx context.Context, userID string, action *PendingAction) error
	ClearPendingAction(ctx context.Context, userID string) error
}
