package notify

import (
	"context"

	"tictac-server/pkg/arenadto"
)

// Event types delivered alongside snapshots.
const (
	EventRestartRequested = "restart_requested"
	EventRestartDeclined  = "restart_declined"
	EventQueuePaired      = "queue_paired"
)

// Event is a non-snapshot notification tied to a session.
type Event struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id"`
	Seat      string   `json:"seat,omitempty"`
	PlayerID  string   `json:"player_id,omitempty"`
	ConnIDs   []string `json:"conn_ids,omitempty"`
}

// Notifier receives every committed transition. Implementations must not
// block the commit path beyond their own timeouts; delivery failures are the
// notifier's concern, never the session's.
type Notifier interface {
	PublishSnapshot(ctx context.Context, snap *arenadto.Snapshot) error
	PublishEvent(ctx context.Context, ev *Event) error
}

// Nop discards everything; used in tests and when no sink is configured.
type Nop struct{}

func (Nop) PublishSnapshot(context.Context, *arenadto.Snapshot) error { return nil }
func (Nop) PublishEvent(context.Context, *Event) error                { return nil }

// Multi fans out to several notifiers, returning the first error after
// attempting all of them.
type Multi []Notifier

func (m Multi) PublishSnapshot(ctx context.Context, snap *arenadto.Snapshot) error {
	var first error
	for _, n := range m {
		if err := n.PublishSnapshot(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) PublishEvent(ctx context.Context, ev *Event) error {
	var first error
	for _, n := range m {
		if err := n.PublishEvent(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
