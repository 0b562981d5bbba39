package presence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tictac-server/internal/game"
)

const entryTTL = 24 * time.Hour

// Entry maps a live connection to the session and seat it occupies, so a
// disconnect carrying only a connection id finds the affected session
// without scanning.
type Entry struct {
	SessionID string    `json:"session_id"`
	Seat      game.Seat `json:"seat"`
}

// Tracker owns the connection-to-(session, seat) index. Writes happen on the
// same transaction pipeline as the session commit, keeping the index
// consistent with the seat/connection fields it mirrors.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker { return &Tracker{rdb: rdb} }

func key(connID string) string { return "arena:conn:" + strings.TrimSpace(connID) }

// Set records the entry on the given command surface.
func (t *Tracker) Set(ctx context.Context, c redis.Cmdable, connID string, e Entry) error {
	if strings.TrimSpace(connID) == "" {
		return nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.Set(ctx, key(connID), raw, entryTTL).Err()
}

// Lookup resolves a connection id; unknown connections return (nil, nil).
func (t *Tracker) Lookup(ctx context.Context, connID string) (*Entry, error) {
	raw, err := t.rdb.Get(ctx, key(connID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete drops the entry on disconnect.
func (t *Tracker) Delete(ctx context.Context, c redis.Cmdable, connID string) {
	if strings.TrimSpace(connID) == "" {
		return
	}
	c.Del(ctx, key(connID))
}
