package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tictac-server/internal/arena"
	"tictac-server/internal/obslog"
	"tictac-server/pkg/arenadto"
)

const (
	queueKey    = "arena:queue"
	queueTTL    = 24 * time.Hour
	maxAttempts = 5
)

// ErrContention is surfaced when queue mutations lose the commit race on
// every attempt.
var ErrContention = errors.New("queue contention exhausted retries")

// entry is one waiting player, serialized as JSON on the Redis list.
type entry struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	ConnID     string    `json:"conn_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Manager pairs strangers FIFO. Pairing removes the matched entry in a
// watched transaction, so two simultaneous joiners can never both claim the
// same waiting player.
type Manager struct {
	rdb   *redis.Client
	arena *arena.Manager
}

func NewManager(rdb *redis.Client, a *arena.Manager) *Manager {
	return &Manager{rdb: rdb, arena: a}
}

// Join pairs the caller with the oldest waiting stranger, or appends them to
// the queue. A caller already waiting has their entry replaced, keeping at
// most one entry per identity.
func (m *Manager) Join(ctx context.Context, playerID, playerName, connID string) (*arenadto.QueueResult, error) {
	self := entry{PlayerID: playerID, PlayerName: playerName, ConnID: connID, EnqueuedAt: time.Now().UTC()}
	selfRaw, err := json.Marshal(self)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var matched *entry
		var matchedRaw string
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			matched, matchedRaw = nil, ""
			items, err := tx.LRange(ctx, queueKey, 0, -1).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			var own []string
			for _, raw := range items {
				var e entry
				if jerr := json.Unmarshal([]byte(raw), &e); jerr != nil {
					continue
				}
				if e.PlayerID == playerID {
					own = append(own, raw)
					continue
				}
				if matched == nil {
					matched, matchedRaw = &e, raw
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, raw := range own {
					pipe.LRem(ctx, queueKey, 0, raw)
				}
				if matched != nil {
					pipe.LRem(ctx, queueKey, 1, matchedRaw)
					return nil
				}
				pipe.RPush(ctx, queueKey, selfRaw)
				pipe.Expire(ctx, queueKey, queueTTL)
				return nil
			})
			return err
		}, queueKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if matched == nil {
			obslog.L().Info("queue_join",
				zap.String("player_id", playerID),
			)
			return &arenadto.QueueResult{Paired: false}, nil
		}

		// The matched entry is exclusively ours now; turn it into a session.
		res, err := m.arena.CreatePaired(ctx, matched.PlayerID, matched.PlayerName, matched.ConnID, playerID, playerName, connID)
		if err != nil {
			// put the waiting player back so their entry is not lost
			m.rdb.RPush(ctx, queueKey, matchedRaw)
			return nil, err
		}
		obslog.L().Info("queue_pair",
			zap.String("player_x", matched.PlayerID),
			zap.String("player_o", playerID),
			zap.String("session_id", res.Snapshot.SessionID),
		)
		return &arenadto.QueueResult{Paired: true, SessionID: res.Snapshot.SessionID, Snapshot: res.Snapshot}, nil
	}
	return nil, ErrContention
}

// Leave removes every entry for the identity; absent identities are a no-op.
func (m *Manager) Leave(ctx context.Context, playerID string) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			items, err := tx.LRange(ctx, queueKey, 0, -1).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			var own []string
			for _, raw := range items {
				var e entry
				if json.Unmarshal([]byte(raw), &e) == nil && e.PlayerID == playerID {
					own = append(own, raw)
				}
			}
			if len(own) == 0 {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, raw := range own {
					pipe.LRem(ctx, queueKey, 0, raw)
				}
				return nil
			})
			return err
		}, queueKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err == nil {
			obslog.L().Info("queue_leave", zap.String("player_id", playerID))
		}
		return err
	}
	return ErrContention
}

// Waiting returns the identities currently queued, oldest first.
func (m *Manager) Waiting(ctx context.Context) ([]string, error) {
	items, err := m.rdb.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	var ids []string
	for _, raw := range items {
		var e entry
		if json.Unmarshal([]byte(raw), &e) == nil {
			ids = append(ids, e.PlayerID)
		}
	}
	return ids, nil
}
