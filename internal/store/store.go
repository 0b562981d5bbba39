package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tictac-server/internal/game"
)

// Retention is external policy; the TTL only keeps dead keys from
// accumulating, matching the session TTL on every companion key.
const (
	SessionTTL = 24 * time.Hour
)

// Store persists sessions and restart votes in Redis. Sessions are JSON
// blobs under a per-session key; all mutations go through the controller's
// WATCH transaction, never through unsynchronized writes.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// NewFromURL dials Redis from a redis:// URL and verifies the connection.
func NewFromURL(ctx context.Context, redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Client() *redis.Client { return s.rdb }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func SessionKey(id string) string { return "arena:session:" + strings.TrimSpace(id) }

func PlayerIndexKey(playerID string) string {
	return "arena:index:player:" + strings.TrimSpace(playerID)
}

func VoteKey(sessionID string, seat game.Seat) string {
	return "arena:restart:" + strings.TrimSpace(sessionID) + ":" + string(seat)
}

// Get loads a session; a missing key returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*game.Session, error) {
	return decodeSession(s.rdb.Get(ctx, SessionKey(id)).Bytes())
}

// GetTx loads a session through a WATCH transaction so a concurrent write
// fails the commit.
func (s *Store) GetTx(ctx context.Context, tx *redis.Tx, id string) (*game.Session, error) {
	return decodeSession(tx.Get(ctx, SessionKey(id)).Bytes())
}

func decodeSession(raw []byte, err error) (*game.Session, error) {
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess game.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Put writes the session on the given command surface, which inside a commit
// is the transaction pipeline.
func (s *Store) Put(ctx context.Context, c redis.Cmdable, sess *game.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return c.Set(ctx, SessionKey(sess.ID), raw, SessionTTL).Err()
}

// IndexPlayers records both seated players in the player-to-sessions index
// used by reconnect lookups.
func (s *Store) IndexPlayers(ctx context.Context, c redis.Cmdable, sess *game.Session) {
	for _, pid := range []string{sess.PlayerXID, sess.PlayerOID} {
		if strings.TrimSpace(pid) == "" {
			continue
		}
		key := PlayerIndexKey(pid)
		c.SAdd(ctx, key, sess.ID)
		c.Expire(ctx, key, SessionTTL)
	}
}

// SessionsByPlayer returns the ids of sessions the player has been seated in.
func (s *Store) SessionsByPlayer(ctx context.Context, playerID string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, PlayerIndexKey(playerID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return ids, nil
}

// SetVote records a restart request from the seat, expiring on its own.
func (s *Store) SetVote(ctx context.Context, c redis.Cmdable, sessionID string, seat game.Seat, ttl time.Duration) error {
	return c.Set(ctx, VoteKey(sessionID, seat), "1", ttl).Err()
}

// HasVote reports whether a live restart vote exists for the seat.
func (s *Store) HasVote(ctx context.Context, sessionID string, seat game.Seat) (bool, error) {
	err := s.rdb.Get(ctx, VoteKey(sessionID, seat)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteVote consumes a vote; votes are one-shot.
func (s *Store) DeleteVote(ctx context.Context, c redis.Cmdable, sessionID string, seat game.Seat) {
	c.Del(ctx, VoteKey(sessionID, seat))
}
