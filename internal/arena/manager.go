package arena

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tictac-server/internal/game"
	"tictac-server/internal/notify"
	"tictac-server/internal/obslog"
	"tictac-server/internal/presence"
	"tictac-server/internal/stats"
	"tictac-server/internal/store"
	"tictac-server/pkg/arenadto"
)

const (
	defaultMaxAttempts = 5
	defaultVoteTTL     = 5 * time.Minute
)

// Flow-control sentinels used inside commit closures.
var (
	errNoSession = errors.New("no such session")
	errNoVote    = errors.New("no pending restart request")
	errNoChange  = errors.New("no change")
)

// ErrContention is surfaced when a caller loses the commit race on every
// attempt up to the bound. The caller's intent was never applied.
var ErrContention = errors.New("commit contention exhausted retries")

// Manager is the concurrency controller: every mutating operation loads the
// session, applies a transition to an in-memory copy and commits it only if
// no concurrent writer won the race, retrying from a fresh read otherwise.
// The version counter increments by exactly one per committed mutation.
type Manager struct {
	rdb      *redis.Client
	store    *store.Store
	track    *presence.Tracker
	stats    *stats.Repository
	notifier notify.Notifier

	maxAttempts int
	voteTTL     time.Duration
}

type Option func(*Manager)

func WithStats(r *stats.Repository) Option {
	return func(m *Manager) { m.stats = r }
}

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func WithVoteTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.voteTTL = d
		}
	}
}

func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		rdb:         st.Client(),
		store:       st,
		track:       presence.NewTracker(st.Client()),
		notifier:    notify.Nop{},
		maxAttempts: defaultMaxAttempts,
		voteTTL:     defaultVoteTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tracker exposes the presence index for transports that resolve their own
// connection ids.
func (m *Manager) Tracker() *presence.Tracker { return m.track }

// update is the optimistic read-modify-write primitive. fn mutates the
// session and may queue companion writes (presence, votes) on the same
// transaction pipeline so they commit atomically with it. A lost race
// retries from a fresh read; rule errors abort without writing.
func (m *Manager) update(ctx context.Context, sessionID string, fn func(sess *game.Session, pipe redis.Pipeliner) error) (*game.Session, error) {
	key := store.SessionKey(sessionID)
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		var committed *game.Session
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			sess, err := m.store.GetTx(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if sess == nil {
				return errNoSession
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if err := fn(sess, pipe); err != nil {
					return err
				}
				sess.Version++
				return m.store.Put(ctx, pipe, sess)
			})
			if err != nil {
				return err
			}
			committed = sess
			return nil
		}, key)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrContention
}

// CreateGame starts a session with the creator seated as X.
func (m *Manager) CreateGame(ctx context.Context, playerID, playerName, connID string) (*arenadto.Result, error) {
	sess := game.NewSession(playerID, playerName, connID)
	sess.Version = 1
	if err := m.writeNew(ctx, sess); err != nil {
		return nil, err
	}
	obslog.L().Info("game_create",
		zap.String("session_id", sess.ID),
		zap.String("player_id", playerID),
	)
	return m.commitResult(ctx, sess), nil
}

// CreatePaired starts a session for a matchmaking pair: the waiting player
// takes seat X, the caller seat O, and the session is immediately in
// progress.
func (m *Manager) CreatePaired(ctx context.Context, xID, xName, xConn, oID, oName, oConn string) (*arenadto.Result, error) {
	sess := game.NewPairedSession(xID, xName, xConn, oID, oName, oConn)
	sess.Version = 1
	if err := m.writeNew(ctx, sess); err != nil {
		return nil, err
	}
	obslog.L().Info("game_create_paired",
		zap.String("session_id", sess.ID),
		zap.String("player_x", xID),
		zap.String("player_o", oID),
	)
	m.publishEvent(ctx, &notify.Event{
		Type:      notify.EventQueuePaired,
		SessionID: sess.ID,
		ConnIDs:   []string{xConn, oConn},
	})
	return m.commitResult(ctx, sess), nil
}

func (m *Manager) writeNew(ctx context.Context, sess *game.Session) error {
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := m.store.Put(ctx, pipe, sess); err != nil {
			return err
		}
		m.store.IndexPlayers(ctx, pipe, sess)
		if sess.PlayerXConn != "" {
			if err := m.track.Set(ctx, pipe, sess.PlayerXConn, presence.Entry{SessionID: sess.ID, Seat: game.SeatX}); err != nil {
				return err
			}
		}
		if sess.PlayerOConn != "" {
			if err := m.track.Set(ctx, pipe, sess.PlayerOConn, presence.Entry{SessionID: sess.ID, Seat: game.SeatO}); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// JoinGame seats the player, or refreshes their connection when they already
// hold a seat.
func (m *Manager) JoinGame(ctx context.Context, sessionID, playerID, playerName, connID string) (*arenadto.Result, error) {
	var seat game.Seat
	sess, err := m.update(ctx, sessionID, func(sess *game.Session, pipe redis.Pipeliner) error {
		s, jerr := sess.Join(playerID, playerName, connID)
		if jerr != nil {
			return jerr
		}
		seat = s
		m.store.IndexPlayers(ctx, pipe, sess)
		if connID != "" {
			return m.track.Set(ctx, pipe, connID, presence.Entry{SessionID: sess.ID, Seat: s})
		}
		return nil
	})
	if res, err := m.resolve(err); res != nil || err != nil {
		return res, err
	}
	obslog.L().Info("game_join",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("seat", string(seat)),
	)
	return m.commitResult(ctx, sess), nil
}

// PlayMove applies one placement. Terminal outcomes trigger the statistics
// update after the commit; its failure is logged, never propagated.
func (m *Manager) PlayMove(ctx context.Context, sessionID, playerID string, position int) (*arenadto.Result, error) {
	sess, err := m.update(ctx, sessionID, func(sess *game.Session, pipe redis.Pipeliner) error {
		return sess.ApplyMove(playerID, position)
	})
	if res, err := m.resolve(err); res != nil || err != nil {
		return res, err
	}
	obslog.L().Info("game_move",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int("position", position),
		zap.String("status", string(sess.Status)),
		zap.Int64("version", sess.Version),
	)
	if sess.Terminal() {
		m.persistIfFinal(ctx, sess)
	}
	return m.commitResult(ctx, sess), nil
}

// Disconnect routes a connection drop to its session through the presence
// index. Unknown connections are a no-op.
func (m *Manager) Disconnect(ctx context.Context, connID string) (*arenadto.Result, error) {
	entry, err := m.track.Lookup(ctx, connID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	sess, err := m.update(ctx, entry.SessionID, func(sess *game.Session, pipe redis.Pipeliner) error {
		if !sess.Disconnect(connID) {
			return errNoChange
		}
		m.track.Delete(ctx, pipe, connID)
		return nil
	})
	if errors.Is(err, errNoChange) || errors.Is(err, errNoSession) {
		// stale index entry; reconcile lazily
		m.track.Delete(ctx, m.rdb, connID)
		return nil, nil
	}
	if res, err := m.resolve(err); res != nil || err != nil {
		return res, err
	}
	obslog.L().Info("game_disconnect",
		zap.String("session_id", sess.ID),
		zap.String("conn_id", connID),
		zap.String("status", string(sess.Status)),
	)
	return m.commitResult(ctx, sess), nil
}

// Reconnect attaches a new connection to the player's seat.
func (m *Manager) Reconnect(ctx context.Context, sessionID, playerID, connID string) (*arenadto.Result, error) {
	sess, err := m.update(ctx, sessionID, func(sess *game.Session, pipe redis.Pipeliner) error {
		if err := sess.Reconnect(playerID, connID); err != nil {
			return err
		}
		return m.track.Set(ctx, pipe, connID, presence.Entry{SessionID: sess.ID, Seat: sess.SeatOf(playerID)})
	})
	if res, err := m.resolve(err); res != nil || err != nil {
		return res, err
	}
	obslog.L().Info("game_reconnect",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
	)
	return m.commitResult(ctx, sess), nil
}

// RequestRestart records a restart vote once the match is over. Requesting
// mid-game is a no-op, not an error.
func (m *Manager) RequestRestart(ctx context.Context, sessionID, playerID string) (*arenadto.Result, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return arenadto.Failure(arenadto.CodeNotFound, "no such session"), nil
	}
	seat := sess.SeatOf(playerID)
	if seat == "" {
		return arenadto.Failure(arenadto.CodeInvalidRequest, "player is not in this game"), nil
	}
	if sess.Status != game.StatusCompleted && sess.Status != game.StatusDraw {
		return arenadto.Success(SnapshotOf(sess)), nil
	}
	if err := m.store.SetVote(ctx, m.rdb, sessionID, seat, m.voteTTL); err != nil {
		return nil, err
	}
	obslog.L().Info("restart_request",
		zap.String("session_id", sessionID),
		zap.String("seat", string(seat)),
	)
	m.publishEvent(ctx, &notify.Event{
		Type:      notify.EventRestartRequested,
		SessionID: sessionID,
		Seat:      string(seat),
		PlayerID:  playerID,
	})
	return arenadto.Success(SnapshotOf(sess)), nil
}

// ConfirmRestart resets the session when a live vote from the opposing seat
// exists, consuming the vote in the same commit. Without one it does nothing.
// Both the session key and the vote key are watched so a concurrent decline
// or a rival commit forces a fresh retry.
func (m *Manager) ConfirmRestart(ctx context.Context, sessionID, playerID string) (*arenadto.Result, error) {
	sess, err := m.confirmRestart(ctx, sessionID, playerID)
	if errors.Is(err, errNoVote) {
		// no pending request; session state untouched
		return arenadto.Failure(arenadto.CodeInvalidRequest, "no pending restart request"), nil
	}
	if res, err := m.resolve(err); res != nil || err != nil {
		return res, err
	}
	obslog.L().Info("restart_confirm",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int64("version", sess.Version),
	)
	return m.commitResult(ctx, sess), nil
}

func (m *Manager) confirmRestart(ctx context.Context, sessionID, playerID string) (*game.Session, error) {
	prior, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, errNoSession
	}
	seat := prior.SeatOf(playerID)
	if seat == "" {
		return nil, game.ErrNotParticipant
	}
	voteKey := store.VoteKey(sessionID, seat.Other())

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		var committed *game.Session
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			sess, err := m.store.GetTx(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if sess == nil {
				return errNoSession
			}
			// only a finished match restarts; a vote raced onto a live
			// game is inert and ages out on its own
			if sess.Status != game.StatusCompleted && sess.Status != game.StatusDraw {
				return errNoVote
			}
			if err := tx.Get(ctx, voteKey).Err(); err == redis.Nil {
				return errNoVote
			} else if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				sess.Reset()
				sess.Version++
				pipe.Del(ctx, voteKey)
				return m.store.Put(ctx, pipe, sess)
			})
			if err != nil {
				return err
			}
			committed = sess
			return nil
		}, store.SessionKey(sessionID), voteKey)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrContention
}

// DeclineRestart drops the opponent's vote and notifies the requester; the
// session itself is untouched.
func (m *Manager) DeclineRestart(ctx context.Context, sessionID, playerID string) (*arenadto.Result, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return arenadto.Failure(arenadto.CodeNotFound, "no such session"), nil
	}
	seat := sess.SeatOf(playerID)
	if seat == "" {
		return arenadto.Failure(arenadto.CodeInvalidRequest, "player is not in this game"), nil
	}
	m.store.DeleteVote(ctx, m.rdb, sessionID, seat.Other())
	obslog.L().Info("restart_decline",
		zap.String("session_id", sessionID),
		zap.String("seat", string(seat)),
	)
	m.publishEvent(ctx, &notify.Event{
		Type:      notify.EventRestartDeclined,
		SessionID: sessionID,
		Seat:      string(seat),
		PlayerID:  playerID,
	})
	return arenadto.Success(SnapshotOf(sess)), nil
}

// GetState returns the current snapshot, or nil for an unknown session.
func (m *Manager) GetState(ctx context.Context, sessionID string) (*arenadto.Snapshot, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return SnapshotOf(sess), nil
}

// FindLiveSession returns the player's most recently touched non-terminal
// session, for reconnect flows that only know the player identity.
func (m *Manager) FindLiveSession(ctx context.Context, playerID string) (*game.Session, error) {
	ids, err := m.store.SessionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var live []*game.Session
	for _, id := range ids {
		sess, gerr := m.store.Get(ctx, id)
		if gerr == nil && sess != nil && !sess.Terminal() {
			live = append(live, sess)
		}
	}
	if len(live) == 0 {
		return nil, nil
	}
	sort.Slice(live, func(i, j int) bool { return live[i].LastMoveAt.After(live[j].LastMoveAt) })
	return live[0], nil
}

// resolve maps commit-closure errors to discriminated results. Infrastructure
// errors pass through untouched; rule violations and contention become named
// failures.
func (m *Manager) resolve(err error) (*arenadto.Result, error) {
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, errNoSession):
		return arenadto.Failure(arenadto.CodeNotFound, "no such session"), nil
	case errors.Is(err, ErrContention):
		return arenadto.Failure(arenadto.CodeContention, "too many concurrent updates, try again"), nil
	case errors.Is(err, game.ErrGameFull):
		return arenadto.Failure(arenadto.CodeGameFull, err.Error()), nil
	case errors.Is(err, game.ErrInvalidState):
		return arenadto.Failure(arenadto.CodeInvalidState, err.Error()), nil
	case errors.Is(err, game.ErrNotYourTurn):
		return arenadto.Failure(arenadto.CodeNotYourTurn, err.Error()), nil
	case errors.Is(err, game.ErrOutOfRange):
		return arenadto.Failure(arenadto.CodeOutOfRange, err.Error()), nil
	case errors.Is(err, game.ErrPositionTaken):
		return arenadto.Failure(arenadto.CodePositionTaken, err.Error()), nil
	case errors.Is(err, game.ErrNotParticipant):
		return arenadto.Failure(arenadto.CodeInvalidRequest, err.Error()), nil
	default:
		return nil, err
	}
}

// commitResult publishes the committed snapshot and wraps it as a success.
func (m *Manager) commitResult(ctx context.Context, sess *game.Session) *arenadto.Result {
	snap := SnapshotOf(sess)
	if err := m.notifier.PublishSnapshot(ctx, snap); err != nil {
		obslog.L().Warn("snapshot_publish_error",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
	return arenadto.Success(snap)
}

func (m *Manager) publishEvent(ctx context.Context, ev *notify.Event) {
	if err := m.notifier.PublishEvent(ctx, ev); err != nil {
		obslog.L().Warn("event_publish_error",
			zap.String("session_id", ev.SessionID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
	}
}

func (m *Manager) persistIfFinal(ctx context.Context, sess *game.Session) {
	if m.stats == nil || !sess.Terminal() {
		return
	}
	if err := m.stats.RecordResult(ctx, sess); err != nil {
		obslog.L().Error("stats_persist_error",
			zap.String("session_id", sess.ID),
			zap.String("status", string(sess.Status)),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("stats_persist",
		zap.String("session_id", sess.ID),
		zap.String("status", string(sess.Status)),
	)
}
