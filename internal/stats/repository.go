package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"tictac-server/internal/game"
)

// Repository tallies per-player results in Postgres. It is invoked once per
// terminal transition; a write failure never rolls back the session commit
// that triggered it.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordResult upserts both players' win/loss/draw tallies for a finished
// session. Sessions without two seated players are skipped.
func (r *Repository) RecordResult(ctx context.Context, sess *game.Session) error {
	if r == nil || r.db == nil || sess == nil {
		return nil
	}
	if sess.PlayerXID == "" || sess.PlayerOID == "" {
		return nil
	}

	type delta struct {
		playerID            string
		wins, losses, draws int
	}
	var rows []delta
	switch sess.Status {
	case game.StatusCompleted:
		winner, loser := sess.PlayerXID, sess.PlayerOID
		if sess.Winner == game.SeatO {
			winner, loser = sess.PlayerOID, sess.PlayerXID
		}
		rows = []delta{{playerID: winner, wins: 1}, {playerID: loser, losses: 1}}
	case game.StatusDraw:
		rows = []delta{{playerID: sess.PlayerXID, draws: 1}, {playerID: sess.PlayerOID, draws: 1}}
	default:
		return nil
	}

	const q = `INSERT INTO player_stats (
	    player_id, wins, losses, draws, total_games, win_rate, updated_at
	  ) VALUES (
	    $1, $2, $3, $4, 1, $2::double precision, NOW()
	  ) ON CONFLICT (player_id) DO UPDATE SET
	    wins = player_stats.wins + EXCLUDED.wins,
	    losses = player_stats.losses + EXCLUDED.losses,
	    draws = player_stats.draws + EXCLUDED.draws,
	    total_games = player_stats.total_games + 1,
	    win_rate = (player_stats.wins + EXCLUDED.wins)::double precision
	      / (player_stats.total_games + 1),
	    updated_at = NOW()`

	for _, d := range rows {
		if _, err := r.db.ExecContext(ctx, q, d.playerID, d.wins, d.losses, d.draws); err != nil {
			return fmt.Errorf("record result for %s: %w", d.playerID, err)
		}
	}
	return nil
}
