package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"tictac-server/internal/arena"
	"tictac-server/internal/game"
	"tictac-server/internal/store"
)

func newTestQueue(t *testing.T) (*Manager, *arena.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	st, err := store.NewFromURL(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("store.NewFromURL: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	mgr := arena.NewManager(st)
	return NewManager(st.Client(), mgr), mgr
}

func TestSolitaryJoinerWaits(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	res, err := q.Join(ctx, "u1", "alice", "c1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Paired {
		t.Fatalf("expected to wait, got %+v", res)
	}
	waiting, err := q.Waiting(ctx)
	if err != nil {
		t.Fatalf("Waiting: %v", err)
	}
	if len(waiting) != 1 || waiting[0] != "u1" {
		t.Fatalf("expected [u1], got %v", waiting)
	}
}

func TestRejoinReplacesOwnEntry(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Join(ctx, "u1", "alice", "c1"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := q.Join(ctx, "u1", "alice", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 1 {
		t.Fatalf("expected one entry after rejoin, got %v", waiting)
	}
}

func TestSecondJoinerPairs(t *testing.T) {
	q, mgr := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Join(ctx, "u1", "alice", "c1"); err != nil {
		t.Fatalf("Join u1: %v", err)
	}
	res, err := q.Join(ctx, "u2", "bob", "c2")
	if err != nil {
		t.Fatalf("Join u2: %v", err)
	}
	if !res.Paired || res.SessionID == "" {
		t.Fatalf("expected pairing, got %+v", res)
	}
	// waiting player takes seat X, joiner seat O, play starts immediately
	snap := res.Snapshot
	if snap.PlayerXID != "u1" || snap.PlayerOID != "u2" {
		t.Fatalf("seat assignment wrong: %+v", snap)
	}
	if snap.Status != string(game.StatusInProgress) || snap.CurrentTurn != "X" {
		t.Fatalf("paired session not started: %+v", snap)
	}

	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 0 {
		t.Fatalf("queue not drained: %v", waiting)
	}

	got, err := mgr.GetState(ctx, res.SessionID)
	if err != nil || got == nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestPairingDropsCallersStaleEntries(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Join(ctx, "u1", "alice", "c1"); err != nil {
		t.Fatalf("Join u1: %v", err)
	}
	// a stale entry for u2, as left behind by a lost join race
	stale, err := json.Marshal(entry{PlayerID: "u2", PlayerName: "bob", ConnID: "c-old"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := q.rdb.RPush(ctx, queueKey, stale).Err(); err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}

	res, err := q.Join(ctx, "u2", "bob", "c2")
	if err != nil || !res.Paired {
		t.Fatalf("Join u2: res=%+v err=%v", res, err)
	}
	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 0 {
		t.Fatalf("stale entry survived pairing: %v", waiting)
	}
}

func TestConcurrentJoinersPairExactlyOnce(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	sessions := make([]string, 2)
	for i, id := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := q.Join(ctx, id, id, "c-"+id)
			if err != nil {
				t.Errorf("Join %s: %v", id, err)
				return
			}
			if res.Paired {
				sessions[i] = res.SessionID
			}
		}(i, id)
	}
	wg.Wait()

	paired := 0
	var sid string
	for _, s := range sessions {
		if s != "" {
			paired++
			sid = s
		}
	}
	if paired != 1 {
		t.Fatalf("expected exactly one paired session, got %d (%v)", paired, sessions)
	}
	_ = sid

	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 0 {
		t.Fatalf("queue should end empty, got %v", waiting)
	}
}

func TestLeaveQueue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Join(ctx, "u1", "alice", "c1"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := q.Leave(ctx, "u1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 0 {
		t.Fatalf("expected empty queue, got %v", waiting)
	}
	// absent identity is a no-op
	if err := q.Leave(ctx, "u1"); err != nil {
		t.Fatalf("Leave absent: %v", err)
	}
}

func TestLeaveDoesNotTouchOthers(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Join(ctx, "u1", "alice", "c1"); err != nil {
		t.Fatalf("Join u1: %v", err)
	}
	if err := q.Leave(ctx, "u2"); err != nil {
		t.Fatalf("Leave u2: %v", err)
	}
	waiting, _ := q.Waiting(ctx)
	if len(waiting) != 1 || waiting[0] != "u1" {
		t.Fatalf("expected [u1], got %v", waiting)
	}
}
