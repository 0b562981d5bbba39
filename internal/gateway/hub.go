package gateway

import (
	"context"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tictac-server/internal/notify"
	"tictac-server/pkg/arenadto"
)

// ServerMessage is the single outbound frame shape.
type ServerMessage struct {
	Type     string                `json:"type"`
	Result   *arenadto.Result      `json:"result,omitempty"`
	Snapshot *arenadto.Snapshot    `json:"snapshot,omitempty"`
	Event    *notify.Event         `json:"event,omitempty"`
	Queue    *arenadto.QueueResult `json:"queue,omitempty"`
}

type client struct {
	id         string
	playerID   string
	playerName string
	ws         *websocket.Conn

	writeMu sync.Mutex // one writer at a time per connection
}

func (c *client) send(ctx context.Context, msg *ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, c.ws, msg)
}

// Hub tracks live connections and their session subscriptions, and acts as
// an in-process notifier: committed snapshots fan out to every connection
// bound to the session.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*client
	bySession map[string]map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*client),
		bySession: make(map[string]map[string]*client),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for sid, subs := range h.bySession {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.bySession, sid)
		}
	}
}

// bind subscribes a connection to a session's broadcasts.
func (h *Hub) bind(connID, sessionID string) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	subs := h.bySession[sessionID]
	if subs == nil {
		subs = make(map[string]*client)
		h.bySession[sessionID] = subs
	}
	subs[connID] = c
}

func (h *Hub) subscribers(sessionID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.bySession[sessionID]
	out := make([]*client, 0, len(subs))
	for _, c := range subs {
		out = append(out, c)
	}
	return out
}

// PublishSnapshot delivers a committed snapshot to every subscriber of the
// session. Delivery failures are left to the read loop's close handling.
func (h *Hub) PublishSnapshot(ctx context.Context, snap *arenadto.Snapshot) error {
	for _, c := range h.subscribers(snap.SessionID) {
		_ = c.send(ctx, &ServerMessage{Type: "snapshot", Snapshot: snap})
	}
	return nil
}

// PublishEvent delivers session events. A pairing event first binds the
// paired connections to the new session so both players receive the same
// snapshots from then on.
func (h *Hub) PublishEvent(ctx context.Context, ev *notify.Event) error {
	if ev.Type == notify.EventQueuePaired {
		for _, connID := range ev.ConnIDs {
			h.bind(connID, ev.SessionID)
		}
	}
	for _, c := range h.subscribers(ev.SessionID) {
		_ = c.send(ctx, &ServerMessage{Type: "event", Event: ev})
	}
	return nil
}
