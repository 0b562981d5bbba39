package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tictac-server/internal/arena"
	"tictac-server/internal/obslog"
	"tictac-server/internal/queue"
	"tictac-server/pkg/arenadto"
)

// ClientEvent is one inbound frame: a join/move/restart/queue action.
type ClientEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Position  *int   `json:"position,omitempty"`
}

// Server terminates client WebSockets and routes their events into the
// engine. Identity resolution is external: the gateway trusts the player_id
// and username presented at connect.
type Server struct {
	hub   *Hub
	arena *arena.Manager
	queue *queue.Manager
}

func NewServer(hub *Hub, a *arena.Manager, q *queue.Manager) *Server {
	return &Server{hub: hub, arena: a, queue: q}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player_id"))
	playerName := strings.TrimSpace(r.URL.Query().Get("username"))
	if playerID == "" {
		http.Error(w, "player_id required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := &client{
		id:         uuid.NewString(),
		playerID:   playerID,
		playerName: playerName,
		ws:         ws,
	}
	s.hub.add(c)
	obslog.L().Info("ws_connect",
		zap.String("conn_id", c.id),
		zap.String("player_id", playerID),
	)

	ctx := r.Context()
	for {
		var ev ClientEvent
		if err := wsjson.Read(ctx, ws, &ev); err != nil {
			break
		}
		s.dispatch(ctx, c, &ev)
	}

	s.hub.remove(c.id)
	// the request context is gone once the socket closes
	dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.arena.Disconnect(dctx, c.id); err != nil {
		obslog.L().Warn("ws_disconnect_error",
			zap.String("conn_id", c.id),
			zap.Error(err),
		)
	}
	_ = s.queue.Leave(dctx, playerID)
	obslog.L().Info("ws_close", zap.String("conn_id", c.id))
	_ = ws.CloseNow()
}

func (s *Server) dispatch(ctx context.Context, c *client, ev *ClientEvent) {
	switch ev.Type {
	case "create":
		res, err := s.arena.CreateGame(ctx, c.playerID, c.playerName, c.id)
		s.reply(ctx, c, s.bindOnSuccess(c, res, err))
	case "join":
		res, err := s.arena.JoinGame(ctx, ev.SessionID, c.playerID, c.playerName, c.id)
		s.reply(ctx, c, s.bindOnSuccess(c, res, err))
	case "reconnect":
		sessionID := ev.SessionID
		if sessionID == "" {
			sess, err := s.arena.FindLiveSession(ctx, c.playerID)
			if err != nil {
				s.replyError(ctx, c, err)
				return
			}
			if sess == nil {
				s.replyResult(ctx, c, arenadto.Failure(arenadto.CodeNotFound, "no live session"))
				return
			}
			sessionID = sess.ID
		}
		res, err := s.arena.Reconnect(ctx, sessionID, c.playerID, c.id)
		s.reply(ctx, c, s.bindOnSuccess(c, res, err))
	case "move":
		if ev.Position == nil {
			s.replyResult(ctx, c, arenadto.Failure(arenadto.CodeInvalidRequest, "position required"))
			return
		}
		s.reply(ctx, c, splitResult(s.arena.PlayMove(ctx, ev.SessionID, c.playerID, *ev.Position)))
	case "restart_request":
		s.reply(ctx, c, splitResult(s.arena.RequestRestart(ctx, ev.SessionID, c.playerID)))
	case "restart_confirm":
		s.reply(ctx, c, splitResult(s.arena.ConfirmRestart(ctx, ev.SessionID, c.playerID)))
	case "restart_decline":
		s.reply(ctx, c, splitResult(s.arena.DeclineRestart(ctx, ev.SessionID, c.playerID)))
	case "queue_join":
		qr, err := s.queue.Join(ctx, c.playerID, c.playerName, c.id)
		if err != nil {
			s.replyError(ctx, c, err)
			return
		}
		if qr.Paired {
			s.hub.bind(c.id, qr.SessionID)
		}
		_ = c.send(ctx, &ServerMessage{Type: "queue", Queue: qr})
	case "queue_leave":
		if err := s.queue.Leave(ctx, c.playerID); err != nil {
			s.replyError(ctx, c, err)
			return
		}
		_ = c.send(ctx, &ServerMessage{Type: "queue", Queue: &arenadto.QueueResult{}})
	default:
		s.replyResult(ctx, c, arenadto.Failure(arenadto.CodeInvalidRequest, "unknown event type"))
	}
}

type replyPair struct {
	res *arenadto.Result
	err error
}

func splitResult(res *arenadto.Result, err error) replyPair { return replyPair{res: res, err: err} }

func (s *Server) bindOnSuccess(c *client, res *arenadto.Result, err error) replyPair {
	if err == nil && res != nil && res.OK && res.Snapshot != nil {
		s.hub.bind(c.id, res.Snapshot.SessionID)
	}
	return replyPair{res: res, err: err}
}

func (s *Server) reply(ctx context.Context, c *client, p replyPair) {
	if p.err != nil {
		s.replyError(ctx, c, p.err)
		return
	}
	if p.res == nil {
		return
	}
	s.replyResult(ctx, c, p.res)
}

func (s *Server) replyResult(ctx context.Context, c *client, res *arenadto.Result) {
	_ = c.send(ctx, &ServerMessage{Type: "result", Result: res})
}

// replyError reports an infrastructure failure; the caller owns retry and
// backoff for these, so no rule code is attached.
func (s *Server) replyError(ctx context.Context, c *client, err error) {
	obslog.L().Error("gateway_error",
		zap.String("conn_id", c.id),
		zap.Error(err),
	)
	_ = c.send(ctx, &ServerMessage{Type: "error", Result: &arenadto.Result{OK: false, Message: "internal error"}})
}
