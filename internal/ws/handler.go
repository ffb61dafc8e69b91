package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alexlabrioche/modular-strategies/internal/hub"
	"github.com/alexlabrioche/modular-strategies/internal/lobby"
	"github.com/alexlabrioche/modular-strategies/internal/types"
	pub "github.com/alexlabrioche/modular-strategies/pkg/types"
)

const (
	readTimeout  = 10 * time.Minute
	writeTimeout = 3 * time.Second
	replyTimeout = 5 * time.Second
)

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*".
	OriginPatterns []string
	// CommandsPerSecond caps how fast one connection may send commands.
	CommandsPerSecond float64
	Burst             int
}

func Handler(h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CommandsPerSecond <= 0 {
		opts.CommandsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := h.Get(r.Context(), code)
		if errors.Is(err, hub.ErrClosed) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		clog := log.With(zap.String("lobby", code), zap.String("client", clientID))

		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()
		clog.Info("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			ended := pump(writeCtx, out, lb.Done(), func(snap lobby.Snapshot) {
				state := types.NewStateSnapshot(snap.Code, snap.Version, snap.State)
				send(writeCtx, conn, types.ServerMessage{Type: pub.MsgStateSnapshot, Version: snap.Version, State: &state})
			})
			if ended {
				conn.Close(websocket.StatusGoingAway, "lobby closed")
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(opts.CommandsPerSecond), opts.Burst)

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Info("client left")
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			if !limiter.Allow() {
				send(r.Context(), conn, types.ServerMessage{Type: pub.MsgError, Error: "rate limited"})
				continue
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(r.Context(), conn, types.ServerMessage{Type: pub.MsgError, Error: "bad json"})
				continue
			}

			cmd, ok := types.ToEngineCommand(cm)
			if !ok {
				send(r.Context(), conn, types.ServerMessage{Type: pub.MsgError, Command: cm.Type, Error: "unknown type"})
				continue
			}

			sendCtx, cancel := context.WithTimeout(r.Context(), replyTimeout)
			err = lb.Send(sendCtx, cmd)
			cancel()
			if errors.Is(err, lobby.ErrClosed) {
				return
			}
			if err != nil {
				// rejection goes back to this client only
				send(r.Context(), conn, types.ServerMessage{Type: pub.MsgError, Command: cm.Type, Error: err.Error()})
			}
		}
	}
}

// pump forwards snapshots to write until the outbox closes or the lobby exits;
// both report true. A lobby that exits with our Join still queued never
// closes out.
func pump(ctx context.Context, out <-chan lobby.Snapshot, lobbyDone <-chan struct{}, write func(lobby.Snapshot)) bool {
	for {
		select {
		case snap, ok := <-out:
			if !ok {
				// lobby closed or dropped us as a slow reader
				return true
			}
			write(snap)
		case <-lobbyDone:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
