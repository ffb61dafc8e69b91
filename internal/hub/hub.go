package hub

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/engine"
	"github.com/alexlabrioche/modular-strategies/internal/lobby"
)

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

// CreateLobby returns the existing lobby when Code is taken.
type CreateLobby struct {
	Code     string
	Settings engine.Settings // zero fields fall back to the hub defaults
	Reply    chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code     string
	Settings engine.Settings // only used if creation happens
	Reply    chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ListLobbies struct {
	Reply chan []string
}

type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	defaults lobby.Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// NewHub starts the registry. defaults is the template every lobby is built
// from; Code and Settings are filled per lobby.
func NewHub(parent context.Context, defaults lobby.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if defaults.Logger == nil {
		defaults.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		defaults: defaults,
		log:      defaults.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Get returns the live lobby for code, or nil when there is none.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return roundTrip(ctx, h, GetLobby{Code: code, Reply: reply}, reply)
}

// Create starts a lobby under code, or returns the one already there.
func (h *Hub) Create(ctx context.Context, code string, settings engine.Settings) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return roundTrip(ctx, h, CreateLobby{Code: code, Settings: settings, Reply: reply}, reply)
}

func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	return roundTrip(ctx, h, ListLobbies{Reply: reply}, reply)
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	select {
	case h.inbox <- RemoveLobby{Code: code}:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// roundTrip sends msg and waits on reply, giving up once the hub is gone.
func roundTrip[T any](ctx context.Context, h *Hub, msg HubMsg, reply <-chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.ensure(msg.Code, msg.Settings)

			case GetLobby:
				lb := h.lobbies[msg.Code]
				if lb != nil && isClosed(lb) {
					delete(h.lobbies, msg.Code)
					lb = nil
				}
				msg.Reply <- lb // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.Code, msg.Settings)

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Close()
					delete(h.lobbies, msg.Code)
					h.log.Info("lobby removed", zap.String("lobby", msg.Code))
				}

			case ListLobbies:
				codes := make([]string, 0, len(h.lobbies))
				for code, lb := range h.lobbies {
					if !isClosed(lb) {
						codes = append(codes, code)
					}
				}
				slices.Sort(codes)
				msg.Reply <- codes

			case ShutdownHub:
				h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ensure(code string, settings engine.Settings) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil && !isClosed(lb) {
		return lb
	}

	opts := h.defaults
	opts.Code = code
	opts.Settings = mergeSettings(h.defaults.Settings, settings)
	// each lobby owns its random source
	opts.Rand = nil

	lb := lobby.NewLobby(h.ctx, opts)
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("lobby", code))
	return lb
}

func (h *Hub) closeAll() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
}

func mergeSettings(defaults, override engine.Settings) engine.Settings {
	if override.PreparationSec > 0 {
		defaults.PreparationSec = override.PreparationSec
	}
	if override.DrawIntervalSec > 0 {
		defaults.DrawIntervalSec = override.DrawIntervalSec
	}
	if override.MinPlayers > 0 {
		defaults.MinPlayers = override.MinPlayers
	}
	if override.MaxPlayers > 0 {
		defaults.MaxPlayers = override.MaxPlayers
	}
	return defaults
}

func isClosed(lb *lobby.Lobby) bool {
	select {
	case <-lb.Done():
		return true
	default:
		return false
	}
}
