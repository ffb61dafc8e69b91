package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/engine"
	"github.com/alexlabrioche/modular-strategies/internal/store"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// FromClient applies a command. Reply, when set, receives the engine's verdict
// and must have room for one value.
type FromClient struct {
	Cmd   engine.Command
	Reply chan error
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// tick is sent by the countdown forwarder; gen ties it to one countdown.
type tick struct {
	gen uint64
	at  time.Time
}

func (tick) isLobbyMsg() {}

type Snapshot struct {
	Code    string
	Version int
	State   engine.State
}

type View struct {
	Code       string
	Version    int
	NumClients int
	State      engine.State
}

type Options struct {
	Code     string
	Settings engine.Settings
	Catalog  *catalog.Catalog
	Rand     engine.Rand
	Store    store.Store
	Logger   *zap.Logger
	Tickers  TickerFactory
	Now      func() time.Time
}

type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	env     engine.Env
	store   store.Store
	log     *zap.Logger

	tickers   TickerFactory
	now       func() time.Time
	countdown *countdown
	gen       uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = engine.NewRand()
	}
	if opts.Tickers == nil {
		opts.Tickers = SystemTickers{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &Lobby{
		code:    opts.Code,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   engine.NewState(opts.Settings),
		clients: make(map[string]chan Snapshot),
		env:     engine.Env{Catalog: opts.Catalog, Rand: opts.Rand},
		store:   opts.Store,
		log:     opts.Logger.With(zap.String("lobby", opts.Code)),
		tickers: opts.Tickers,
		now:     opts.Now,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	l.restore()

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				err := l.apply(msg.Cmd, l.now())
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case tick:
				l.onTick(msg)

			case GetState:
				msg.Reply <- View{
					Code:       l.code,
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs cmd through the engine and, on success, swaps the countdown,
// persists and broadcasts. at anchors any countdown started by cmd.
func (l *Lobby) apply(cmd engine.Command, at time.Time) error {
	events, next, err := engine.Apply(l.state, cmd, l.env)
	if err != nil {
		if cmd.Type != engine.CmdTick {
			l.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		}
		return err
	}

	l.state = next
	l.version++
	l.syncCountdown(events, at)
	if shouldPersist(events) {
		l.persist()
	}
	for _, e := range events {
		if e.Type == engine.EvtPhaseAdvanced {
			l.log.Info("draw phase started",
				zap.Int("round", l.state.Round),
				zap.Int("active_players", len(l.state.ActivePlayers)),
				zap.Int("seconds", e.Seconds))
		}
	}
	l.broadcast(l.snapshot())
	return nil
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Code: l.code, Version: l.version, State: l.state}
}

func (l *Lobby) shutdown() {
	l.stopCountdown()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Close stops the lobby from any goroutine.
func (l *Lobby) Close() { l.cancel() }

// Done is closed once the loop has exited and every client outbox is closed.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send applies cmd and waits for the verdict.
func (l *Lobby) Send(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-l.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the current state without racing the loop.
func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
