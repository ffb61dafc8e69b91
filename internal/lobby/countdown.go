package lobby

import (
	"time"

	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/engine"
)

const tickPeriod = time.Second

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory interface {
	NewTicker(d time.Duration) Ticker
}

// SystemTickers hands out real time.Tickers.
type SystemTickers struct{}

func (SystemTickers) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// countdown is the lobby's single timer handle. Elapsed time is measured from
// anchor rather than counted per fire, so delayed ticks catch up.
type countdown struct {
	gen    uint64
	anchor time.Time
	ticker Ticker
	stop   chan struct{}
}

// syncCountdown keeps exactly one live ticker while the engine is running.
func (l *Lobby) syncCountdown(events []engine.Event, at time.Time) {
	if !l.state.Running {
		l.stopCountdown()
		return
	}
	if l.countdown == nil ||
		engine.ContainsEvent(events, engine.EvtTimerStarted) ||
		engine.ContainsEvent(events, engine.EvtTimerRestarted) ||
		engine.ContainsEvent(events, engine.EvtPhaseAdvanced) ||
		engine.ContainsEvent(events, engine.EvtGameResumed) {
		l.startCountdown(at)
	}
}

func (l *Lobby) startCountdown(anchor time.Time) {
	l.stopCountdown()
	l.gen++
	cd := &countdown{
		gen:    l.gen,
		anchor: anchor,
		ticker: l.tickers.NewTicker(tickPeriod),
		stop:   make(chan struct{}),
	}
	l.countdown = cd
	go l.forward(cd)
}

func (l *Lobby) stopCountdown() {
	if l.countdown == nil {
		return
	}
	close(l.countdown.stop)
	l.countdown.ticker.Stop()
	l.countdown = nil
}

// forward relays ticker fires into the inbox until the countdown is replaced.
func (l *Lobby) forward(cd *countdown) {
	for {
		select {
		case <-cd.stop:
			return
		case <-l.ctx.Done():
			return
		case at := <-cd.ticker.C():
			select {
			case l.inbox <- tick{gen: cd.gen, at: at}:
			case <-cd.stop:
				return
			case <-l.ctx.Done():
				return
			}
		}
	}
}

func (l *Lobby) onTick(t tick) {
	cd := l.countdown
	if cd == nil || t.gen != cd.gen {
		return // superseded countdown
	}
	elapsed := int(t.at.Sub(cd.anchor) / time.Second)
	if elapsed < 1 {
		return
	}
	cd.anchor = cd.anchor.Add(time.Duration(elapsed) * time.Second)

	if err := l.apply(engine.Command{Type: engine.CmdTick, Seconds: elapsed}, cd.anchor); err != nil {
		l.log.Warn("tick rejected", zap.Error(err))
	}
}
