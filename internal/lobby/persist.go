package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/engine"
	"github.com/alexlabrioche/modular-strategies/internal/store"
)

const storeTimeout = 2 * time.Second

func shouldPersist(events []engine.Event) bool {
	for _, e := range events {
		switch e.Type {
		case engine.EvtPlayerAdded, engine.EvtPlayerRemoved, engine.EvtPlayerRenamed,
			engine.EvtSettingsChanged, engine.EvtStrategyDrawn, engine.EvtGameReset:
			return true
		}
	}
	return false
}

// restore seeds the setup state from a previous run. Anything unreadable is
// ignored and the defaults stay in place.
func (l *Lobby) restore() {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()

	snap, ok, err := l.store.Load(ctx, l.code)
	if err != nil {
		l.log.Warn("snapshot load failed, starting fresh", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	s := l.state.Clone()
	if n := len(snap.Players); n >= s.Settings.MinPlayers && n <= s.Settings.MaxPlayers && uniqueIDs(snap.Players) {
		s.Players = make([]engine.Player, len(snap.Players))
		for i, p := range snap.Players {
			s.Players[i] = engine.Player{ID: p.ID, Name: engine.NormalizeName(p.Name)}
		}
	}
	if engine.ValidDuration(snap.DrawIntervalSec) {
		s.Settings.DrawIntervalSec = snap.DrawIntervalSec
	}
	if engine.ValidDuration(snap.PreparationSec) {
		s.Settings.PreparationSec = snap.PreparationSec
	}
	s.Used = s.Used[:0]
	for _, k := range snap.Used {
		if l.env.Catalog != nil && l.env.Catalog.Contains(k) {
			s.Used = append(s.Used, k)
		}
	}
	if len(s.Used) >= l.env.Catalog.Size() {
		s.Used = nil
	}

	l.state = s
	l.log.Debug("snapshot restored", zap.Int("players", len(s.Players)), zap.Int("used", len(s.Used)))
}

func (l *Lobby) persist() {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()

	snap := store.Snapshot{
		Players:         l.state.Players,
		Used:            append([]catalog.DrawKey(nil), l.state.Used...),
		DrawIntervalSec: l.state.Settings.DrawIntervalSec,
		PreparationSec:  l.state.Settings.PreparationSec,
	}
	if err := l.store.Save(ctx, l.code, snap); err != nil {
		l.log.Warn("snapshot save failed", zap.Error(err))
	}
}

func uniqueIDs(players []engine.Player) bool {
	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return false
		}
		seen[p.ID] = true
	}
	return true
}
