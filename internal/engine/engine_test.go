package engine

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
)

// seqRand replays fixed values (mod n), then returns 0.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	if r.i >= len(r.vals) {
		return 0
	}
	v := r.vals[r.i] % n
	r.i++
	return v
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func mustCatalog(t *testing.T, prompts map[catalog.Category][]string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(prompts)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func twoPromptCatalog(t *testing.T) *catalog.Catalog {
	return mustCatalog(t, map[catalog.Category][]string{
		catalog.CategoryPerformance: {"Stand up"},
		catalog.CategorySoundscape:  {"Go quiet"},
	})
}

func namedState(settings Settings, names ...string) State {
	s := NewState(settings)
	s.Players = nil
	for i, n := range names {
		s.Players = append(s.Players, Player{ID: i + 1, Name: n})
	}
	return s
}

func mustApply(t *testing.T, s State, cmd Command, env Env) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd, env)
	if err != nil {
		t.Fatalf("%s: unexpected err %v", cmd.Type, err)
	}
	return events, next
}

func TestStartGameThenPreparationExpires(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	s := namedState(Settings{PreparationSec: 5, DrawIntervalSec: 3}, "Alice", "Bob", "Carol")

	events, s := mustApply(t, s, Command{Type: CmdStartGame}, env)
	if s.Phase != PhasePreparation || s.Remaining != 5 || !s.Running {
		t.Fatalf("after start: got phase=%s remaining=%d running=%v", s.Phase, s.Remaining, s.Running)
	}
	if s.Current == nil || len(s.Used) != 1 {
		t.Fatalf("after start: expected one prompt drawn, got %+v used=%v", s.Current, s.Used)
	}
	if !ContainsEvent(events, EvtTimerStarted) {
		t.Fatalf("expected EvtTimerStarted")
	}
	if !s.AllPlayersActive() {
		t.Fatalf("preparation applies to every player")
	}

	for i := 0; i < 4; i++ {
		_, s = mustApply(t, s, Command{Type: CmdTick, Seconds: 1}, env)
		if s.Phase != PhasePreparation {
			t.Fatalf("tick %d: left preparation early", i+1)
		}
	}

	events, s = mustApply(t, s, Command{Type: CmdTick, Seconds: 1}, env)
	if s.Phase != PhaseDrawing {
		t.Fatalf("after 5 ticks: want drawing, got %s", s.Phase)
	}
	if !ContainsEvent(events, EvtPhaseAdvanced) || !ContainsEvent(events, EvtPlayersSelected) {
		t.Fatalf("expected phase advance events, got %+v", events)
	}
	k := len(s.ActivePlayers)
	if k < 1 || k > 3 {
		t.Fatalf("active players: got %d, want 1..3", k)
	}
	if s.Remaining != 3*k {
		t.Fatalf("remaining: got %d, want %d", s.Remaining, 3*k)
	}
	if s.Round != 1 {
		t.Fatalf("round: got %d, want 1", s.Round)
	}
}

func TestTickCatchUpCrossesSeveralPhases(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	s := namedState(Settings{PreparationSec: 2, DrawIntervalSec: 1}, "Solo")

	_, s = mustApply(t, s, Command{Type: CmdStartGame}, env)
	events, s := mustApply(t, s, Command{Type: CmdTick, Seconds: 4}, env)

	advances := 0
	for _, e := range events {
		if e.Type == EvtPhaseAdvanced {
			advances++
		}
	}
	if advances != 3 || s.Round != 3 {
		t.Fatalf("want 3 phase advances, got %d (round %d)", advances, s.Round)
	}
	if s.Remaining != 1 {
		t.Fatalf("remaining: got %d, want 1", s.Remaining)
	}
}

func TestStartGameRejections(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	cases := []struct {
		name    string
		setup   State
		wantErr error
	}{
		{
			name:    "blank name",
			setup:   namedState(DefaultSettings(), "Alice", "   "),
			wantErr: ErrEmptyPlayerName,
		},
		{
			name:    "initial unnamed player",
			setup:   NewEmptyState(),
			wantErr: ErrEmptyPlayerName,
		},
		{
			name: "already running",
			setup: func() State {
				s := namedState(DefaultSettings(), "Alice")
				s.Phase = PhaseDrawing
				return s
			}(),
			wantErr: ErrGameInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(tc.setup, Command{Type: CmdStartGame}, env)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if got.Phase != tc.setup.Phase || got.Running != tc.setup.Running {
				t.Fatalf("state changed on rejection")
			}
		})
	}
}

func TestSetDrawInterval(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	start := namedState(Settings{PreparationSec: 60, DrawIntervalSec: 30}, "Alice", "Bob")
	_, running := mustApply(t, start, Command{Type: CmdStartGame}, env)
	_, running = mustApply(t, running, Command{Type: CmdTick, Seconds: 10}, env)

	t.Run("running restarts countdown", func(t *testing.T) {
		events, s := mustApply(t, running, Command{Type: CmdSetDrawInterval, Seconds: 180}, env)
		if s.Remaining != 180 || s.Settings.DrawIntervalSec != 180 {
			t.Fatalf("got remaining=%d interval=%d", s.Remaining, s.Settings.DrawIntervalSec)
		}
		if !ContainsEvent(events, EvtTimerRestarted) {
			t.Fatalf("expected EvtTimerRestarted")
		}
	})

	t.Run("paused keeps countdown and phase", func(t *testing.T) {
		_, paused := mustApply(t, running, Command{Type: CmdPauseGame}, env)
		events, s := mustApply(t, paused, Command{Type: CmdSetDrawInterval, Seconds: 180}, env)
		if s.Remaining != paused.Remaining || s.Phase != paused.Phase || s.Running {
			t.Fatalf("paused state disturbed: %+v", s)
		}
		if s.Settings.DrawIntervalSec != 180 {
			t.Fatalf("interval not stored")
		}
		if ContainsEvent(events, EvtTimerRestarted) {
			t.Fatalf("paused countdown must not restart")
		}
	})

	t.Run("setup only stores", func(t *testing.T) {
		_, s := mustApply(t, start, Command{Type: CmdSetDrawInterval, Seconds: 300}, env)
		if s.Phase != PhaseSetup || s.Remaining != 0 || s.Settings.DrawIntervalSec != 300 {
			t.Fatalf("got %+v", s)
		}
	})

	t.Run("rejects out of range", func(t *testing.T) {
		for _, sec := range []int{0, -1, MaxDurationSec + 1, math.MaxInt64/2 + 1} {
			_, got, err := Apply(running, Command{Type: CmdSetDrawInterval, Seconds: sec}, env)
			if !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("seconds=%d: want ErrInvalidDuration, got %v", sec, err)
			}
			if got.Settings.DrawIntervalSec != running.Settings.DrawIntervalSec {
				t.Fatalf("seconds=%d: setting changed to %d", sec, got.Settings.DrawIntervalSec)
			}
		}
	})
}

func TestDurationBounds(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	s := namedState(Settings{PreparationSec: 60, DrawIntervalSec: 60}, "Alice")

	cases := []struct {
		seconds int
		ok      bool
	}{
		{0, false},
		{-30, false},
		{1, true},
		{MaxDurationSec, true},
		{MaxDurationSec + 1, false},
		{math.MaxInt64, false},
	}
	for _, tc := range cases {
		for _, typ := range []CommandType{CmdSetDrawInterval, CmdSetPreparationDuration} {
			_, _, err := Apply(s, Command{Type: typ, Seconds: tc.seconds}, env)
			if tc.ok && err != nil {
				t.Fatalf("%s %d: unexpected err %v", typ, tc.seconds, err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("%s %d: want ErrInvalidDuration, got %v", typ, tc.seconds, err)
			}
		}
		if got := ValidDuration(tc.seconds); got != tc.ok {
			t.Fatalf("ValidDuration(%d) = %v", tc.seconds, got)
		}
	}
}

func TestLongestIntervalKeepsRemainingPositive(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	s := namedState(Settings{PreparationSec: 1, DrawIntervalSec: 60}, "Alice", "Bob")

	_, s = mustApply(t, s, Command{Type: CmdStartGame}, env)
	_, s = mustApply(t, s, Command{Type: CmdSetDrawInterval, Seconds: MaxDurationSec}, env)
	_, s = mustApply(t, s, Command{Type: CmdTick, Seconds: MaxDurationSec}, env)

	if s.Phase != PhaseDrawing || s.Remaining <= 0 {
		t.Fatalf("got phase=%s remaining=%d", s.Phase, s.Remaining)
	}
	if want := MaxDurationSec * len(s.ActivePlayers); s.Remaining != want {
		t.Fatalf("remaining: got %d, want %d", s.Remaining, want)
	}
}

func TestSetPreparationDurationAppliesOnNextStart(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	s := namedState(Settings{PreparationSec: 60, DrawIntervalSec: 30}, "Alice")

	_, s = mustApply(t, s, Command{Type: CmdSetPreparationDuration, Seconds: 300}, env)
	_, s = mustApply(t, s, Command{Type: CmdStartGame}, env)
	if s.Remaining != 300 {
		t.Fatalf("remaining: got %d, want 300", s.Remaining)
	}
}

func TestResetGameFromEveryPhase(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	setup := namedState(Settings{PreparationSec: 2, DrawIntervalSec: 2}, "Alice", "Bob")
	_, prep := mustApply(t, setup, Command{Type: CmdStartGame}, env)
	_, drawing := mustApply(t, prep, Command{Type: CmdTick, Seconds: 2}, env)
	_, paused := mustApply(t, drawing, Command{Type: CmdPauseGame}, env)

	for name, s := range map[string]State{"setup": setup, "preparation": prep, "drawing": drawing, "paused": paused} {
		t.Run(name, func(t *testing.T) {
			events, got := mustApply(t, s, Command{Type: CmdResetGame}, env)
			if got.Phase != PhaseSetup || got.Running || got.Remaining != 0 {
				t.Fatalf("got phase=%s running=%v remaining=%d", got.Phase, got.Running, got.Remaining)
			}
			if len(got.Used) != 0 || got.Current != nil || len(got.ActivePlayers) != 0 {
				t.Fatalf("draw bookkeeping not cleared: %+v", got)
			}
			if len(got.Players) != 2 {
				t.Fatalf("roster must survive reset")
			}
			if !ContainsEvent(events, EvtGameReset) {
				t.Fatalf("expected EvtGameReset")
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}
	_, s := mustApply(t, namedState(Settings{PreparationSec: 30, DrawIntervalSec: 30}, "Alice"), Command{Type: CmdStartGame}, env)
	before := *s.Current

	_, paused := mustApply(t, s, Command{Type: CmdPauseGame}, env)
	if paused.Running || paused.Remaining != s.Remaining || paused.Phase != s.Phase || *paused.Current != before {
		t.Fatalf("pause must only toggle running: %+v", paused)
	}

	if _, _, err := Apply(paused, Command{Type: CmdTick}, env); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("tick while paused: want ErrNotRunning, got %v", err)
	}
	if _, _, err := Apply(paused, Command{Type: CmdPauseGame}, env); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("double pause: want ErrNotRunning, got %v", err)
	}

	_, resumed := mustApply(t, paused, Command{Type: CmdResumeGame}, env)
	if !resumed.Running || resumed.Remaining != s.Remaining {
		t.Fatalf("resume: %+v", resumed)
	}
	if _, _, err := Apply(resumed, Command{Type: CmdResumeGame}, env); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("double resume: want ErrAlreadyRunning, got %v", err)
	}
}

func TestManualRedraw(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: &seqRand{vals: []int{0, 0}}}
	s := namedState(Settings{PreparationSec: 30, DrawIntervalSec: 30}, "Alice")

	if _, _, err := Apply(s, Command{Type: CmdManualRedraw}, env); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("redraw in setup: want ErrNotInGame, got %v", err)
	}

	_, s = mustApply(t, s, Command{Type: CmdStartGame}, env)
	first := *s.Current

	events, next := mustApply(t, s, Command{Type: CmdManualRedraw}, env)
	if *next.Current == first {
		t.Fatalf("redraw repeated the previous prompt")
	}
	if next.Remaining != s.Remaining || next.Running != s.Running || len(next.ActivePlayers) != len(s.ActivePlayers) {
		t.Fatalf("redraw must not touch the countdown or selection")
	}
	if len(events) != 1 || events[0].Type != EvtStrategyDrawn {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestRosterCommands(t *testing.T) {
	env := Env{Catalog: twoPromptCatalog(t), Rand: seeded()}

	t.Run("add at max is rejected", func(t *testing.T) {
		s := namedState(Settings{MaxPlayers: 2}, "Alice", "Bob")
		_, got, err := Apply(s, Command{Type: CmdAddPlayer}, env)
		if !errors.Is(err, ErrRosterFull) || len(got.Players) != 2 {
			t.Fatalf("want ErrRosterFull and 2 players, got %v and %d", err, len(got.Players))
		}
	})

	t.Run("remove at min is rejected", func(t *testing.T) {
		s := namedState(DefaultSettings(), "Alice")
		_, got, err := Apply(s, Command{Type: CmdRemovePlayer, PlayerID: 1}, env)
		if !errors.Is(err, ErrRosterMinimum) || len(got.Players) != 1 {
			t.Fatalf("want ErrRosterMinimum, got %v", err)
		}
	})

	t.Run("unknown ids are rejected", func(t *testing.T) {
		s := namedState(DefaultSettings(), "Alice", "Bob")
		if _, _, err := Apply(s, Command{Type: CmdRemovePlayer, PlayerID: 9}, env); !errors.Is(err, ErrPlayerNotFound) {
			t.Fatalf("remove: want ErrPlayerNotFound, got %v", err)
		}
		if _, _, err := Apply(s, Command{Type: CmdRenamePlayer, PlayerID: 9, Name: "X"}, env); !errors.Is(err, ErrPlayerNotFound) {
			t.Fatalf("rename: want ErrPlayerNotFound, got %v", err)
		}
	})

	t.Run("new ids exceed every existing id", func(t *testing.T) {
		s := namedState(DefaultSettings(), "Alice", "Bob", "Carol")
		_, s = mustApply(t, s, Command{Type: CmdRemovePlayer, PlayerID: 2}, env)
		events, s := mustApply(t, s, Command{Type: CmdAddPlayer}, env)
		if events[0].PlayerID != 4 || s.Players[2].ID != 4 || s.Players[2].Name != "" {
			t.Fatalf("got players %+v", s.Players)
		}
	})

	t.Run("roster is frozen during a game", func(t *testing.T) {
		_, s := mustApply(t, namedState(DefaultSettings(), "Alice"), Command{Type: CmdStartGame}, env)
		if _, _, err := Apply(s, Command{Type: CmdAddPlayer}, env); !errors.Is(err, ErrGameInProgress) {
			t.Fatalf("want ErrGameInProgress, got %v", err)
		}
	})

	t.Run("rename reaches the active selection", func(t *testing.T) {
		s := namedState(Settings{PreparationSec: 1, DrawIntervalSec: 5}, "Alice")
		_, s = mustApply(t, s, Command{Type: CmdStartGame}, env)
		_, s = mustApply(t, s, Command{Type: CmdTick}, env)
		_, s = mustApply(t, s, Command{Type: CmdRenamePlayer, PlayerID: 1, Name: "Alicia"}, env)
		if s.Players[0].Name != "Alicia" || s.ActivePlayers[0].Name != "Alicia" {
			t.Fatalf("got %+v / %+v", s.Players, s.ActivePlayers)
		}
	})
}

func TestUnsupportedCommand(t *testing.T) {
	_, _, err := Apply(NewEmptyState(), Command{Type: "Dance"}, Env{})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[int]string{
		0:    "0:00",
		5:    "0:05",
		65:   "1:05",
		600:  "10:00",
		3725: "62:05",
		-3:   "0:00",
	}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Fatalf("FormatTime(%d): got %q, want %q", in, got, want)
		}
	}
}

func TestSettingsNormalize(t *testing.T) {
	got := Settings{MinPlayers: 3, MaxPlayers: 2}.Normalize()
	if got.PreparationSec != 120 || got.DrawIntervalSec != 120 || got.MaxPlayers != 3 {
		t.Fatalf("got %+v", got)
	}

	got = Settings{PreparationSec: MaxDurationSec + 1, DrawIntervalSec: math.MaxInt64}.Normalize()
	if got.PreparationSec != 120 || got.DrawIntervalSec != 120 {
		t.Fatalf("oversized durations kept: %+v", got)
	}
}
