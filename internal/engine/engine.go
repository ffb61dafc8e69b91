package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
)

var ErrGameInProgress = errors.New("game already in progress")
var ErrNotInGame = errors.New("no game in progress")
var ErrNotRunning = errors.New("countdown is not running")
var ErrAlreadyRunning = errors.New("countdown already running")
var ErrEmptyPlayerName = errors.New("every player needs a name")
var ErrInvalidDuration = errors.New("duration must be between 1 second and 24 hours")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhasePreparation Phase = "preparation"
	PhaseDrawing     Phase = "drawing"
)

// InGame reports whether the countdown phases are active.
func (p Phase) InGame() bool {
	return p == PhasePreparation || p == PhaseDrawing
}

type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type StrategyDraw struct {
	Category catalog.Category `json:"category"`
	Prompt   string           `json:"prompt"`
}

type Settings struct {
	PreparationSec  int
	DrawIntervalSec int
	MinPlayers      int
	MaxPlayers      int
}

type State struct {
	Phase         Phase
	Remaining     int
	Running       bool
	Round         int
	Settings      Settings
	Players       []Player
	ActivePlayers []Player
	Used          []catalog.DrawKey
	Current       *StrategyDraw
}

// Env carries the collaborators Apply needs beyond the state itself.
type Env struct {
	Catalog *catalog.Catalog
	Rand    Rand
}

type CommandType string

const (
	CmdStartGame              CommandType = "StartGame"
	CmdTick                   CommandType = "Tick"
	CmdManualRedraw           CommandType = "ManualRedraw"
	CmdSetDrawInterval        CommandType = "SetDrawInterval"
	CmdSetPreparationDuration CommandType = "SetPreparationDuration"
	CmdResetGame              CommandType = "ResetGame"
	CmdPauseGame              CommandType = "PauseGame"
	CmdResumeGame             CommandType = "ResumeGame"
	CmdAddPlayer              CommandType = "AddPlayer"
	CmdRemovePlayer           CommandType = "RemovePlayer"
	CmdRenamePlayer           CommandType = "RenamePlayer"
)

/*
	CmdStartGame     -> EvtGameStarted -> EvtStrategyDrawn -> EvtTimerStarted
	CmdTick          -> EvtTimerTicked, or on zero: EvtPhaseAdvanced -> EvtPlayersSelected -> EvtStrategyDrawn -> EvtTimerTicked
	CmdManualRedraw  -> EvtStrategyDrawn
	CmdSetDrawInterval -> EvtSettingsChanged (-> EvtTimerRestarted when running)
	CmdPauseGame / CmdResumeGame -> EvtGamePaused / EvtGameResumed
	CmdResetGame     -> EvtGameReset
*/

type Command struct {
	Type     CommandType
	PlayerID int
	Name     string
	Seconds  int
}

type EventType string

const (
	EvtGameStarted     EventType = "GameStarted"
	EvtStrategyDrawn   EventType = "StrategyDrawn"
	EvtPlayersSelected EventType = "PlayersSelected"
	EvtPhaseAdvanced   EventType = "PhaseAdvanced"
	EvtTimerStarted    EventType = "TimerStarted"
	EvtTimerTicked     EventType = "TimerTicked"
	EvtTimerRestarted  EventType = "TimerRestarted"
	EvtGamePaused      EventType = "GamePaused"
	EvtGameResumed     EventType = "GameResumed"
	EvtGameReset       EventType = "GameReset"
	EvtSettingsChanged EventType = "SettingsChanged"
	EvtPlayerAdded     EventType = "PlayerAdded"
	EvtPlayerRemoved   EventType = "PlayerRemoved"
	EvtPlayerRenamed   EventType = "PlayerRenamed"
)

type Event struct {
	Type     EventType
	Phase    Phase
	PlayerID int
	Seconds  int
	Draw     *StrategyDraw
	Players  []Player
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s, untouched.
func Apply(s State, cmd Command, env Env) ([]Event, State, error) {
	next := s.Clone()

	switch cmd.Type {
	case CmdStartGame:
		if s.Phase != PhaseSetup {
			return nil, s, ErrGameInProgress
		}
		if len(s.Players) < s.Settings.MinPlayers || len(s.Players) == 0 {
			return nil, s, ErrRosterMinimum
		}
		for _, p := range s.Players {
			if strings.TrimSpace(p.Name) == "" {
				return nil, s, ErrEmptyPlayerName
			}
		}

		next.Used = nil
		next.Current = nil
		next.ActivePlayers = nil
		next.Round = 0
		next.Phase = PhasePreparation
		next.Remaining = s.Settings.PreparationSec

		drawn, err := redraw(&next, env)
		if err != nil {
			return nil, s, err
		}
		next.Running = true

		events := []Event{
			{Type: EvtGameStarted, Phase: PhasePreparation},
			drawn,
			{Type: EvtTimerStarted, Seconds: next.Remaining},
		}
		return events, next, nil

	case CmdTick:
		if !s.Phase.InGame() {
			return nil, s, ErrNotInGame
		}
		if !s.Running {
			return nil, s, ErrNotRunning
		}
		elapsed := cmd.Seconds
		if elapsed <= 0 {
			elapsed = 1
		}

		events := []Event{}
		for range elapsed {
			next.Remaining--
			if next.Remaining > 0 {
				continue
			}
			advanced, err := advance(&next, env)
			if err != nil {
				return nil, s, err
			}
			events = append(events, advanced...)
		}
		events = append(events, Event{Type: EvtTimerTicked, Seconds: next.Remaining})
		return events, next, nil

	case CmdManualRedraw:
		if !s.Phase.InGame() {
			return nil, s, ErrNotInGame
		}
		drawn, err := redraw(&next, env)
		if err != nil {
			return nil, s, err
		}
		return []Event{drawn}, next, nil

	case CmdSetDrawInterval:
		if !ValidDuration(cmd.Seconds) {
			return nil, s, ErrInvalidDuration
		}
		next.Settings.DrawIntervalSec = cmd.Seconds
		events := []Event{{Type: EvtSettingsChanged, Seconds: cmd.Seconds}}

		// A running countdown restarts at the new value right away.
		if s.Phase.InGame() && s.Running {
			next.Remaining = cmd.Seconds
			events = append(events, Event{Type: EvtTimerRestarted, Seconds: next.Remaining})
		}
		return events, next, nil

	case CmdSetPreparationDuration:
		if !ValidDuration(cmd.Seconds) {
			return nil, s, ErrInvalidDuration
		}
		next.Settings.PreparationSec = cmd.Seconds
		return []Event{{Type: EvtSettingsChanged, Seconds: cmd.Seconds}}, next, nil

	case CmdResetGame:
		next.Phase = PhaseSetup
		next.Remaining = 0
		next.Running = false
		next.Round = 0
		next.Used = nil
		next.Current = nil
		next.ActivePlayers = nil
		return []Event{{Type: EvtGameReset, Phase: PhaseSetup}}, next, nil

	case CmdPauseGame:
		if !s.Phase.InGame() {
			return nil, s, ErrNotInGame
		}
		if !s.Running {
			return nil, s, ErrNotRunning
		}
		next.Running = false
		return []Event{{Type: EvtGamePaused, Seconds: next.Remaining}}, next, nil

	case CmdResumeGame:
		if !s.Phase.InGame() {
			return nil, s, ErrNotInGame
		}
		if s.Running {
			return nil, s, ErrAlreadyRunning
		}
		next.Running = true
		return []Event{{Type: EvtGameResumed, Seconds: next.Remaining}}, next, nil

	case CmdAddPlayer:
		if s.Phase != PhaseSetup {
			return nil, s, ErrGameInProgress
		}
		p, err := addPlayer(&next)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtPlayerAdded, PlayerID: p.ID}}, next, nil

	case CmdRemovePlayer:
		if s.Phase != PhaseSetup {
			return nil, s, ErrGameInProgress
		}
		if err := removePlayer(&next, cmd.PlayerID); err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtPlayerRemoved, PlayerID: cmd.PlayerID}}, next, nil

	case CmdRenamePlayer:
		if err := renamePlayer(&next, cmd.PlayerID, cmd.Name); err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtPlayerRenamed, PlayerID: cmd.PlayerID}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// redraw replaces the current prompt with a fresh draw.
func redraw(s *State, env Env) (Event, error) {
	used, drawn, err := Draw(env.Catalog, s.Used, env.Rand)
	if err != nil {
		return Event{}, fmt.Errorf("draw strategy: %w", err)
	}
	s.Used = used
	s.Current = &drawn
	return Event{Type: EvtStrategyDrawn, Draw: &drawn}, nil
}

// advance moves into the next drawing phase once the countdown reached zero.
// The phase length scales with how many players were picked.
func advance(s *State, env Env) ([]Event, error) {
	s.Phase = PhaseDrawing
	s.Round++
	s.ActivePlayers = SelectActive(s.Players, env.Rand)

	drawn, err := redraw(s, env)
	if err != nil {
		return nil, err
	}
	s.Remaining = s.Settings.DrawIntervalSec * max(len(s.ActivePlayers), 1)

	return []Event{
		{Type: EvtPhaseAdvanced, Phase: PhaseDrawing, Seconds: s.Remaining},
		{Type: EvtPlayersSelected, Players: append([]Player(nil), s.ActivePlayers...)},
		drawn,
	}, nil
}
