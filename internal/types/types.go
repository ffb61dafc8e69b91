package types

import (
	"github.com/alexlabrioche/modular-strategies/internal/engine"
	pub "github.com/alexlabrioche/modular-strategies/pkg/types"
)

type ClientMessage struct {
	Type     string `json:"type"`
	PlayerID int    `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Seconds  int    `json:"seconds,omitempty"`
}

type ServerMessage struct {
	Type    string             `json:"type"` // "StateSnapshot" | "Error"
	Version int                `json:"version,omitempty"`
	State   *pub.StateSnapshot `json:"state,omitempty"`
	Command string             `json:"command,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ToEngineCommand maps a client message onto an engine command. Ticks are
// internal to the lobby and never accepted from outside.
func ToEngineCommand(m ClientMessage) (engine.Command, bool) {
	switch engine.CommandType(m.Type) {
	case engine.CmdStartGame, engine.CmdManualRedraw, engine.CmdResetGame,
		engine.CmdPauseGame, engine.CmdResumeGame, engine.CmdAddPlayer:
		return engine.Command{Type: engine.CommandType(m.Type)}, true
	case engine.CmdRemovePlayer:
		return engine.Command{Type: engine.CmdRemovePlayer, PlayerID: m.PlayerID}, true
	case engine.CmdRenamePlayer:
		return engine.Command{Type: engine.CmdRenamePlayer, PlayerID: m.PlayerID, Name: m.Name}, true
	case engine.CmdSetDrawInterval, engine.CmdSetPreparationDuration:
		return engine.Command{Type: engine.CommandType(m.Type), Seconds: m.Seconds}, true
	default:
		return engine.Command{}, false
	}
}

func NewStateSnapshot(code string, version int, s engine.State) pub.StateSnapshot {
	snap := pub.StateSnapshot{
		Version:        version,
		LobbyCode:      code,
		Phase:          string(s.Phase),
		Running:        s.Running,
		RemainingSec:   s.Remaining,
		RemainingLabel: engine.FormatTime(s.Remaining),
		Round:          s.Round,
		Players:        toPlayers(s.Players),
		ActivePlayers:  toPlayers(s.ActivePlayers),
		AllPlayers:     s.AllPlayersActive(),
		UsedCount:      len(s.Used),
		Settings: pub.GameSettings{
			PreparationSec:  s.Settings.PreparationSec,
			DrawIntervalSec: s.Settings.DrawIntervalSec,
			MinPlayers:      s.Settings.MinPlayers,
			MaxPlayers:      s.Settings.MaxPlayers,
		},
	}
	if s.Current != nil {
		snap.Current = &pub.Draw{Category: string(s.Current.Category), Prompt: s.Current.Prompt}
	}
	return snap
}

func toPlayers(players []engine.Player) []pub.Player {
	out := make([]pub.Player, 0, len(players))
	for _, p := range players {
		out = append(out, pub.Player{ID: p.ID, Name: p.Name})
	}
	return out
}
