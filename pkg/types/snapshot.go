package types

// StateSnapshot is the public view of one lobby.
// remaining_label is remaining_sec rendered as M:SS; all_players is true in
// preparation or when every player was selected.
type StateSnapshot struct {
	Version        int          `json:"version"`
	LobbyCode      string       `json:"lobby_code"`
	Phase          string       `json:"phase"` // "setup" | "preparation" | "drawing"
	Running        bool         `json:"running"`
	RemainingSec   int          `json:"remaining_sec"`
	RemainingLabel string       `json:"remaining_label"`
	Round          int          `json:"round"`
	Players        []Player     `json:"players"`
	ActivePlayers  []Player     `json:"active_players"`
	AllPlayers     bool         `json:"all_players"`
	Current        *Draw        `json:"current,omitempty"`
	UsedCount      int          `json:"used_count"`
	Settings       GameSettings `json:"settings"`
}

type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Draw struct {
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
}

type GameSettings struct {
	PreparationSec  int `json:"preparation_sec"`
	DrawIntervalSec int `json:"draw_interval_sec"`
	MinPlayers      int `json:"min_players"`
	MaxPlayers      int `json:"max_players"`
}
