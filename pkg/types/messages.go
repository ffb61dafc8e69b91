package types

// Client -> Server (one JSON object per websocket text frame, or the body of
// POST /lobbies/{code}/commands)
//
// StartGame: {}
// AddPlayer: {}
// RemovePlayer:
//   player_id: number
// RenamePlayer:
//   player_id: number
//   name: string
// SetDrawInterval:
//   seconds: number
// SetPreparationDuration:
//   seconds: number
// ManualRedraw: {}
// PauseGame: {}
// ResumeGame: {}
// ResetGame: {}

// Server -> Client
// StateSnapshot:
//   version: number
//   state: StateSnapshot (see snapshot.go)
//
// Error: sent only to the client whose command was rejected
//   command: string
//   error: string

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)
