package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/engine"
	"github.com/alexlabrioche/modular-strategies/internal/hub"
	"github.com/alexlabrioche/modular-strategies/internal/lobby"
	"github.com/alexlabrioche/modular-strategies/internal/types"
	pub "github.com/alexlabrioche/modular-strategies/pkg/types"
)

const (
	codeLength   = 6
	maxCodeTries = 10
	lobbyTimeout = 5 * time.Second
)

var errLobbyNotFound = errors.New("lobby not found")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createLobbyRequest struct {
	PreparationSec  int `json:"preparation_sec"`
	DrawIntervalSec int `json:"draw_interval_sec"`
}

type lobbyResponse struct {
	Code    string             `json:"code"`
	Clients int                `json:"clients"`
	State   *pub.StateSnapshot `json:"state,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type catalogEntry struct {
	Category string   `json:"category"`
	Prompts  []string `json:"prompts"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func Catalog(cat *catalog.Catalog) http.HandlerFunc {
	entries := make([]catalogEntry, 0, len(catalog.Categories))
	for _, c := range catalog.Categories {
		entries = append(entries, catalogEntry{Category: string(c), Prompts: cat.Prompts(c)})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Size       int            `json:"size"`
			Categories []catalogEntry `json:"categories"`
		}{Size: cat.Size(), Categories: entries})
	}
}

// Options lists the preset durations a client can offer for either timer.
func Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Durations []engine.DurationOption `json:"durations"`
	}{Durations: engine.DurationOptions})
}

func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if !optionalDuration(req.PreparationSec) || !optionalDuration(req.DrawIntervalSec) {
			writeError(w, http.StatusBadRequest, engine.ErrInvalidDuration.Error())
			return
		}

		var code string
		for range maxCodeTries {
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			lb, err := h.Get(r.Context(), c)
			if err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
			if lb == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("lobby", c))
		}
		if code == "" {
			writeError(w, http.StatusServiceUnavailable, "no free lobby code")
			return
		}

		lb, err := h.Create(r.Context(), code, engine.Settings{
			PreparationSec:  req.PreparationSec,
			DrawIntervalSec: req.DrawIntervalSec,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if lb == nil {
			writeError(w, http.StatusInternalServerError, "failed to create lobby")
			return
		}

		resp, err := describe(r.Context(), lb)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func ListLobbies(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := h.List(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Lobbies []string `json:"lobbies"`
		}{Lobbies: codes})
	}
}

func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := findLobby(r.Context(), h, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		resp, err := describe(r.Context(), lb)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SendCommand is the HTTP twin of a websocket command frame. It answers with
// the lobby state after the command was applied.
func SendCommand(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := findLobby(r.Context(), h, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		var cm types.ClientMessage
		if err := json.NewDecoder(r.Body).Decode(&cm); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		cmd, ok := types.ToEngineCommand(cm)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown type")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), lobbyTimeout)
		defer cancel()
		if err := lb.Send(ctx, cmd); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		resp, err := describe(ctx, lb)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func DeleteLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if _, err := findLobby(r.Context(), h, code); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if err := h.Remove(r.Context(), code); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// findLobby reports errLobbyNotFound for codes with no live lobby.
func findLobby(ctx context.Context, h *hub.Hub, code string) (*lobby.Lobby, error) {
	lb, err := h.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, errLobbyNotFound
	}
	return lb, nil
}

// optionalDuration accepts zero, meaning "use the server default".
func optionalDuration(seconds int) bool {
	return seconds == 0 || engine.ValidDuration(seconds)
}

func describe(ctx context.Context, lb *lobby.Lobby) (lobbyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, lobbyTimeout)
	defer cancel()
	v, err := lb.View(ctx)
	if err != nil {
		return lobbyResponse{}, err
	}
	snap := types.NewStateSnapshot(v.Code, v.Version, v.State)
	return lobbyResponse{Code: v.Code, Clients: v.NumClients, State: &snap}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errLobbyNotFound), errors.Is(err, engine.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidDuration), errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrGameInProgress),
		errors.Is(err, engine.ErrNotInGame),
		errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrAlreadyRunning),
		errors.Is(err, engine.ErrEmptyPlayerName),
		errors.Is(err, engine.ErrRosterFull),
		errors.Is(err, engine.ErrRosterMinimum):
		return http.StatusConflict
	case errors.Is(err, lobby.ErrClosed):
		return http.StatusGone
	case errors.Is(err, hub.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
