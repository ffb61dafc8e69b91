// Package store caches lobby rosters and settings between launches.
// Every backend is best effort: callers treat any error as "no prior state".
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/engine"
)

// Snapshot is the persisted subset of a lobby.
type Snapshot struct {
	Players         []engine.Player   `json:"players"`
	Used            []catalog.DrawKey `json:"used"`
	DrawIntervalSec int               `json:"draw_interval_sec"`
	PreparationSec  int               `json:"preparation_sec"`
}

type Store interface {
	// Load reports false when nothing was saved under key.
	Load(ctx context.Context, key string) (Snapshot, bool, error)
	Save(ctx context.Context, key string, snap Snapshot) error
	Close() error
}

func encode(snap Snapshot) (string, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

func decode(payload string) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Memory keeps snapshots for the lifetime of the process.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}
	m.mu.Lock()
	payload, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	snap, err := decode(payload)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (m *Memory) Save(ctx context.Context, key string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
