package engine

import (
	"fmt"
	"slices"
)

const (
	DefaultMinPlayers = 1
	DefaultMaxPlayers = 8

	// MaxDurationSec bounds every configurable countdown length.
	MaxDurationSec = 24 * 60 * 60
)

// ValidDuration reports whether seconds is usable as a countdown length.
func ValidDuration(seconds int) bool {
	return seconds > 0 && seconds <= MaxDurationSec
}

type DurationOption struct {
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

// DurationOptions are the preset lengths offered for preparation and draw intervals.
var DurationOptions = []DurationOption{
	{Seconds: 120, Label: "2 minutes"},
	{Seconds: 180, Label: "3 minutes"},
	{Seconds: 300, Label: "5 minutes"},
	{Seconds: 420, Label: "7 minutes"},
}

func DefaultSettings() Settings {
	return Settings{
		PreparationSec:  DurationOptions[0].Seconds,
		DrawIntervalSec: DurationOptions[0].Seconds,
		MinPlayers:      DefaultMinPlayers,
		MaxPlayers:      DefaultMaxPlayers,
	}
}

// Normalize fills zero or inconsistent fields with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if !ValidDuration(s.PreparationSec) {
		s.PreparationSec = d.PreparationSec
	}
	if !ValidDuration(s.DrawIntervalSec) {
		s.DrawIntervalSec = d.DrawIntervalSec
	}
	if s.MinPlayers < 1 {
		s.MinPlayers = d.MinPlayers
	}
	if s.MaxPlayers <= 0 {
		s.MaxPlayers = d.MaxPlayers
	}
	if s.MaxPlayers < s.MinPlayers {
		s.MaxPlayers = s.MinPlayers
	}
	return s
}

// NewState returns a Setup state holding one unnamed player.
func NewState(settings Settings) State {
	return State{
		Phase:    PhaseSetup,
		Settings: settings.Normalize(),
		Players:  []Player{{ID: 1, Name: ""}},
	}
}

func NewEmptyState() State {
	return NewState(DefaultSettings())
}

// Clone copies every slice so the result can be mutated freely.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.ActivePlayers = slices.Clone(s.ActivePlayers)
	c.Used = slices.Clone(s.Used)
	if s.Current != nil {
		d := *s.Current
		c.Current = &d
	}
	return c
}

// AllPlayersActive reports whether the current prompt applies to everybody.
func (s State) AllPlayersActive() bool {
	if s.Phase == PhasePreparation {
		return true
	}
	return s.Phase == PhaseDrawing && len(s.ActivePlayers) == len(s.Players)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// FormatTime renders seconds as M:SS. Minutes are unbounded.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
