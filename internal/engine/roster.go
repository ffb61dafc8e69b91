package engine

import (
	"errors"

	"golang.org/x/text/unicode/norm"
)

var ErrRosterFull = errors.New("roster is full")
var ErrRosterMinimum = errors.New("roster is at its minimum size")
var ErrPlayerNotFound = errors.New("player not found")

func addPlayer(s *State) (Player, error) {
	if len(s.Players) >= s.Settings.MaxPlayers {
		return Player{}, ErrRosterFull
	}
	p := Player{ID: nextPlayerID(s.Players)}
	s.Players = append(s.Players, p)
	return p, nil
}

func removePlayer(s *State, id int) error {
	i := indexOfPlayer(s.Players, id)
	if i < 0 {
		return ErrPlayerNotFound
	}
	if len(s.Players) <= s.Settings.MinPlayers {
		return ErrRosterMinimum
	}
	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	return nil
}

// renamePlayer also updates the active selection so both lists agree.
func renamePlayer(s *State, id int, name string) error {
	i := indexOfPlayer(s.Players, id)
	if i < 0 {
		return ErrPlayerNotFound
	}
	name = NormalizeName(name)
	s.Players[i].Name = name
	if j := indexOfPlayer(s.ActivePlayers, id); j >= 0 {
		s.ActivePlayers[j].Name = name
	}
	return nil
}

// NormalizeName puts a player name in NFC so equal-looking names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

func nextPlayerID(players []Player) int {
	highest := 0
	for _, p := range players {
		highest = max(highest, p.ID)
	}
	return highest + 1
}

func indexOfPlayer(players []Player, id int) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
