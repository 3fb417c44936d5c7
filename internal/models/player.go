package models

import (
	"fmt"
	"sort"
	"strings"
)

// Position is a hockey roster slot category.
type Position string

const (
	PositionCenter    Position = "C"
	PositionRightWing Position = "RW"
	PositionLeftWing  Position = "LW"
	PositionDefense   Position = "D"
	PositionGoalie    Position = "G"
)

// AllPositions lists every known position in display order.
var AllPositions = []Position{
	PositionCenter,
	PositionRightWing,
	PositionLeftWing,
	PositionDefense,
	PositionGoalie,
}

// IsValid reports whether p is one of the five known position tags.
func (p Position) IsValid() bool {
	switch p {
	case PositionCenter, PositionRightWing, PositionLeftWing, PositionDefense, PositionGoalie:
		return true
	}
	return false
}

// ParsePositions parses a Fantrax position cell ("C,RW") into a position list.
// Tags are trimmed, deduplicated and validated; order follows AllPositions.
func ParsePositions(cell string) ([]Position, error) {
	seen := make(map[Position]bool)
	for _, raw := range strings.Split(cell, ",") {
		tag := Position(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if !tag.IsValid() {
			return nil, fmt.Errorf("unknown position tag %q", tag)
		}
		seen[tag] = true
	}

	positions := make([]Position, 0, len(seen))
	for _, p := range AllPositions {
		if seen[p] {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

// RosterStatus is the Fantrax roster slot of a player. Active and Reserve
// players are equally eligible for optimization.
type RosterStatus string

const (
	RosterStatusActive  RosterStatus = "Active"
	RosterStatusReserve RosterStatus = "Reserve"
)

// Player is a single skater or goalie in a fantasy team's pool.
type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	NHLTeam      string       `json:"nhl_team"`
	Positions    []Position   `json:"positions"`
	RosterStatus RosterStatus `json:"roster_status"`
	FPts         float64      `json:"fpts"`
}

// CanPlay reports whether the player is eligible for the given position.
func (p *Player) CanPlay(pos Position) bool {
	for _, eligible := range p.Positions {
		if eligible == pos {
			return true
		}
	}
	return false
}

// PositionsString renders the eligibility set the way Fantrax exports it.
func (p *Player) PositionsString() string {
	tags := make([]string, len(p.Positions))
	for i, pos := range p.Positions {
		tags[i] = string(pos)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

// PositionRequirements defines how many players are needed for each position.
type PositionRequirements map[Position]int

// DefaultRequirements returns the league's fixed roster shape:
// 3 C, 3 RW, 3 LW, 4 D, 3 G.
func DefaultRequirements() PositionRequirements {
	return PositionRequirements{
		PositionCenter:    3,
		PositionRightWing: 3,
		PositionLeftWing:  3,
		PositionDefense:   4,
		PositionGoalie:    3,
	}
}

// TotalSlots returns the total number of roster slots to fill.
func (pr PositionRequirements) TotalSlots() int {
	total := 0
	for _, count := range pr {
		total += count
	}
	return total
}
