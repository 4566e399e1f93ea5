package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the named preset that controls the time budget and the scoring
// multiplier of a hunt.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultDifficulty is preselected for a new player.
const DefaultDifficulty = DifficultyMedium

// TotalSteps is the fixed number of clues in a hunt.
const TotalSteps = 5

// ParseDifficulty converts user input into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the known presets.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TimeBudget returns the initial countdown in seconds.
func (d Difficulty) TimeBudget() int {
	switch d {
	case DifficultyEasy:
		return 900
	case DifficultyMedium:
		return 600
	case DifficultyHard:
		return 300
	}
	panic("domain: time budget requested for invalid difficulty " + string(d))
}

// Title returns the capitalized display name.
func (d Difficulty) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
