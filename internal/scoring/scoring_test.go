package scoring

import (
	"testing"

	"github.com/Gyeri/warphunt/internal/domain"
)

func TestStepPoints(t *testing.T) {
	tests := []struct {
		name       string
		difficulty domain.Difficulty
		remaining  int
		hint       bool
		want       int
	}{
		{"hard no hint", domain.DifficultyHard, 100, false, 210},
		{"hard with hint", domain.DifficultyHard, 100, true, 147},
		{"easy full budget", domain.DifficultyEasy, 900, false, 190},
		{"medium full budget", domain.DifficultyMedium, 600, false, 210},
		{"medium with hint floors", domain.DifficultyMedium, 599, true, 146},
		{"time bonus floors", domain.DifficultyEasy, 19, false, 101},
		{"no time left", domain.DifficultyHard, 0, false, 200},
		{"negative time treated as zero", domain.DifficultyEasy, -5, false, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StepPoints(tt.difficulty, tt.remaining, tt.hint); got != tt.want {
				t.Errorf("StepPoints(%s, %d, %v) = %d, want %d", tt.difficulty, tt.remaining, tt.hint, got, tt.want)
			}
		})
	}
}

func TestEarnedXP(t *testing.T) {
	tests := []struct {
		difficulty domain.Difficulty
		remaining  int
		want       int
	}{
		{domain.DifficultyMedium, 200, 85},
		{domain.DifficultyEasy, 0, 50},
		{domain.DifficultyHard, 300, 115},
		{domain.DifficultyEasy, 39, 51},
	}

	for _, tt := range tests {
		if got := EarnedXP(tt.difficulty, tt.remaining); got != tt.want {
			t.Errorf("EarnedXP(%s, %d) = %d, want %d", tt.difficulty, tt.remaining, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := map[int]int{
		0:   1,
		99:  1,
		100: 2,
		250: 3,
		350: 4,
		-10: 1,
	}
	for xp, want := range tests {
		if got := Level(xp); got != want {
			t.Errorf("Level(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestXPToNextLevel(t *testing.T) {
	if got := XPToNextLevel(350); got != 50 {
		t.Errorf("XPToNextLevel(350) = %d, want 50", got)
	}
	if got := XPToNextLevel(0); got != 100 {
		t.Errorf("XPToNextLevel(0) = %d, want 100", got)
	}
}
