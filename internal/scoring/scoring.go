// Package scoring holds the pure point, XP and level formulas.
//
// All arithmetic is done in decimal so that fractional multipliers (1.5, 0.7)
// floor exactly: 210 * 0.7 must be 147, not 146.99999999999997.
package scoring

import (
	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	stepBasePoints  = 100
	stepTimeDivisor = 10
	xpBase          = 50
	xpTimeDivisor   = 20
	xpPerLevel      = 100
)

var hintPenalty = decimal.RequireFromString("0.7")

func difficultyMultiplier(d domain.Difficulty) decimal.Decimal {
	switch d {
	case domain.DifficultyMedium:
		return decimal.RequireFromString("1.5")
	case domain.DifficultyHard:
		return decimal.NewFromInt(2)
	default:
		return decimal.NewFromInt(1)
	}
}

func difficultyXPBonus(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyMedium:
		return 25
	case domain.DifficultyHard:
		return 50
	default:
		return 0
	}
}

// StepPoints returns the points a correct answer earns right now:
// floor((100*multiplier + floor(t/10)) * (0.7 if a hint was used)).
func StepPoints(d domain.Difficulty, timeRemaining int, hintUsed bool) int {
	if timeRemaining < 0 {
		timeRemaining = 0
	}
	points := decimal.NewFromInt(stepBasePoints).
		Mul(difficultyMultiplier(d)).
		Add(decimal.NewFromInt(int64(timeRemaining / stepTimeDivisor)))
	if hintUsed {
		points = points.Mul(hintPenalty)
	}
	return int(points.Floor().IntPart())
}

// EarnedXP returns the XP for a completed hunt: 50 + difficulty bonus + floor(t/20).
func EarnedXP(d domain.Difficulty, timeRemaining int) int {
	if timeRemaining < 0 {
		timeRemaining = 0
	}
	return xpBase + difficultyXPBonus(d) + timeRemaining/xpTimeDivisor
}

// Level derives the profile level from an XP balance.
func Level(xpBalance int) int {
	if xpBalance < 0 {
		return 1
	}
	return xpBalance/xpPerLevel + 1
}

// XPToNextLevel returns how much XP is missing to reach the next level.
func XPToNextLevel(xpBalance int) int {
	return Level(xpBalance)*xpPerLevel - max(xpBalance, 0)
}
