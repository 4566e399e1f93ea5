package domain

import "time"

// RewardSummary is produced once when the final step confirms. Everything except
// Claimed is fixed at creation.
type RewardSummary struct {
	ID            string     `json:"id"`
	HuntScore     int        `json:"hunt_score"`
	Difficulty    Difficulty `json:"difficulty"`
	EarnedXP      int        `json:"earned_xp"`
	TimeRemaining int        `json:"time_remaining"`
	HintsUsed     int        `json:"hints_used"`
	TotalAttempts int        `json:"total_attempts"`
	CompletedAt   time.Time  `json:"completed_at"`
	Claimed       bool       `json:"claimed"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
}
