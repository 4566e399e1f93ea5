package domain

// LeaderboardEntry is one row of the (static) leaderboard.
type LeaderboardEntry struct {
	Rank       int        `json:"rank"`
	Name       string     `json:"name"`
	Score      int        `json:"score"`
	XP         int        `json:"xp"`
	Level      int        `json:"level"`
	Difficulty Difficulty `json:"difficulty"`
	Time       string     `json:"time"`
}
