package tui

import "time"

const (
	xpCountDuration = 2 * time.Second
	xpFrame         = 50 * time.Millisecond
)

// xpCounter counts up from zero to the earned XP. It only affects what is drawn.
type xpCounter struct {
	rewardID string
	target   int
	start    time.Time
}

func newXPCounter(rewardID string, target int, start time.Time) xpCounter {
	return xpCounter{rewardID: rewardID, target: target, start: start}
}

// Value returns the number shown at now.
func (c xpCounter) Value(now time.Time) int {
	if c.target <= 0 {
		return 0
	}
	elapsed := now.Sub(c.start)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= xpCountDuration:
		return c.target
	}
	return int(int64(c.target) * int64(elapsed) / int64(xpCountDuration))
}

// Done reports whether the count has reached the target.
func (c xpCounter) Done(now time.Time) bool {
	return now.Sub(c.start) >= xpCountDuration
}
