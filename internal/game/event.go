package game

import "time"

// Event types pushed to subscribers.
const (
	EventState         = "state"
	EventWallet        = "wallet"
	EventTick          = "tick"
	EventTxStage       = "tx_stage"
	EventTxProgress    = "tx_progress"
	EventStepAdvanced  = "step_advanced"
	EventHuntCompleted = "hunt_completed"
	EventHuntFailed    = "hunt_failed"
	EventHuntQuit      = "hunt_quit"
	EventRewardClaimed = "reward_claimed"
)

// Event is a state change pushed to a player's subscribers.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

// Publisher fans events out to subscribers. Publish must not block.
type Publisher interface {
	Publish(userID string, ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Event) {}

// TickData is the payload of EventTick.
type TickData struct {
	TimeRemaining int `json:"time_remaining"`
	PointsAtStake int `json:"points_at_stake"`
}
