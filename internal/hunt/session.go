package hunt

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/scoring"
)

var (
	ErrNotActive         = errors.New("hunt is not active")
	ErrAlreadyStarted    = errors.New("hunt already started")
	ErrStepAlreadySolved = errors.New("step already solved")
	ErrAnswerRequired    = errors.New("current step has not been solved")
	ErrNotCompleted      = errors.New("hunt has not been completed")
)

// Status is the lifecycle position of a Session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusQuit       Status = "quit"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusQuit
}

// Hooks receive countdown events for a session. They run on the countdown
// goroutine; implementations must take their own locks and check that the
// session is still current.
type Hooks struct {
	Tick   func(s *Session, remaining int)
	Expire func(s *Session)
}

// SessionConfig configures a new Session.
type SessionConfig struct {
	TickInterval time.Duration
	Verifier     Verifier
	Clues        []domain.Clue
	Hooks        Hooks
	Now          func() time.Time
}

// AnswerResult describes the outcome of one submission.
type AnswerResult struct {
	Accepted bool `json:"accepted"`
	Points   int  `json:"points"`
	Score    int  `json:"score"`
	Step     int  `json:"step"`
	Attempts int  `json:"attempts"`
}

// Session is one play-through of the clue sequence.
//
// A Session is not safe for concurrent use. The owner serializes every call,
// including the ones it makes from Hooks. Only the countdown has its own lock.
type Session struct {
	id         string
	difficulty domain.Difficulty
	verifier   Verifier
	clues      []domain.Clue
	now        func() time.Time
	countdown  *Countdown

	status        Status
	step          int
	score         int
	hintUsed      bool
	attempts      int
	solved        bool
	hintsUsed     int
	totalAttempts int
	startedAt     time.Time
	reward        *domain.RewardSummary
}

// NewSession creates a session that has not started yet. It panics on an
// invalid difficulty.
func NewSession(d domain.Difficulty, cfg SessionConfig) *Session {
	if !d.Valid() {
		panic(fmt.Sprintf("hunt: session created with invalid difficulty %q", d))
	}
	if cfg.Verifier == nil {
		cfg.Verifier = NonEmptyVerifier()
	}
	if cfg.Clues == nil {
		cfg.Clues = domain.DefaultClues()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Session{
		id:         uuid.NewString(),
		difficulty: d,
		verifier:   cfg.Verifier,
		clues:      cfg.Clues,
		now:        cfg.Now,
		status:     StatusNotStarted,
	}

	var onTick func(int)
	if cfg.Hooks.Tick != nil {
		onTick = func(remaining int) { cfg.Hooks.Tick(s, remaining) }
	}
	var onExpire func()
	if cfg.Hooks.Expire != nil {
		onExpire = func() { cfg.Hooks.Expire(s) }
	}
	s.countdown = NewCountdown(d.TimeBudget(), cfg.TickInterval, onTick, onExpire)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Difficulty returns the difficulty fixed at creation.
func (s *Session) Difficulty() domain.Difficulty { return s.difficulty }

// Status returns the lifecycle status.
func (s *Session) Status() Status { return s.status }

// Step returns the current 1-based step, or 0 before start.
func (s *Session) Step() int { return s.step }

// Score returns the points accumulated so far.
func (s *Session) Score() int { return s.score }

// Solved reports whether the current step has an accepted answer.
func (s *Session) Solved() bool { return s.solved }

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int { return s.countdown.Remaining() }

// Start begins the hunt at step 1 and starts the countdown.
func (s *Session) Start() error {
	if s.status != StatusNotStarted {
		return ErrAlreadyStarted
	}
	s.status = StatusActive
	s.step = 1
	s.score = 0
	s.startedAt = s.now()
	s.countdown.Start()
	return nil
}

// PointsAtStake is what a correct answer would earn right now.
func (s *Session) PointsAtStake() int {
	return scoring.StepPoints(s.difficulty, s.Remaining(), s.hintUsed)
}

// SubmitAnswer checks an answer for the current step. Every submission counts
// as an attempt. An accepted answer adds the points at stake to the score;
// the step then waits for its transaction before advancing.
func (s *Session) SubmitAnswer(answer string) (AnswerResult, error) {
	if s.status != StatusActive {
		return AnswerResult{}, ErrNotActive
	}
	if s.solved {
		return AnswerResult{}, ErrStepAlreadySolved
	}

	s.attempts++
	s.totalAttempts++

	result := AnswerResult{Step: s.step, Attempts: s.attempts}
	if s.verifier.Verify(s.step, answer) {
		result.Accepted = true
		result.Points = s.PointsAtStake()
		s.score += result.Points
		s.solved = true
	}
	result.Score = s.score
	return result, nil
}

// UseHint reveals the hint for the current step. Using a hint a second time on
// the same step, or after the step is solved, returns the hint again without
// further penalty.
func (s *Session) UseHint() (string, error) {
	if s.status != StatusActive {
		return "", ErrNotActive
	}
	if !s.hintUsed && !s.solved {
		s.hintUsed = true
		s.hintsUsed++
	}
	return domain.HintText(s.clues, s.step), nil
}

// CanOpenTransaction returns nil when the current step is ready for its
// progress transaction.
func (s *Session) CanOpenTransaction() error {
	if s.status != StatusActive {
		return ErrNotActive
	}
	if !s.solved {
		return ErrAnswerRequired
	}
	return nil
}

// Advance moves past a confirmed step. On the final step it completes the hunt,
// stops the countdown and computes the reward. It reports whether the hunt is
// now complete.
func (s *Session) Advance() (bool, error) {
	if err := s.CanOpenTransaction(); err != nil {
		return false, err
	}

	if s.step < domain.TotalSteps {
		s.step++
		s.hintUsed = false
		s.attempts = 0
		s.solved = false
		return false, nil
	}

	s.countdown.Stop()
	s.status = StatusCompleted
	remaining := s.countdown.Remaining()
	s.reward = &domain.RewardSummary{
		ID:            uuid.NewString(),
		HuntScore:     s.score,
		Difficulty:    s.difficulty,
		EarnedXP:      scoring.EarnedXP(s.difficulty, remaining),
		TimeRemaining: remaining,
		HintsUsed:     s.hintsUsed,
		TotalAttempts: s.totalAttempts,
		CompletedAt:   s.now(),
	}
	return true, nil
}

// Reward returns the summary computed at completion.
func (s *Session) Reward() (domain.RewardSummary, error) {
	if s.reward == nil {
		return domain.RewardSummary{}, ErrNotCompleted
	}
	return *s.reward, nil
}

// Expire marks an active hunt as failed. It reports whether anything changed.
func (s *Session) Expire() bool {
	if s.status != StatusActive {
		return false
	}
	s.countdown.Stop()
	s.status = StatusFailed
	return true
}

// Quit abandons an active hunt. It reports whether anything changed.
func (s *Session) Quit() bool {
	if s.status != StatusActive {
		return false
	}
	s.countdown.Stop()
	s.status = StatusQuit
	return true
}

// Stop halts the countdown without changing status.
func (s *Session) Stop() {
	s.countdown.Stop()
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID            string            `json:"id"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Status        Status            `json:"status"`
	Step          int               `json:"step"`
	TotalSteps    int               `json:"total_steps"`
	Clue          string            `json:"clue"`
	Hint          string            `json:"hint,omitempty"`
	HintUsed      bool              `json:"hint_used"`
	Attempts      int               `json:"attempts"`
	Solved        bool              `json:"solved"`
	Score         int               `json:"score"`
	TimeRemaining int               `json:"time_remaining"`
	PointsAtStake int               `json:"points_at_stake"`
	StartedAt     time.Time         `json:"started_at"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		Difficulty:    s.difficulty,
		Status:        s.status,
		Step:          s.step,
		TotalSteps:    domain.TotalSteps,
		HintUsed:      s.hintUsed,
		Attempts:      s.attempts,
		Solved:        s.solved,
		Score:         s.score,
		TimeRemaining: s.Remaining(),
		StartedAt:     s.startedAt,
	}
	if s.step > 0 {
		snap.Clue = domain.ClueText(s.clues, s.step)
	}
	if s.hintUsed {
		snap.Hint = domain.HintText(s.clues, s.step)
	}
	if s.status == StatusActive {
		snap.PointsAtStake = s.PointsAtStake()
	}
	return snap
}
