// Package game owns per-player application state: wallet connection, difficulty,
// the active hunt, its transaction flows and the reward claim.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/hunt"
	"github.com/Gyeri/warphunt/internal/scoring"
	"github.com/Gyeri/warphunt/internal/txsim"
	"github.com/Gyeri/warphunt/internal/wallet"
)

// Layer is the top-level view a player is on.
type Layer string

const (
	LayerProfile        Layer = "profile"
	LayerHunt           Layer = "hunt"
	LayerReward         Layer = "reward"
	LayerWalletFallback Layer = "wallet_fallback"
)

// DefaultClaimSettle is the pause between a confirmed claim and the profile refresh.
const DefaultClaimSettle = 2 * time.Second

// Config holds the tunables shared by all players.
type Config struct {
	TickInterval time.Duration
	TxTiming     txsim.Timing
	ClaimSettle  time.Duration
	Verifier     hunt.Verifier
	Clues        []domain.Clue
	Now          func() time.Time
}

// DefaultConfig returns production pacing.
func DefaultConfig() Config {
	return Config{
		TickInterval: hunt.DefaultTickInterval,
		TxTiming:     txsim.DefaultTiming(),
		ClaimSettle:  DefaultClaimSettle,
		Verifier:     hunt.NonEmptyVerifier(),
		Clues:        domain.DefaultClues(),
		Now:          time.Now,
	}
}

// Outcome records how the last hunt ended.
type Outcome struct {
	Status     hunt.Status       `json:"status"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Score      int               `json:"score"`
	Step       int               `json:"step"`
	At         time.Time         `json:"at"`
}

// WalletState is the connection as the player sees it.
type WalletState struct {
	Available      bool   `json:"available"`
	Connected      bool   `json:"connected"`
	Address        string `json:"address,omitempty"`
	DisplayAddress string `json:"display_address,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ProfileView is a profile with its derived level.
type ProfileView struct {
	domain.UserProfile
	Level         int `json:"level"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

func newProfileView(p domain.UserProfile) *ProfileView {
	return &ProfileView{
		UserProfile:   p,
		Level:         scoring.Level(p.XPBalance),
		XPToNextLevel: scoring.XPToNextLevel(p.XPBalance),
	}
}

// State is a point-in-time copy of everything a client renders.
type State struct {
	UserID       string                `json:"user_id"`
	Layer        Layer                 `json:"layer"`
	Wallet       WalletState           `json:"wallet"`
	Difficulty   domain.Difficulty     `json:"difficulty"`
	Profile      *ProfileView          `json:"profile,omitempty"`
	Hunt         *hunt.Snapshot        `json:"hunt,omitempty"`
	Transaction  *txsim.Snapshot       `json:"transaction,omitempty"`
	Reward       *domain.RewardSummary `json:"reward,omitempty"`
	ClaimPending bool                  `json:"claim_pending"`
	LastOutcome  *Outcome              `json:"last_outcome,omitempty"`
}

// Player is the state machine for one user. Every transition, including those
// triggered by the countdown and transaction goroutines, runs under one mutex.
type Player struct {
	userID   string
	cfg      Config
	provider wallet.Provider
	pub      Publisher

	mu           sync.Mutex
	closed       bool
	sub          wallet.Subscription
	layer        Layer
	connected    bool
	address      string
	walletErr    string
	difficulty   domain.Difficulty
	profile      *domain.UserProfile
	session      *hunt.Session
	flow         *txsim.Flow
	flowSeq      uint64
	flowStage    txsim.Stage
	reward       *domain.RewardSummary
	claimPending bool
	claimGen     uint64
	claimTimer   *time.Timer
	outcome      *Outcome
	lastSeen     time.Time
}

// NewPlayer creates a player and silently restores a previously authorized
// wallet connection without prompting.
func NewPlayer(ctx context.Context, userID string, provider wallet.Provider, pub Publisher, cfg Config) *Player {
	if provider == nil {
		provider = wallet.Absent{}
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Clues == nil {
		cfg.Clues = domain.DefaultClues()
	}
	if cfg.Verifier == nil {
		cfg.Verifier = hunt.NonEmptyVerifier()
	}

	p := &Player{
		userID:     userID,
		cfg:        cfg,
		provider:   provider,
		pub:        pub,
		layer:      LayerProfile,
		difficulty: domain.DefaultDifficulty,
		lastSeen:   cfg.Now(),
	}

	if !provider.HasProvider() {
		p.layer = LayerWalletFallback
		return p
	}

	p.sub = provider.OnAccountsChanged(p.handleAccountsChanged)

	accounts, err := provider.GetAccounts(ctx)
	if err != nil {
		slog.Warn("Failed to restore wallet connection", "user_id", userID, "error", err)
		return p
	}
	if len(accounts) > 0 {
		p.mu.Lock()
		p.applyConnectedLocked(accounts[0])
		p.mu.Unlock()
		slog.Info("Wallet connection restored", "user_id", userID)
	}
	return p
}

// UserID returns the owning user.
func (p *Player) UserID() string { return p.userID }

// Wallet returns the provider the player talks to.
func (p *Player) Wallet() wallet.Provider { return p.provider }

// Touch records activity.
func (p *Player) Touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen = p.cfg.Now()
}

// Busy reports whether a hunt or reward is in progress.
func (p *Player) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busyLocked()
}

func (p *Player) busyLocked() bool {
	return p.session != nil || p.claimPending || (p.reward != nil && !p.reward.Claimed)
}

// Idle reports whether the player has been inactive for longer than ttl and
// has nothing in progress.
func (p *Player) Idle(now time.Time, ttl time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Sub(p.lastSeen) > ttl && !p.busyLocked()
}

// Close stops all timers and flows and detaches from the wallet.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.session != nil {
		p.session.Stop()
	}
	p.closeFlowLocked()
	p.cancelClaimLocked()
	if p.provider.HasProvider() {
		p.provider.RemoveListener(p.sub)
	}
}

// ConnectWallet asks the wallet for authorization.
func (p *Player) ConnectWallet(ctx context.Context) (WalletState, error) {
	p.mu.Lock()
	if err := p.usableLocked(); err != nil {
		p.mu.Unlock()
		return WalletState{}, err
	}
	if !p.provider.HasProvider() {
		p.layer = LayerWalletFallback
		ws := p.walletStateLocked()
		p.mu.Unlock()
		return ws, wallet.ErrProviderAbsent
	}
	p.walletErr = ""
	p.mu.Unlock()

	accounts, err := p.provider.RequestAccounts(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return WalletState{}, err
	}
	p.lastSeen = p.cfg.Now()

	if err != nil {
		p.walletErr = connectErrorMessage(err)
		p.publishLocked(EventWallet, p.walletStateLocked())
		slog.Warn("Wallet connection failed", "user_id", p.userID, "error", err)
		return p.walletStateLocked(), fmt.Errorf("connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		p.walletErr = "No accounts found"
		p.publishLocked(EventWallet, p.walletStateLocked())
		return p.walletStateLocked(), wallet.ErrNoAccounts
	}

	p.applyConnectedLocked(accounts[0])
	slog.Info("Wallet connected", "user_id", p.userID, "address", wallet.FormatAddress(accounts[0]))
	return p.walletStateLocked(), nil
}

// DisconnectWallet forgets the connection locally. The wallet itself keeps its
// authorization, so the next session restores it silently.
func (p *Player) DisconnectWallet() (WalletState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return WalletState{}, err
	}
	p.connected = false
	p.address = ""
	p.walletErr = ""
	p.lastSeen = p.cfg.Now()
	p.publishLocked(EventWallet, p.walletStateLocked())
	return p.walletStateLocked(), nil
}

// Accounts returns the wallet's authorized accounts without prompting.
func (p *Player) Accounts(ctx context.Context) ([]string, error) {
	return p.provider.GetAccounts(ctx)
}

func (p *Player) handleAccountsChanged(accounts []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if len(accounts) == 0 {
		p.connected = false
		p.address = ""
		slog.Info("Wallet accounts cleared", "user_id", p.userID)
		p.publishLocked(EventWallet, p.walletStateLocked())
		return
	}
	p.applyConnectedLocked(accounts[0])
}

func (p *Player) applyConnectedLocked(address string) {
	display := wallet.FormatAddress(address)
	p.connected = true
	p.address = address
	p.walletErr = ""
	if p.profile == nil {
		profile := domain.MockProfile(display)
		p.profile = &profile
	} else {
		p.profile.WalletAddress = display
	}
	p.publishLocked(EventWallet, p.walletStateLocked())
}

// SelectDifficulty sets the difficulty for the next hunt. A hunt in progress
// keeps the difficulty it started with.
func (p *Player) SelectDifficulty(d domain.Difficulty) error {
	if !d.Valid() {
		return ErrInvalidDifficulty
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return err
	}
	p.difficulty = d
	p.lastSeen = p.cfg.Now()
	return nil
}

// StartHunt begins a new hunt at the selected difficulty.
func (p *Player) StartHunt() (hunt.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return hunt.Snapshot{}, err
	}
	if !p.provider.HasProvider() {
		p.layer = LayerWalletFallback
		return hunt.Snapshot{}, wallet.ErrProviderAbsent
	}
	if p.session != nil {
		return hunt.Snapshot{}, ErrHuntInProgress
	}
	if p.reward != nil {
		if !p.reward.Claimed {
			return hunt.Snapshot{}, ErrRewardUnclaimed
		}
		p.reward = nil
	}
	if !p.connected {
		return hunt.Snapshot{}, ErrWalletNotConnected
	}

	s := hunt.NewSession(p.difficulty, hunt.SessionConfig{
		TickInterval: p.cfg.TickInterval,
		Verifier:     p.cfg.Verifier,
		Clues:        p.cfg.Clues,
		Now:          p.cfg.Now,
		Hooks: hunt.Hooks{
			Tick:   p.handleTick,
			Expire: p.handleExpire,
		},
	})
	if err := s.Start(); err != nil {
		return hunt.Snapshot{}, err
	}

	p.session = s
	p.layer = LayerHunt
	p.outcome = nil
	p.lastSeen = p.cfg.Now()

	snap := s.Snapshot()
	slog.Info("Hunt started", "user_id", p.userID, "hunt_id", s.ID(), "difficulty", s.Difficulty())
	p.publishLocked(EventState, p.stateLocked())
	return snap, nil
}

// SubmitAnswer checks an answer for the current step.
func (p *Player) SubmitAnswer(answer string) (hunt.AnswerResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.activeSessionLocked()
	if err != nil {
		return hunt.AnswerResult{}, err
	}
	res, err := s.SubmitAnswer(answer)
	if err != nil {
		return res, err
	}
	if res.Accepted {
		slog.Info("Answer accepted", "user_id", p.userID, "hunt_id", s.ID(), "step", res.Step, "points", res.Points)
		p.publishLocked(EventState, p.stateLocked())
	}
	return res, nil
}

// UseHint reveals the current step's hint.
func (p *Player) UseHint() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.activeSessionLocked()
	if err != nil {
		return "", err
	}
	hint, err := s.UseHint()
	if err != nil {
		return "", err
	}
	p.publishLocked(EventState, p.stateLocked())
	return hint, nil
}

// Quit abandons the hunt. Nothing happens unless confirm is set.
func (p *Player) Quit(confirm bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.activeSessionLocked()
	if err != nil {
		return err
	}
	if !confirm {
		return ErrQuitNotConfirmed
	}
	if !s.Quit() {
		return ErrNoHunt
	}
	p.endHuntLocked(s)
	slog.Info("Hunt quit", "user_id", p.userID, "hunt_id", s.ID(), "step", s.Step())
	p.publishLocked(EventHuntQuit, p.outcome)
	return nil
}

// OpenTransaction opens the progress transaction for a solved step.
func (p *Player) OpenTransaction() (txsim.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.activeSessionLocked()
	if err != nil {
		return txsim.Snapshot{}, err
	}
	if err := s.CanOpenTransaction(); err != nil {
		return txsim.Snapshot{}, err
	}
	if !p.connected {
		return txsim.Snapshot{}, ErrWalletNotConnected
	}
	return p.openFlowLocked(txsim.KindProgress)
}

// ClaimReward opens the claim transaction for a completed hunt.
func (p *Player) ClaimReward() (txsim.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return txsim.Snapshot{}, err
	}
	switch {
	case p.reward == nil:
		return txsim.Snapshot{}, ErrNoReward
	case p.reward.Claimed:
		return txsim.Snapshot{}, ErrRewardClaimed
	case p.claimPending:
		return txsim.Snapshot{}, ErrClaimPending
	case !p.connected:
		return txsim.Snapshot{}, ErrWalletNotConnected
	}
	return p.openFlowLocked(txsim.KindClaim)
}

// SignTransaction signs the open transaction.
func (p *Player) SignTransaction(ctx context.Context) (txsim.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return txsim.Snapshot{}, err
	}
	if p.flow == nil {
		return txsim.Snapshot{}, ErrNoTransaction
	}
	if !p.connected {
		return txsim.Snapshot{}, ErrWalletNotConnected
	}
	snap, err := p.flow.Sign(ctx)
	if err != nil {
		return snap, err
	}
	p.lastSeen = p.cfg.Now()
	p.recordFlowLocked(snap)
	p.publishLocked(EventTxStage, snap)
	return snap, nil
}

// RetryTransaction returns a failed transaction to its initial stage.
func (p *Player) RetryTransaction() (txsim.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return txsim.Snapshot{}, err
	}
	if p.flow == nil {
		return txsim.Snapshot{}, ErrNoTransaction
	}
	snap, err := p.flow.Retry()
	if err != nil {
		return snap, err
	}
	p.recordFlowLocked(snap)
	p.publishLocked(EventTxStage, snap)
	return snap, nil
}

// CloseTransaction abandons the open transaction. A solved step stays solved
// and its transaction can be opened again.
func (p *Player) CloseTransaction() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return err
	}
	if p.flow == nil {
		return ErrNoTransaction
	}
	p.closeFlowLocked()
	p.publishLocked(EventState, p.stateLocked())
	return nil
}

// ReturnHome leaves the reward view once the reward has been claimed.
func (p *Player) ReturnHome() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return err
	}
	switch p.layer {
	case LayerHunt:
		return ErrHuntInProgress
	}
	if p.reward == nil {
		return ErrNoReward
	}
	if !p.reward.Claimed {
		return ErrRewardUnclaimed
	}
	p.reward = nil
	p.layer = LayerProfile
	p.publishLocked(EventState, p.stateLocked())
	return nil
}

// State returns a snapshot of the player.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// LastOutcome returns how the most recent hunt ended, if any.
func (p *Player) LastOutcome() (Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return Outcome{}, false
	}
	return *p.outcome, true
}

func (p *Player) handleTick(s *hunt.Session, remaining int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.session != s {
		return
	}
	p.publishLocked(EventTick, TickData{TimeRemaining: remaining, PointsAtStake: s.PointsAtStake()})
}

func (p *Player) handleExpire(s *hunt.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.session != s {
		return
	}
	if !s.Expire() {
		return
	}
	p.endHuntLocked(s)
	slog.Info("Hunt expired", "user_id", p.userID, "hunt_id", s.ID(), "step", s.Step())
	p.publishLocked(EventHuntFailed, p.outcome)
}

func (p *Player) handleFlowChange(f *txsim.Flow, snap txsim.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.flow != f || snap.Seq <= p.flowSeq {
		return
	}
	typ := EventTxProgress
	if snap.Stage != p.flowStage {
		typ = EventTxStage
	}
	p.recordFlowLocked(snap)
	p.publishLocked(typ, snap)
}

func (p *Player) handleFlowConfirm(f *txsim.Flow, snap txsim.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.flow != f {
		return
	}
	p.flow = nil

	switch f.Kind() {
	case txsim.KindProgress:
		p.advanceLocked(snap)
	case txsim.KindClaim:
		p.claimPending = true
		p.claimGen++
		gen := p.claimGen
		p.claimTimer = time.AfterFunc(p.cfg.ClaimSettle, func() { p.finishClaim(gen) })
		slog.Info("Reward claim confirmed", "user_id", p.userID, "tx_hash", snap.TxHash)
		p.publishLocked(EventState, p.stateLocked())
	}
}

func (p *Player) advanceLocked(snap txsim.Snapshot) {
	s := p.session
	if s == nil {
		return
	}
	completed, err := s.Advance()
	if err != nil {
		slog.Warn("Confirmed transaction could not advance hunt", "user_id", p.userID, "hunt_id", s.ID(), "error", err)
		return
	}
	if !completed {
		slog.Info("Hunt step advanced", "user_id", p.userID, "hunt_id", s.ID(), "step", s.Step(), "tx_hash", snap.TxHash)
		p.publishLocked(EventStepAdvanced, s.Snapshot())
		return
	}

	reward, err := s.Reward()
	if err != nil {
		slog.Error("Completed hunt has no reward", "user_id", p.userID, "hunt_id", s.ID(), "error", err)
		return
	}
	p.reward = &reward
	p.endHuntLocked(s)
	p.layer = LayerReward
	slog.Info("Hunt completed",
		"user_id", p.userID,
		"hunt_id", s.ID(),
		"score", reward.HuntScore,
		"earned_xp", reward.EarnedXP,
		"time_remaining", reward.TimeRemaining)
	p.publishLocked(EventHuntCompleted, reward)
}

func (p *Player) finishClaim(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.claimGen || !p.claimPending || p.reward == nil || p.reward.Claimed {
		return
	}
	now := p.cfg.Now()
	if p.profile != nil {
		updated := p.profile.WithClaim(p.reward.EarnedXP, now)
		p.profile = &updated
	}
	p.reward.Claimed = true
	p.reward.ClaimedAt = &now
	p.claimPending = false
	p.claimTimer = nil
	slog.Info("Reward claimed", "user_id", p.userID, "reward_id", p.reward.ID, "earned_xp", p.reward.EarnedXP)
	p.publishLocked(EventRewardClaimed, p.stateLocked())
}

// endHuntLocked clears the hunt after it reached a terminal status.
func (p *Player) endHuntLocked(s *hunt.Session) {
	s.Stop()
	p.closeFlowLocked()
	p.session = nil
	p.layer = LayerProfile
	p.outcome = &Outcome{
		Status:     s.Status(),
		Difficulty: s.Difficulty(),
		Score:      s.Score(),
		Step:       s.Step(),
		At:         p.cfg.Now(),
	}
}

func (p *Player) openFlowLocked(kind txsim.Kind) (txsim.Snapshot, error) {
	if p.flow != nil {
		switch p.flow.Snapshot().Stage {
		case txsim.StageSigning, txsim.StageConfirming, txsim.StageComplete:
			return p.flow.Snapshot(), ErrTransactionInProgress
		}
		p.closeFlowLocked()
	}

	var f *txsim.Flow
	f = txsim.New(kind, p.provider, p.cfg.TxTiming, txsim.Callbacks{
		OnChange:  func(snap txsim.Snapshot) { p.handleFlowChange(f, snap) },
		OnConfirm: func(snap txsim.Snapshot) { p.handleFlowConfirm(f, snap) },
	})
	snap := f.Snapshot()
	p.flow = f
	p.recordFlowLocked(snap)
	p.lastSeen = p.cfg.Now()
	p.publishLocked(EventTxStage, snap)
	return snap, nil
}

func (p *Player) recordFlowLocked(snap txsim.Snapshot) {
	p.flowSeq = snap.Seq
	p.flowStage = snap.Stage
}

func (p *Player) closeFlowLocked() {
	if p.flow == nil {
		return
	}
	p.flow.Close()
	p.flow = nil
	p.flowSeq = 0
	p.flowStage = ""
}

func (p *Player) cancelClaimLocked() {
	p.claimGen++
	if p.claimTimer != nil {
		p.claimTimer.Stop()
		p.claimTimer = nil
	}
	p.claimPending = false
}

func (p *Player) activeSessionLocked() (*hunt.Session, error) {
	if err := p.usableLocked(); err != nil {
		return nil, err
	}
	if p.session == nil {
		return nil, ErrNoHunt
	}
	p.lastSeen = p.cfg.Now()
	return p.session, nil
}

func (p *Player) usableLocked() error {
	if p.closed {
		return ErrPlayerClosed
	}
	return nil
}

func (p *Player) walletStateLocked() WalletState {
	ws := WalletState{
		Available: p.provider.HasProvider(),
		Connected: p.connected,
		Error:     p.walletErr,
	}
	if p.connected {
		ws.Address = p.address
		ws.DisplayAddress = wallet.FormatAddress(p.address)
	}
	return ws
}

func (p *Player) stateLocked() State {
	st := State{
		UserID:       p.userID,
		Layer:        p.layer,
		Wallet:       p.walletStateLocked(),
		Difficulty:   p.difficulty,
		ClaimPending: p.claimPending,
	}
	if p.connected && p.profile != nil {
		st.Profile = newProfileView(*p.profile)
	}
	if p.session != nil {
		snap := p.session.Snapshot()
		st.Hunt = &snap
	}
	if p.flow != nil {
		snap := p.flow.Snapshot()
		st.Transaction = &snap
	}
	if p.reward != nil {
		reward := *p.reward
		st.Reward = &reward
	}
	if p.outcome != nil {
		outcome := *p.outcome
		st.LastOutcome = &outcome
	}
	return st
}

func (p *Player) publishLocked(typ string, data any) {
	p.pub.Publish(p.userID, Event{Type: typ, Data: data, At: p.cfg.Now()})
}

func connectErrorMessage(err error) string {
	if errors.Is(err, wallet.ErrUserRejected) {
		return "Connection request rejected in wallet."
	}
	return "Failed to connect wallet"
}
