// Package txsim drives the staged progress display of one on-chain transaction.
//
// A Flow moves initial -> signing -> confirming -> complete, or into error when
// the wallet rejects or fails the request. The real wallet call starts the moment
// Sign is invoked, but the stage progression is simulated on fixed intervals and
// does not wait for on-chain confirmation.
package txsim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gyeri/warphunt/internal/wallet"
)

var (
	ErrNotInitial = errors.New("transaction is not awaiting a signature")
	ErrNotFailed  = errors.New("transaction has not failed")
	ErrClosed     = errors.New("transaction flow is closed")
)

const (
	rejectedMessage = "Transaction rejected in wallet."
	genericMessage  = "Failed to process transaction. Please try again."
)

// Stage is a position in the flow.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageSigning    Stage = "signing"
	StageConfirming Stage = "confirming"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Kind says what the transaction is for.
type Kind string

const (
	KindProgress Kind = "progress"
	KindClaim    Kind = "claim"
)

// Params returns the wallet request for a kind.
func (k Kind) Params() wallet.TxParams {
	if k == KindClaim {
		return wallet.ClaimXPTx()
	}
	return wallet.ProgressHuntTx()
}

// Timing controls the simulated progression.
type Timing struct {
	SignInterval    time.Duration
	SignStep        int
	ConfirmInterval time.Duration
	ConfirmStep     int
	SettleDelay     time.Duration
}

// DefaultTiming matches the pacing players are used to: about two seconds of
// signing, one and a half of confirming and a one second settle.
func DefaultTiming() Timing {
	return Timing{
		SignInterval:    20 * time.Millisecond,
		SignStep:        1,
		ConfirmInterval: 30 * time.Millisecond,
		ConfirmStep:     2,
		SettleDelay:     time.Second,
	}
}

// Snapshot is a copy of a flow's observable state. Seq increases with every
// change so observers can discard snapshots that arrive out of order.
type Snapshot struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`
	Seq      uint64 `json:"seq"`
}

// Callbacks observe a flow. OnChange fires for every progress or stage change
// and OnConfirm fires exactly once per signature, after the settle delay that
// follows complete. Both run on the flow's own goroutines, never on the caller
// of Open, Sign, Retry or Close, and never while the flow lock is held.
type Callbacks struct {
	OnChange  func(Snapshot)
	OnConfirm func(Snapshot)
}

// Flow is one transaction modal.
type Flow struct {
	id       string
	kind     Kind
	provider wallet.Provider
	timing   Timing
	cb       Callbacks

	mu        sync.Mutex
	stage     Stage
	progress  int
	errMsg    string
	txHash    string
	seq       uint64
	gen       uint64
	cancel    context.CancelFunc
	confirmed bool
	closed    bool
}

// New opens a flow in the initial stage.
func New(kind Kind, provider wallet.Provider, timing Timing, cb Callbacks) *Flow {
	f := &Flow{
		id:       uuid.NewString(),
		kind:     kind,
		provider: provider,
		timing:   timing,
		cb:       cb,
	}
	f.Open()
	return f
}

// ID returns the flow identifier.
func (f *Flow) ID() string { return f.id }

// Kind returns what the flow is for.
func (f *Flow) Kind() Kind { return f.kind }

// Open resets the flow to initial, cancelling anything in flight.
func (f *Flow) Open() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invalidateLocked()
	f.closed = false
	f.stage = StageInitial
	f.progress = 0
	f.errMsg = ""
	f.txHash = ""
	f.confirmed = false
	f.seq++
	return f.snapshotLocked()
}

// Sign asks the wallet to send the transaction and starts the simulated
// progression. Values from ctx are kept but its cancellation is not, so the
// request outlives the call that triggered it; Close cancels it instead.
func (f *Flow) Sign(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.snapshotLocked(), ErrClosed
	}
	if f.stage != StageInitial {
		return f.snapshotLocked(), ErrNotInitial
	}

	f.invalidateLocked()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel
	f.stage = StageSigning
	f.progress = 0
	f.errMsg = ""
	f.txHash = ""
	f.seq++
	gen := f.gen

	go f.send(runCtx, gen)
	go f.run(runCtx, gen)

	slog.Debug("Transaction signing started", "flow_id", f.id, "kind", f.kind)
	return f.snapshotLocked(), nil
}

// Retry returns a failed flow to initial.
func (f *Flow) Retry() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.snapshotLocked(), ErrClosed
	}
	if f.stage != StageError {
		return f.snapshotLocked(), ErrNotFailed
	}
	f.invalidateLocked()
	f.stage = StageInitial
	f.progress = 0
	f.errMsg = ""
	f.txHash = ""
	f.seq++
	return f.snapshotLocked(), nil
}

// Close abandons the flow. No callback fires after Close returns, except one
// that had already passed its generation check.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidateLocked()
	f.closed = true
}

// Closed reports whether Close was called.
func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		ID:       f.id,
		Kind:     f.kind,
		Stage:    f.stage,
		Progress: f.progress,
		Error:    f.errMsg,
		TxHash:   f.txHash,
		Seq:      f.seq,
	}
}

func (f *Flow) invalidateLocked() {
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *Flow) notify(snap Snapshot) {
	if f.cb.OnChange != nil {
		f.cb.OnChange(snap)
	}
}

// send performs the wallet request for generation gen.
func (f *Flow) send(ctx context.Context, gen uint64) {
	hash, err := f.provider.SendTransaction(ctx, f.kind.Params())

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	if err != nil {
		if f.stage != StageSigning && f.stage != StageConfirming {
			f.mu.Unlock()
			slog.Warn("Wallet error after transaction completed", "flow_id", f.id, "error", err)
			return
		}
		f.invalidateLocked()
		f.stage = StageError
		f.errMsg = errorMessage(err)
		f.seq++
		snap := f.snapshotLocked()
		f.mu.Unlock()

		slog.Warn("Transaction failed", "flow_id", f.id, "kind", f.kind, "error", err)
		f.notify(snap)
		return
	}

	f.txHash = hash
	f.seq++
	snap := f.snapshotLocked()
	f.mu.Unlock()

	slog.Info("Transaction sent", "flow_id", f.id, "kind", f.kind, "tx_hash", hash)
	f.notify(snap)
}

// run drives the simulated stages for generation gen.
func (f *Flow) run(ctx context.Context, gen uint64) {
	if !f.advance(ctx, gen, StageSigning, f.timing.SignInterval, f.timing.SignStep, StageConfirming) {
		return
	}
	if !f.advance(ctx, gen, StageConfirming, f.timing.ConfirmInterval, f.timing.ConfirmStep, StageComplete) {
		return
	}

	timer := time.NewTimer(f.timing.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	f.confirm(gen)
}

// advance adds step to progress every interval while the flow is in stage and
// moves to next when progress reaches 100. It reports whether next was reached.
func (f *Flow) advance(ctx context.Context, gen uint64, stage Stage, interval time.Duration, step int, next Stage) bool {
	if step <= 0 {
		step = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		f.mu.Lock()
		if gen != f.gen || f.stage != stage {
			f.mu.Unlock()
			return false
		}
		f.progress += step
		done := f.progress >= 100
		if done {
			f.stage = next
			if next == StageComplete {
				f.progress = 100
			} else {
				f.progress = 0
			}
		}
		f.seq++
		snap := f.snapshotLocked()
		f.mu.Unlock()

		f.notify(snap)
		if done {
			return true
		}
	}
}

func (f *Flow) confirm(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.stage != StageComplete || f.confirmed {
		f.mu.Unlock()
		return
	}
	f.confirmed = true
	snap := f.snapshotLocked()
	f.mu.Unlock()

	slog.Info("Transaction confirmed", "flow_id", f.id, "kind", f.kind)
	if f.cb.OnConfirm != nil {
		f.cb.OnConfirm(snap)
	}
}

func errorMessage(err error) string {
	if errors.Is(err, wallet.ErrUserRejected) {
		return rejectedMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericMessage
}
