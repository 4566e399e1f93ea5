package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"slices"
	"sync"
	"time"
)

// DefaultAddress is the account exposed by a simulated wallet when none is configured.
const DefaultAddress = "0x1234567890abcdef1234567890abcdef12345678"

var errSimulatedFailure = errors.New("transaction failed, please try again")

// SimulatedConfig controls the simulated wallet.
type SimulatedConfig struct {
	Address       string
	SendDelay     time.Duration
	FailureRate   float64 // probability in [0,1] that SendTransaction fails
	AutoAuthorize bool    // accounts are authorized before any RequestAccounts
}

// Simulated is an in-memory wallet that never touches a chain. Transaction hashes
// are random and nothing is awaited beyond SendDelay.
type Simulated struct {
	cfg SimulatedConfig

	mu         sync.Mutex
	authorized bool
	accounts   []string
	rejectNext bool
	failNext   error
	listeners  map[Subscription]AccountsChangedFunc
	nextSub    Subscription
	sent       []TxParams
}

var _ Provider = (*Simulated)(nil)

// NewSimulated creates a simulated wallet.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	return &Simulated{
		cfg:        cfg,
		authorized: cfg.AutoAuthorize,
		accounts:   []string{cfg.Address},
		listeners:  make(map[Subscription]AccountsChangedFunc),
	}
}

// HasProvider always reports true.
func (s *Simulated) HasProvider() bool { return true }

// GetAccounts returns the accounts if the app was authorized before.
func (s *Simulated) GetAccounts(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized {
		return []string{}, nil
	}
	return slices.Clone(s.accounts), nil
}

// RequestAccounts authorizes the app unless a rejection was queued.
func (s *Simulated) RequestAccounts(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectNext {
		s.rejectNext = false
		return nil, ErrUserRejected
	}
	s.authorized = true
	return slices.Clone(s.accounts), nil
}

// SendTransaction waits SendDelay and returns a random 32-byte hash.
func (s *Simulated) SendTransaction(ctx context.Context, params TxParams) (string, error) {
	if params.To == "" {
		return "", fmt.Errorf("send transaction: missing recipient")
	}

	if s.cfg.SendDelay > 0 {
		timer := time.NewTimer(s.cfg.SendDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", fmt.Errorf("send transaction: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	authorized := s.authorized && len(s.accounts) > 0
	failNext := s.failNext
	s.failNext = nil
	s.sent = append(s.sent, params)
	s.mu.Unlock()

	if !authorized {
		return "", ErrNotAuthorized
	}
	if failNext != nil {
		return "", failNext
	}
	if s.cfg.FailureRate > 0 && mrand.Float64() < s.cfg.FailureRate {
		return "", errSimulatedFailure
	}

	hash, err := randomHash()
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	slog.Debug("Simulated transaction sent", "to", params.To, "data", params.Data, "hash", hash)
	return hash, nil
}

// OnAccountsChanged registers fn.
func (s *Simulated) OnAccountsChanged(fn AccountsChangedFunc) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	s.listeners[s.nextSub] = fn
	return s.nextSub
}

// RemoveListener unregisters sub.
func (s *Simulated) RemoveListener(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, sub)
}

// SetAccounts simulates the user switching or locking accounts in the wallet.
// Listeners are called synchronously, outside the wallet lock.
func (s *Simulated) SetAccounts(accounts []string) {
	s.mu.Lock()
	s.accounts = slices.Clone(accounts)
	visible := []string{}
	if s.authorized {
		visible = slices.Clone(accounts)
	}
	listeners := make([]AccountsChangedFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(visible))
	}
}

// RejectNextRequest makes the next RequestAccounts fail with ErrUserRejected.
func (s *Simulated) RejectNextRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = true
}

// FailNextSend makes the next SendTransaction return err.
func (s *Simulated) FailNextSend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Sent returns every transaction submitted so far.
func (s *Simulated) Sent() []TxParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

// ListenerCount returns the number of registered listeners.
func (s *Simulated) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func randomHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate transaction hash: %w", err)
	}
	return "0x" + hex.EncodeToString(buf), nil
}
