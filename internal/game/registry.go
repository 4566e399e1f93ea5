package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Gyeri/warphunt/internal/wallet"
)

// ProviderFactory returns the wallet a new player talks to.
type ProviderFactory func(userID string) wallet.Provider

// Registry holds the live player for each user.
type Registry struct {
	cfg       Config
	providers ProviderFactory
	pub       Publisher

	mu      sync.RWMutex
	players map[string]*Player
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, providers ProviderFactory, pub Publisher) *Registry {
	if providers == nil {
		providers = func(string) wallet.Provider { return wallet.Absent{} }
	}
	return &Registry{
		cfg:       cfg,
		providers: providers,
		pub:       pub,
		players:   make(map[string]*Player),
	}
}

// Lookup returns the player for userID if one exists.
func (r *Registry) Lookup(userID string) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[userID]
}

// Get returns the player for userID, creating it on first use.
func (r *Registry) Get(ctx context.Context, userID string) *Player {
	r.mu.RLock()
	p := r.players[userID]
	if p != nil {
		p.Touch()
	}
	r.mu.RUnlock()
	if p != nil {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[userID]; ok {
		p.Touch()
		return p
	}

	p = NewPlayer(ctx, userID, r.providers(userID), r.pub, r.cfg)
	r.players[userID] = p
	slog.Info("Player registered", "user_id", userID, "wallet_available", p.State().Wallet.Available)
	return p
}

// Remove closes and forgets the player for userID.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	p, ok := r.players[userID]
	delete(r.players, userID)
	r.mu.Unlock()

	if ok {
		p.Close()
		slog.Info("Player removed", "user_id", userID)
	}
}

// Len returns the number of live players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// CloseAll closes every player.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	players := r.players
	r.players = make(map[string]*Player)
	r.mu.Unlock()

	for _, p := range players {
		p.Close()
	}
}

// ReapCallback is called for every player removed by the reaper.
type ReapCallback func(userID string)

// Reap removes players idle for longer than ttl. Players with a hunt, a claim
// in progress or an unclaimed reward are kept.
func (r *Registry) Reap(now time.Time, ttl time.Duration, onReap ReapCallback) int {
	r.mu.RLock()
	var candidates []string
	for id, p := range r.players {
		if p.Idle(now, ttl) {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	reaped := 0
	for _, id := range candidates {
		if !r.removeIfIdle(id, now, ttl) {
			continue
		}
		reaped++
		if onReap != nil {
			onReap(id)
		}
	}
	return reaped
}

// removeIfIdle removes the player only if it is still idle once the write lock
// is held, so a request that arrived after the scan keeps its player.
func (r *Registry) removeIfIdle(userID string, now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	p, ok := r.players[userID]
	if !ok || !p.Idle(now, ttl) {
		r.mu.Unlock()
		return false
	}
	delete(r.players, userID)
	r.mu.Unlock()

	p.Close()
	slog.Info("Player reaped", "user_id", userID)
	return true
}

// StartReaper periodically removes idle players until ctx is done.
func (r *Registry) StartReaper(ctx context.Context, interval, ttl time.Duration, onReap ReapCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Player reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := r.Reap(time.Now(), ttl, onReap); n > 0 {
					slog.Info("Player reaper removed idle players", "count", n, "remaining", r.Len())
				}
			case <-ctx.Done():
				slog.Info("Player reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
