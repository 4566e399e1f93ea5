package game

import (
	"context"
	"testing"
	"time"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/wallet"
)

func simulatedFactory(string) wallet.Provider {
	return wallet.NewSimulated(wallet.SimulatedConfig{AutoAuthorize: true})
}

func TestRegistryGetCreatesOnce(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	defer r.CloseAll()

	a := r.Get(context.Background(), "alice")
	b := r.Get(context.Background(), "alice")
	if a != b {
		t.Fatal("Get() returned different players for the same user")
	}
	if r.Get(context.Background(), "bob") == a {
		t.Fatal("Get() shared a player between users")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if r.Lookup("carol") != nil {
		t.Fatal("Lookup() created a player")
	}
}

func TestRegistryRemoveClosesPlayer(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	p := r.Get(context.Background(), "alice")
	r.Remove("alice")

	if r.Lookup("alice") != nil {
		t.Fatal("player still registered")
	}
	if _, err := p.StartHunt(); err != ErrPlayerClosed {
		t.Fatalf("StartHunt() error = %v, want ErrPlayerClosed", err)
	}
}

func TestRegistryReapSkipsBusyPlayers(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	defer r.CloseAll()

	r.Get(context.Background(), "idle")
	busy := r.Get(context.Background(), "busy")
	if _, err := busy.StartHunt(); err != nil {
		t.Fatal(err)
	}

	var reaped []string
	n := r.Reap(time.Now().Add(time.Hour), time.Minute, func(id string) { reaped = append(reaped, id) })
	if n != 1 || len(reaped) != 1 || reaped[0] != "idle" {
		t.Fatalf("Reap() = %d %v, want [idle]", n, reaped)
	}
	if r.Lookup("busy") == nil {
		t.Fatal("busy player was reaped")
	}
	if r.Reap(time.Now(), time.Minute, nil) != 0 {
		t.Fatal("fresh players were reaped")
	}
}

func TestRegistryReaperStopsWithContext(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	defer r.CloseAll()
	r.Get(context.Background(), "alice")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan string, 1)
	r.StartReaper(ctx, time.Millisecond, 0, func(id string) { done <- id })

	select {
	case id := <-done:
		if id != "alice" {
			t.Fatalf("reaped %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never ran")
	}
	cancel()
}

func completeHunt(t *testing.T, p *Player) {
	t.Helper()
	if _, err := p.StartHunt(); err != nil {
		t.Fatal(err)
	}
	for step := 1; step <= domain.TotalSteps; step++ {
		solveStep(t, p)
		next := step + 1
		waitFor(t, "step advance", func() bool {
			st := p.State()
			if next > domain.TotalSteps {
				return st.Layer == LayerReward
			}
			return st.Hunt != nil && st.Hunt.Step == next
		})
	}
}

func TestRegistryReapKeepsUnclaimedReward(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	defer r.CloseAll()

	p := r.Get(context.Background(), "alice")
	completeHunt(t, p)
	if !p.Busy() {
		t.Fatal("player with an unclaimed reward is not busy")
	}

	if n := r.Reap(time.Now().Add(time.Hour), time.Minute, nil); n != 0 {
		t.Fatalf("Reap() = %d, want 0", n)
	}
	if got := r.Lookup("alice"); got != p {
		t.Fatal("player with an unclaimed reward was reaped")
	}
	if st := p.State(); st.Reward == nil || st.Reward.Claimed {
		t.Fatalf("reward after Reap() = %+v", st.Reward)
	}

	if _, err := p.ClaimReward(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SignTransaction(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reward claimed", func() bool {
		rw := p.State().Reward
		return rw != nil && rw.Claimed
	})
	if n := r.Reap(time.Now().Add(time.Hour), time.Minute, nil); n != 1 {
		t.Fatalf("Reap() after claim = %d, want 1", n)
	}
}

func TestRegistryRemoveIfIdleRechecksPlayer(t *testing.T) {
	r := NewRegistry(testConfig(), simulatedFactory, nil)
	defer r.CloseAll()

	later := time.Now().Add(time.Hour)
	p := r.Get(context.Background(), "alice")
	if !p.Idle(later, time.Minute) {
		t.Fatal("fresh player not idle an hour later")
	}

	// Activity between the scan and the removal keeps the player.
	if _, err := p.StartHunt(); err != nil {
		t.Fatal(err)
	}
	if r.removeIfIdle("alice", later, time.Minute) {
		t.Fatal("removeIfIdle() removed a player with an active hunt")
	}
	if r.Lookup("alice") != p {
		t.Fatal("player no longer registered")
	}
	if _, err := p.UseHint(); err != nil {
		t.Fatalf("UseHint() error = %v, player was closed", err)
	}

	if r.removeIfIdle("bob", later, time.Minute) {
		t.Fatal("removeIfIdle() reported an unknown user")
	}
}
