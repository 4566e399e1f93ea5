package wallet

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x1234567890abcdef1234567890abcdef12345678", "0x1234...5678"},
		{"", "0x0000...0000"},
		{"0x123", "0x0000...0000"},
		{"0x12345678", "0x1234...5678"},
	}
	for _, tt := range tests {
		if got := FormatAddress(tt.in); got != tt.want {
			t.Errorf("FormatAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAbsentProvider(t *testing.T) {
	var p Provider = Absent{}
	if p.HasProvider() {
		t.Fatal("expected absent provider")
	}
	if _, err := p.RequestAccounts(context.Background()); !errors.Is(err, ErrProviderAbsent) {
		t.Fatalf("expected ErrProviderAbsent, got %v", err)
	}
	if _, err := p.SendTransaction(context.Background(), ProgressHuntTx()); !errors.Is(err, ErrProviderAbsent) {
		t.Fatalf("expected ErrProviderAbsent, got %v", err)
	}
}

func TestSimulatedAuthorization(t *testing.T) {
	ctx := context.Background()
	w := NewSimulated(SimulatedConfig{})

	accounts, err := w.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("GetAccounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("expected no accounts before authorization, got %v", accounts)
	}

	w.RejectNextRequest()
	if _, err := w.RequestAccounts(ctx); !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}

	accounts, err = w.RequestAccounts(ctx)
	if err != nil {
		t.Fatalf("RequestAccounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != DefaultAddress {
		t.Fatalf("unexpected accounts %v", accounts)
	}

	accounts, _ = w.GetAccounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("expected authorized accounts, got %v", accounts)
	}
}

func TestSimulatedSendTransaction(t *testing.T) {
	ctx := context.Background()
	w := NewSimulated(SimulatedConfig{AutoAuthorize: true})

	hash, err := w.SendTransaction(ctx, ClaimXPTx())
	if err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if !hashPattern.MatchString(hash) {
		t.Fatalf("unexpected hash %q", hash)
	}

	sent := w.Sent()
	if len(sent) != 1 || sent[0].Data != SelectorClaimXP || sent[0].Value != "0x0" {
		t.Fatalf("unexpected sent transactions %+v", sent)
	}

	boom := errors.New("boom")
	w.FailNextSend(boom)
	if _, err := w.SendTransaction(ctx, ProgressHuntTx()); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if _, err := w.SendTransaction(ctx, ProgressHuntTx()); err != nil {
		t.Fatalf("injected failure should apply once, got %v", err)
	}
}

func TestSimulatedSendRequiresAuthorization(t *testing.T) {
	w := NewSimulated(SimulatedConfig{})
	if _, err := w.SendTransaction(context.Background(), ProgressHuntTx()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSimulatedSendHonoursContext(t *testing.T) {
	w := NewSimulated(SimulatedConfig{AutoAuthorize: true, SendDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := w.SendTransaction(ctx, ProgressHuntTx()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSimulatedAccountsChanged(t *testing.T) {
	w := NewSimulated(SimulatedConfig{AutoAuthorize: true})

	var got [][]string
	sub := w.OnAccountsChanged(func(accounts []string) {
		got = append(got, accounts)
	})

	w.SetAccounts([]string{"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"})
	w.SetAccounts(nil)

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if len(got[1]) != 0 {
		t.Fatalf("expected disconnect notification, got %v", got[1])
	}

	w.RemoveListener(sub)
	if w.ListenerCount() != 0 {
		t.Fatalf("expected listener to be removed")
	}
	w.SetAccounts([]string{DefaultAddress})
	if len(got) != 2 {
		t.Fatalf("removed listener was still notified")
	}
}
