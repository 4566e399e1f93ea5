package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/identity"
	"github.com/Gyeri/warphunt/internal/store"
	"github.com/Gyeri/warphunt/internal/txsim"
	"github.com/Gyeri/warphunt/internal/wallet"
)

const testUser = "hunter_0123456789abcdef0123456789abcdef"

type fakeRepo struct {
	store.Repository

	mu      sync.Mutex
	prefs   map[string]string
	pingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{prefs: make(map[string]string)}
}

func (f *fakeRepo) GetPreference(_ context.Context, userID, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.prefs[userID+"/"+key]
	return v, ok, nil
}

func (f *fakeRepo) SetPreference(_ context.Context, userID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[userID+"/"+key] = value
	return nil
}

func (f *fakeRepo) ListLeaderboard(context.Context) ([]domain.LeaderboardEntry, error) {
	return []domain.LeaderboardEntry{
		{Rank: 1, Name: "CryptoWizard", Score: 1850, XP: 420, Level: 8, Difficulty: domain.DifficultyHard, Time: "4:32"},
	}, nil
}

func (f *fakeRepo) Ping(context.Context) error { return f.pingErr }

type testServer struct {
	router  chi.Router
	repo    *fakeRepo
	players *game.Registry
}

func newTestServer(t *testing.T, providers game.ProviderFactory) *testServer {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.TxTiming = txsim.Timing{
		SignInterval:    time.Millisecond,
		SignStep:        50,
		ConfirmInterval: time.Millisecond,
		ConfirmStep:     50,
		SettleDelay:     time.Millisecond,
	}
	cfg.ClaimSettle = time.Millisecond

	repo := newFakeRepo()
	players := game.NewRegistry(cfg, providers, nil)
	t.Cleanup(players.CloseAll)

	base := NewHandler(repo, players)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID := req.Header.Get("X-Test-User"); userID != "" {
				req = req.WithContext(identity.WithUser(req.Context(), userID, identity.DefaultSessionIDValue))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHealthHandler(repo, players).RegisterHealth(r)
	NewGameHandler(base).RegisterRoutes(r)
	NewPreferenceHandler(base).RegisterRoutes(r)
	return &testServer{router: r, repo: repo, players: players}
}

func simulatedWallets(cfg wallet.SimulatedConfig) game.ProviderFactory {
	return func(string) wallet.Provider { return wallet.NewSimulated(cfg) }
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", testUser)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

type huntView struct {
	Difficulty    string `json:"difficulty"`
	Step          int    `json:"step"`
	TimeRemaining int    `json:"time_remaining"`
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestRoutesRequireIdentity(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{}))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	expectStatus(t, rec, http.StatusUnauthorized)
	if s.players.Len() != 0 {
		t.Fatalf("players = %d, want 0", s.players.Len())
	}
}

func TestStateIncludesDefaultTheme(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{}))
	rec := s.do(t, http.MethodGet, "/api/state", "")
	expectStatus(t, rec, http.StatusOK)

	got := decodeBody[StateResponse](t, rec)
	if got.Theme != domain.ThemeDark {
		t.Errorf("theme = %q, want dark", got.Theme)
	}
	if got.Layer != game.LayerProfile {
		t.Errorf("layer = %q", got.Layer)
	}
	if got.Wallet.Connected {
		t.Error("wallet connected before authorization")
	}
	if got.Difficulty != domain.DefaultDifficulty {
		t.Errorf("difficulty = %q", got.Difficulty)
	}
}

func TestHuntFlow(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{}))

	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/start", ""), http.StatusConflict)

	rec := s.do(t, http.MethodPost, "/api/wallet/connect", "")
	expectStatus(t, rec, http.StatusOK)
	ws := decodeBody[game.WalletState](t, rec)
	if !ws.Connected || ws.DisplayAddress != "0x1234...5678" {
		t.Fatalf("wallet = %+v", ws)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/difficulty", `{"difficulty":"easy"}`), http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/hunt/start", "")
	expectStatus(t, rec, http.StatusCreated)
	snap := decodeBody[huntView](t, rec)
	if snap.Difficulty != "easy" || snap.Step != 1 || snap.TimeRemaining != 900 {
		t.Fatalf("snapshot = %+v", snap)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/start", ""), http.StatusConflict)
	expectStatus(t, s.do(t, http.MethodPost, "/api/tx/open", ""), http.StatusConflict)

	rec = s.do(t, http.MethodPost, "/api/hunt/hint", "")
	expectStatus(t, rec, http.StatusOK)
	if hint := decodeBody[map[string]string](t, rec)["hint"]; hint == "" {
		t.Fatal("empty hint")
	}

	rec = s.do(t, http.MethodPost, "/api/hunt/answer", `{"answer":"  "}`)
	expectStatus(t, rec, http.StatusOK)
	if decodeBody[map[string]any](t, rec)["accepted"] != false {
		t.Fatal("blank answer accepted")
	}

	rec = s.do(t, http.MethodPost, "/api/hunt/answer", `{"answer":"warp"}`)
	expectStatus(t, rec, http.StatusOK)
	if decodeBody[map[string]any](t, rec)["accepted"] != true {
		t.Fatal("answer rejected")
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/tx/open", ""), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, "/api/tx/retry", ""), http.StatusConflict)
	expectStatus(t, s.do(t, http.MethodPost, "/api/tx/sign", ""), http.StatusAccepted)

	p := s.players.Lookup(testUser)
	deadline := time.Now().Add(3 * time.Second)
	for p.State().Hunt == nil || p.State().Hunt.Step != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("step did not advance: %+v", p.State().Hunt)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestQuitRequiresConfirmation(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{AutoAuthorize: true}))
	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/start", ""), http.StatusCreated)

	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/quit", ""), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/quit", `{"confirm":true}`), http.StatusOK)

	got := decodeBody[StateResponse](t, s.do(t, http.MethodGet, "/api/state", ""))
	if got.Hunt != nil || got.Layer != game.LayerProfile {
		t.Fatalf("state after quit = %+v", got.State)
	}
	if got.LastOutcome == nil || got.LastOutcome.Status != "quit" {
		t.Fatalf("outcome = %+v", got.LastOutcome)
	}
}

func TestInvalidRequests(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{AutoAuthorize: true}))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown difficulty", http.MethodPut, "/api/difficulty", `{"difficulty":"nightmare"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/api/difficulty", `{"level":"easy"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/hunt/answer", `{`, http.StatusBadRequest},
		{"answer without hunt", http.MethodPost, "/api/hunt/answer", `{"answer":"x"}`, http.StatusConflict},
		{"claim without reward", http.MethodPost, "/api/reward/claim", "", http.StatusConflict},
		{"home without reward", http.MethodPost, "/api/reward/home", "", http.StatusConflict},
		{"close without transaction", http.MethodPost, "/api/tx/close", "", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, s.do(t, tt.method, tt.path, tt.body), tt.want)
		})
	}
}

func TestWalletFallback(t *testing.T) {
	s := newTestServer(t, nil)

	got := decodeBody[StateResponse](t, s.do(t, http.MethodGet, "/api/state", ""))
	if got.Layer != game.LayerWalletFallback || got.Wallet.Available {
		t.Fatalf("state = %+v", got.State)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/wallet/connect", ""), http.StatusPreconditionFailed)
	expectStatus(t, s.do(t, http.MethodPost, "/api/hunt/start", ""), http.StatusPreconditionFailed)
	expectStatus(t, s.do(t, http.MethodPost, "/api/wallet/accounts", `{"accounts":[]}`), http.StatusNotImplemented)
}

func TestConnectRejected(t *testing.T) {
	w := wallet.NewSimulated(wallet.SimulatedConfig{})
	w.RejectNextRequest()
	s := newTestServer(t, func(string) wallet.Provider { return w })

	rec := s.do(t, http.MethodPost, "/api/wallet/connect", "")
	expectStatus(t, rec, http.StatusForbidden)

	got := decodeBody[StateResponse](t, s.do(t, http.MethodGet, "/api/state", ""))
	if got.Wallet.Error != "Connection request rejected in wallet." {
		t.Fatalf("wallet error = %q", got.Wallet.Error)
	}
}

func TestAccountsChangeDisconnects(t *testing.T) {
	s := newTestServer(t, simulatedWallets(wallet.SimulatedConfig{AutoAuthorize: true}))

	rec := s.do(t, http.MethodPost, "/api/wallet/accounts", `{"accounts":[]}`)
	expectStatus(t, rec, http.StatusOK)
	if ws := decodeBody[game.WalletState](t, rec); ws.Connected {
		t.Fatalf("wallet still connected: %+v", ws)
	}

	rec = s.do(t, http.MethodPost, "/api/wallet/accounts", `{"accounts":["0xabcdef0000000000000000000000000000001234"]}`)
	expectStatus(t, rec, http.StatusOK)
	if ws := decodeBody[game.WalletState](t, rec); ws.DisplayAddress != "0xabcd...1234" {
		t.Fatalf("wallet = %+v", ws)
	}
}

func TestThemePreference(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/preferences/theme", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[themeBody](t, rec).Theme; got != domain.ThemeDark {
		t.Fatalf("default theme = %q", got)
	}

	rec = s.do(t, http.MethodPost, "/api/preferences/theme/toggle", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[themeBody](t, rec).Theme; got != domain.ThemeLight {
		t.Fatalf("toggled theme = %q", got)
	}
	if v := s.repo.prefs[testUser+"/"+domain.ThemePreferenceKey]; v != "light" {
		t.Fatalf("stored theme = %q", v)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/preferences/theme", `{"theme":"sepia"}`), http.StatusBadRequest)

	rec = s.do(t, http.MethodPut, "/api/preferences/theme", `{"theme":"dark"}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[StateResponse](t, s.do(t, http.MethodGet, "/api/state", "")).Theme; got != domain.ThemeDark {
		t.Fatalf("state theme = %q", got)
	}
}

func TestStoredGarbageThemeFallsBack(t *testing.T) {
	s := newTestServer(t, nil)
	s.repo.prefs[testUser+"/"+domain.ThemePreferenceKey] = "neon"

	rec := s.do(t, http.MethodGet, "/api/preferences/theme", "")
	if got := decodeBody[themeBody](t, rec).Theme; got != domain.ThemeDark {
		t.Fatalf("theme = %q, want dark", got)
	}
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/leaderboard", "")
	expectStatus(t, rec, http.StatusOK)

	got := decodeBody[struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}](t, rec)
	if len(got.Entries) != 1 || got.Entries[0].Name != "CryptoWizard" {
		t.Fatalf("entries = %+v", got.Entries)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	expectStatus(t, s.do(t, http.MethodGet, "/health", ""), http.StatusOK)

	s.repo.pingErr = errors.New("disk gone")
	rec := s.do(t, http.MethodGet, "/health", "")
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if got := decodeBody[map[string]any](t, rec)["status"]; got != "degraded" {
		t.Fatalf("status = %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("start: %w", game.ErrHuntInProgress), http.StatusConflict},
		{fmt.Errorf("connect: %w", wallet.ErrUserRejected), http.StatusForbidden},
		{wallet.ErrProviderAbsent, http.StatusPreconditionFailed},
		{game.ErrPlayerClosed, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
