package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/identity"
)

// accountSwitcher is implemented by wallets that can simulate an account change.
type accountSwitcher interface {
	SetAccounts(accounts []string)
}

// GameHandler serves the player state machine.
type GameHandler struct {
	*Handler
}

// NewGameHandler creates a game handler.
func NewGameHandler(base *Handler) *GameHandler {
	return &GameHandler{Handler: base}
}

// StateResponse is the full client view.
type StateResponse struct {
	game.State
	Theme domain.Theme `json:"theme"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type quitRequest struct {
	Confirm bool `json:"confirm"`
}

type accountsRequest struct {
	Accounts []string `json:"accounts"`
}

// RegisterRoutes registers game routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/state", h.withPlayer(h.GetState))
	r.Put("/api/difficulty", h.withPlayer(h.SetDifficulty))

	r.Route("/api/wallet", func(r chi.Router) {
		r.Post("/connect", h.withPlayer(h.ConnectWallet))
		r.Post("/disconnect", h.withPlayer(h.DisconnectWallet))
		r.Post("/accounts", h.withPlayer(h.ChangeAccounts))
	})

	r.Route("/api/hunt", func(r chi.Router) {
		r.Post("/start", h.withPlayer(h.StartHunt))
		r.Post("/answer", h.withPlayer(h.SubmitAnswer))
		r.Post("/hint", h.withPlayer(h.UseHint))
		r.Post("/quit", h.withPlayer(h.Quit))
	})

	r.Route("/api/tx", func(r chi.Router) {
		r.Post("/open", h.withPlayer(h.OpenTransaction))
		r.Post("/sign", h.withPlayer(h.SignTransaction))
		r.Post("/retry", h.withPlayer(h.RetryTransaction))
		r.Post("/close", h.withPlayer(h.CloseTransaction))
	})

	r.Route("/api/reward", func(r chi.Router) {
		r.Post("/claim", h.withPlayer(h.ClaimReward))
		r.Post("/home", h.withPlayer(h.ReturnHome))
	})
}

type playerHandlerFunc func(w http.ResponseWriter, r *http.Request, p *game.Player)

func (h *GameHandler) withPlayer(fn playerHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.player(r)
		if !ok {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		fn(w, r, p)
	}
}

func (h *GameHandler) stateResponse(ctx context.Context, p *game.Player) StateResponse {
	return StateResponse{State: p.State(), Theme: h.theme(ctx, p.UserID())}
}

// theme returns the stored theme, falling back to the default on any error.
func (h *Handler) theme(ctx context.Context, userID string) domain.Theme {
	value, ok, err := h.repo.GetPreference(ctx, userID, domain.ThemePreferenceKey)
	if err != nil {
		slog.Warn("Failed to read theme preference", "user_id", userID, "error", err)
		return domain.DefaultTheme
	}
	if !ok {
		return domain.DefaultTheme
	}
	theme, err := domain.ParseTheme(value)
	if err != nil {
		return domain.DefaultTheme
	}
	return theme
}

// GetState returns the caller's full state.
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request, p *game.Player) {
	JSON(w, http.StatusOK, h.stateResponse(r.Context(), p))
}

// SetDifficulty selects the difficulty for the next hunt.
func (h *GameHandler) SetDifficulty(w http.ResponseWriter, r *http.Request, p *game.Player) {
	var req difficultyRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.SelectDifficulty(d); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"difficulty":  d,
		"time_budget": d.TimeBudget(),
	})
}

// ConnectWallet requests wallet authorization.
func (h *GameHandler) ConnectWallet(w http.ResponseWriter, r *http.Request, p *game.Player) {
	ws, err := p.ConnectWallet(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, ws)
}

// DisconnectWallet forgets the wallet connection.
func (h *GameHandler) DisconnectWallet(w http.ResponseWriter, r *http.Request, p *game.Player) {
	ws, err := p.DisconnectWallet()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, ws)
}

// ChangeAccounts simulates the user switching or locking accounts in the wallet.
func (h *GameHandler) ChangeAccounts(w http.ResponseWriter, r *http.Request, p *game.Player) {
	switcher, ok := p.Wallet().(accountSwitcher)
	if !ok {
		Error(w, http.StatusNotImplemented, "wallet does not support account changes")
		return
	}
	var req accountsRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	accounts := make([]string, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	switcher.SetAccounts(accounts)
	slog.Info("Wallet accounts changed", "user_id", p.UserID(), "count", len(accounts))
	JSON(w, http.StatusOK, p.State().Wallet)
}

// StartHunt begins a hunt at the selected difficulty.
func (h *GameHandler) StartHunt(w http.ResponseWriter, r *http.Request, p *game.Player) {
	snap, err := p.StartHunt()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, snap)
}

// SubmitAnswer checks an answer for the current step.
func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request, p *game.Player) {
	var req answerRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := p.SubmitAnswer(req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// UseHint reveals the current hint.
func (h *GameHandler) UseHint(w http.ResponseWriter, r *http.Request, p *game.Player) {
	hint, err := p.UseHint()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"hint": hint})
}

// Quit abandons the hunt when confirmed.
func (h *GameHandler) Quit(w http.ResponseWriter, r *http.Request, p *game.Player) {
	var req quitRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Quit(req.Confirm); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "quit"})
}

// OpenTransaction opens the progress transaction for a solved step.
func (h *GameHandler) OpenTransaction(w http.ResponseWriter, r *http.Request, p *game.Player) {
	snap, err := p.OpenTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// SignTransaction signs the open transaction.
func (h *GameHandler) SignTransaction(w http.ResponseWriter, r *http.Request, p *game.Player) {
	snap, err := p.SignTransaction(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, snap)
}

// RetryTransaction resets a failed transaction.
func (h *GameHandler) RetryTransaction(w http.ResponseWriter, r *http.Request, p *game.Player) {
	snap, err := p.RetryTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// CloseTransaction abandons the open transaction.
func (h *GameHandler) CloseTransaction(w http.ResponseWriter, r *http.Request, p *game.Player) {
	if err := p.CloseTransaction(); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// ClaimReward opens the claim transaction.
func (h *GameHandler) ClaimReward(w http.ResponseWriter, r *http.Request, p *game.Player) {
	snap, err := p.ClaimReward()
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// ReturnHome leaves the reward view.
func (h *GameHandler) ReturnHome(w http.ResponseWriter, r *http.Request, p *game.Player) {
	if err := p.ReturnHome(); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, h.stateResponse(r.Context(), p))
}

// userIDFrom is shared by handlers that only need the identity.
func userIDFrom(r *http.Request) string {
	return identity.UserIDFromContext(r.Context())
}
