package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gyeri/warphunt/internal/domain"
)

// PreferenceHandler serves the theme preference and the leaderboard.
type PreferenceHandler struct {
	*Handler
}

// NewPreferenceHandler creates a preference handler.
func NewPreferenceHandler(base *Handler) *PreferenceHandler {
	return &PreferenceHandler{Handler: base}
}

type themeBody struct {
	Theme domain.Theme `json:"theme"`
}

// RegisterRoutes registers preference and leaderboard routes.
func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/preferences/theme", func(r chi.Router) {
		r.Get("/", h.GetTheme)
		r.Put("/", h.SetTheme)
		r.Post("/toggle", h.ToggleTheme)
	})
	r.Get("/api/leaderboard", h.Leaderboard)
}

// GetTheme returns the stored theme, dark if nothing is stored.
func (h *PreferenceHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, themeBody{Theme: h.theme(r.Context(), userID)})
}

// SetTheme stores an explicit theme.
func (h *PreferenceHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	theme, err := domain.ParseTheme(req.Theme)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveTheme(w, r, userID, theme)
}

// ToggleTheme flips the stored theme.
func (h *PreferenceHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.saveTheme(w, r, userID, h.theme(r.Context(), userID).Toggled())
}

func (h *PreferenceHandler) saveTheme(w http.ResponseWriter, r *http.Request, userID string, theme domain.Theme) {
	if err := h.repo.SetPreference(r.Context(), userID, domain.ThemePreferenceKey, string(theme)); err != nil {
		slog.Error("Failed to store theme preference", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to store preference")
		return
	}
	slog.Info("Theme preference updated", "user_id", userID, "theme", theme)
	JSON(w, http.StatusOK, themeBody{Theme: theme})
}

// Leaderboard returns the leaderboard rows.
func (h *PreferenceHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.ListLeaderboard(r.Context())
	if err != nil {
		slog.Error("Failed to load leaderboard", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
