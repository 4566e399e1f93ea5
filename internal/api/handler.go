// Package api provides HTTP handlers for the WarpHunt API.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/identity"
	"github.com/Gyeri/warphunt/internal/store"
)

const maxBodyBytes = 1 << 16

// Handler provides common handler utilities.
type Handler struct {
	repo    store.Repository
	players *game.Registry
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, players *game.Registry) *Handler {
	return &Handler{repo: repo, players: players}
}

// player resolves the calling user's player, creating it on first use.
func (h *Handler) player(r *http.Request) (*game.Player, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		return nil, false
	}
	return h.players.Get(r.Context(), userID), true
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
