package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/identity"
	"github.com/Gyeri/warphunt/internal/store"
)

const (
	writeTimeout      = 10 * time.Second
	lastSeenTimeout   = 5 * time.Second
	maxCommandPayload = 1 << 14
)

// Handler serves the player event stream and accepts game commands over it.
type Handler struct {
	repo          store.Repository
	players       *game.Registry
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket handler.
func NewHandler(repo store.Repository, players *game.Registry, hub *Hub, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		repo:          repo,
		players:       players,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// command is a client request sent over the socket.
type command struct {
	Type       string `json:"type"`
	Answer     string `json:"answer,omitempty"`
	Confirm    bool   `json:"confirm,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// reply answers a command.
type reply struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(maxCommandPayload)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := h.players.Get(ctx, userID)

	sub := h.hub.Subscribe(userID, sessionID)
	defer h.hub.Unsubscribe(sub)

	initial := game.Event{Type: game.EventState, Data: p.State(), At: time.Now()}
	if err := h.writeJSON(ctx, ws, initial); err != nil {
		slog.Debug("Failed to send initial state", "error", err, "user_id", userID)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: commands from the client.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, p)
	}()

	// Output loop: player events to the client.
	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, sub, userID)
	}()

	wg.Wait()
	slog.Info("Event stream ended", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, p *game.Player) {
	userID := p.UserID()
	slog.Debug("Starting input loop", "user_id", userID)
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			if err := h.writeJSON(ctx, ws, reply{Type: "error", Error: "malformed command"}); err != nil {
				return
			}
			continue
		}

		if cmd.Type == "ping" {
			if err := h.writeJSON(ctx, ws, reply{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
			continue
		}

		p.Touch()
		data, err := h.dispatch(ctx, p, cmd)
		out := reply{Type: "ack", Command: cmd.Type, Data: data}
		if err != nil {
			out = reply{Type: "error", Command: cmd.Type, Error: err.Error()}
		}
		if err := h.writeJSON(ctx, ws, out); err != nil {
			slog.Debug("Failed to send command reply", "error", err, "command", cmd.Type)
			return
		}

		h.touchUser(userID)
	}
}

var errUnknownCommand = errors.New("unknown command")

// dispatch runs one command against the player.
func (h *Handler) dispatch(ctx context.Context, p *game.Player, cmd command) (any, error) {
	switch cmd.Type {
	case "state":
		return p.State(), nil
	case "connect":
		return p.ConnectWallet(ctx)
	case "disconnect":
		return p.DisconnectWallet()
	case "difficulty":
		d, err := domain.ParseDifficulty(cmd.Difficulty)
		if err != nil {
			return nil, err
		}
		return d, p.SelectDifficulty(d)
	case "start":
		return p.StartHunt()
	case "answer":
		return p.SubmitAnswer(cmd.Answer)
	case "hint":
		return p.UseHint()
	case "quit":
		return nil, p.Quit(cmd.Confirm)
	case "open_tx":
		return p.OpenTransaction()
	case "sign":
		return p.SignTransaction(ctx)
	case "retry_tx":
		return p.RetryTransaction()
	case "close_tx":
		return nil, p.CloseTransaction()
	case "claim":
		return p.ClaimReward()
	case "home":
		return nil, p.ReturnHome()
	}
	return nil, errUnknownCommand
}

func (h *Handler) outputLoop(ctx context.Context, ws *websocket.Conn, sub *Subscription, userID string) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				slog.Debug("Event subscription ended", "user_id", userID)
				return
			}
			if err := h.writeJSON(ctx, ws, ev); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// touchUser updates last seen asynchronously with a timeout.
func (h *Handler) touchUser(userID string) {
	if h.repo == nil {
		return
	}
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), lastSeenTimeout)
		defer cancel()
		if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "error", err)
		}
	}()
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
