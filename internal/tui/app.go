// Package tui is a terminal client that drives one in-process player.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/store"
	"github.com/Gyeri/warphunt/internal/stream"
	"github.com/Gyeri/warphunt/internal/wallet"
)

// LocalUserID identifies the terminal player in the preference store.
const LocalUserID = "local"

const subscriberID = "tui"

// AppConfig wires the terminal client.
type AppConfig struct {
	Game   game.Config
	Wallet wallet.Provider
	// Repo is optional. Without it the theme is not persisted and the
	// leaderboard is empty.
	Repo store.Repository
}

// App runs the terminal client.
type App struct {
	cfg AppConfig
}

// NewApp creates the terminal client.
func NewApp(cfg AppConfig) *App {
	return &App{cfg: cfg}
}

// Run blocks until the user quits.
func (a *App) Run(ctx context.Context) error {
	hub := stream.NewHub(stream.DefaultBuffer)
	sub := hub.Subscribe(LocalUserID, subscriberID)
	defer hub.Unsubscribe(sub)

	player := game.NewPlayer(ctx, LocalUserID, a.cfg.Wallet, hub, a.cfg.Game)
	defer player.Close()

	m := newModel(player, sub.Events(), a.cfg.Repo)
	m.theme = a.loadTheme(ctx)
	m.leaderboard = a.loadLeaderboard(ctx)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run terminal client: %w", err)
	}
	return nil
}

func (a *App) loadTheme(ctx context.Context) domain.Theme {
	if a.cfg.Repo == nil {
		return domain.DefaultTheme
	}
	value, ok, err := a.cfg.Repo.GetPreference(ctx, LocalUserID, domain.ThemePreferenceKey)
	if err != nil {
		slog.Warn("Failed to read theme preference", "error", err)
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

func (a *App) loadLeaderboard(ctx context.Context) []domain.LeaderboardEntry {
	if a.cfg.Repo == nil {
		return nil
	}
	entries, err := a.cfg.Repo.ListLeaderboard(ctx)
	if err != nil {
		slog.Warn("Failed to load leaderboard", "error", err)
		return nil
	}
	return entries
}
