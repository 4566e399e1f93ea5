// WarpHunt - terminal client
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gyeri/warphunt/internal/config"
	"github.com/Gyeri/warphunt/internal/store"
	"github.com/Gyeri/warphunt/internal/tui"
)

func main() {
	os.Exit(run())
}

// run returns the exit code once every deferred close has run.
func run() int {
	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if path := os.Getenv("WARPHUNT_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		return 1
	}

	// The store only keeps the theme and the leaderboard here, so the client
	// still runs without it.
	var repo store.Repository
	if r, err := store.NewSQLite(cfg.DBPath); err != nil {
		slog.Warn("Preference store unavailable", "path", cfg.DBPath, "error", err)
	} else {
		repo = r
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := tui.NewApp(tui.AppConfig{
		Game:   cfg.GameConfig(),
		Wallet: cfg.Wallet.NewProvider(),
		Repo:   repo,
	})
	if err := app.Run(ctx); err != nil {
		slog.Error("Terminal client failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
