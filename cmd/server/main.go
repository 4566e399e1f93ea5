// WarpHunt - treasure hunt game server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/Gyeri/warphunt/internal/api"
	"github.com/Gyeri/warphunt/internal/config"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/identity"
	"github.com/Gyeri/warphunt/internal/middleware"
	"github.com/Gyeri/warphunt/internal/rpc"
	"github.com/Gyeri/warphunt/internal/store"
	"github.com/Gyeri/warphunt/internal/stream"
	"github.com/Gyeri/warphunt/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "wallet", cfg.Wallet.Provider)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	deleted, err := repo.DeleteStaleUsers(context.Background(), cfg.UserRetention)
	if err != nil {
		slog.Error("Failed to clean up stale users", "error", err)
		os.Exit(1)
	}
	slog.Info("Stale user cleanup complete", "users_deleted", deleted)

	// Initialize services.
	hub := stream.NewHub(stream.DefaultBuffer)
	players := game.NewRegistry(cfg.GameConfig(), walletFactory(cfg.Wallet), hub)
	defer players.CloseAll()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, players)
	healthHandler := api.NewHealthHandler(repo, players)
	gameHandler := api.NewGameHandler(baseHandler)
	prefHandler := api.NewPreferenceHandler(baseHandler)
	wsHandler := stream.NewHandler(repo, players, hub, cfg.FrontendURL, cfg.IsDevelopment())

	allowedOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		gameHandler.RegisterRoutes(r)
		prefHandler.RegisterRoutes(r)

		// WebSocket endpoint.
		r.Get("/ws/hunt", wsHandler.ServeHTTP)
	})

	// WriteTimeout stays 0 so WebSocket streams are not cut off.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start player reaper.
	players.StartReaper(ctx, cfg.ReapInterval, cfg.PlayerIdleTTL, hub.CloseUser)

	// Start gRPC health server.
	var grpcServer *rpc.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		grpcServer = rpc.NewServer(repo)
		grpcServer.StartProbe(ctx, 15*time.Second)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				slog.Error("gRPC server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	if grpcServer != nil {
		grpcServer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// walletFactory gives each player its own wallet, or none at all.
func walletFactory(wc config.WalletConfig) game.ProviderFactory {
	return func(string) wallet.Provider { return wc.NewProvider() }
}
