// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/Gyeri/warphunt/internal/domain"
)

// Repository persists device identities, their preferences and the leaderboard.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil if absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetPreference returns a stored preference value and whether it exists.
	GetPreference(ctx context.Context, userID, key string) (string, bool, error)

	// SetPreference stores a preference value.
	SetPreference(ctx context.Context, userID, key, value string) error

	// ListLeaderboard returns the leaderboard ordered by rank.
	ListLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)

	// DeleteStaleUsers removes users, and their preferences, not seen for longer than ttl.
	DeleteStaleUsers(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
