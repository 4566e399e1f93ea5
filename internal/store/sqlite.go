package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	prefMu sync.Mutex // serializes preference writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := store.seedLeaderboard(); err != nil {
		return nil, fmt.Errorf("seed leaderboard: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, key)
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		rank INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		score INTEGER NOT NULL,
		xp INTEGER NOT NULL,
		level INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		time TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// defaultLeaderboard is the fixed board shown until real results are recorded.
var defaultLeaderboard = []domain.LeaderboardEntry{
	{Rank: 1, Name: "CryptoWizard", Score: 1850, XP: 420, Level: 8, Difficulty: domain.DifficultyHard, Time: "4:32"},
	{Rank: 2, Name: "MonadMaster", Score: 1720, XP: 380, Level: 7, Difficulty: domain.DifficultyHard, Time: "5:15"},
	{Rank: 3, Name: "WarpCaster99", Score: 1650, XP: 350, Level: 6, Difficulty: domain.DifficultyMedium, Time: "3:45"},
	{Rank: 4, Name: "BlockchainBob", Score: 1540, XP: 320, Level: 5, Difficulty: domain.DifficultyHard, Time: "6:20"},
	{Rank: 5, Name: "TokenTracker", Score: 1480, XP: 300, Level: 5, Difficulty: domain.DifficultyMedium, Time: "4:10"},
	{Rank: 6, Name: "CryptoKitty", Score: 1350, XP: 280, Level: 4, Difficulty: domain.DifficultyMedium, Time: "5:05"},
	{Rank: 7, Name: "HashHunter", Score: 1290, XP: 260, Level: 4, Difficulty: domain.DifficultyEasy, Time: "2:55"},
	{Rank: 8, Name: "NFTNinja", Score: 1180, XP: 240, Level: 3, Difficulty: domain.DifficultyMedium, Time: "5:30"},
	{Rank: 9, Name: "EtherExplorer", Score: 1120, XP: 220, Level: 3, Difficulty: domain.DifficultyEasy, Time: "3:15"},
	{Rank: 10, Name: "GasGuru", Score: 980, XP: 200, Level: 2, Difficulty: domain.DifficultyEasy, Time: "4:25"},
}

func (s *SQLiteStore) seedLeaderboard() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("Failed to roll back leaderboard seed", "error", rbErr)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO leaderboard (rank, name, score, xp, level, difficulty, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range defaultLeaderboard {
		if _, err := stmt.Exec(e.Rank, e.Name, e.Score, e.XP, e.Level, string(e.Difficulty), e.Time); err != nil {
			return fmt.Errorf("insert rank %d: %w", e.Rank, err)
		}
	}
	return tx.Commit()
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// GetPreference returns a stored preference value.
func (s *SQLiteStore) GetPreference(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores a preference value, retrying on SQLITE_BUSY.
func (s *SQLiteStore) SetPreference(ctx context.Context, userID, key, value string) error {
	s.prefMu.Lock()
	defer s.prefMu.Unlock()

	query := `
	INSERT INTO preferences (user_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, "set preference "+key, shared.DefaultRetryPolicy, func() error {
		_, err := s.db.ExecContext(ctx, query, userID, key, value, time.Now().Unix())
		return err
	})
}

// ListLeaderboard returns every leaderboard row ordered by rank.
func (s *SQLiteStore) ListLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rank, name, score, xp, level, difficulty, time
		FROM leaderboard ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leaderboard rows", "error", closeErr)
		}
	}()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		var difficulty string
		if err := rows.Scan(&e.Rank, &e.Name, &e.Score, &e.XP, &e.Level, &difficulty, &e.Time); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.Difficulty = domain.Difficulty(difficulty)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

// DeleteStaleUsers removes users not seen within ttl along with their preferences.
func (s *SQLiteStore) DeleteStaleUsers(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stale user cleanup: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("Failed to roll back stale user cleanup", "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM preferences WHERE user_id IN (
			SELECT user_id FROM users WHERE last_seen_at < ?
		)`, threshold); err != nil {
		return 0, fmt.Errorf("delete stale preferences: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete stale users: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale users rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stale user cleanup: %w", err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
