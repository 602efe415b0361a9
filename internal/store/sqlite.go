package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"privatetasks/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertProfile creates the profile or refreshes its username.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username
	`, profile.ID, profile.Username, profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at FROM profiles WHERE id = ?
	`, id).Scan(&profile.ID, &profile.Username, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// ListRecords returns every record of a profile keyed by storage key.
func (s *SQLiteStore) ListRecords(ctx context.Context, profileID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM records WHERE profile_id = ? ORDER BY key ASC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]bool)
	for rows.Next() {
		var (
			key   string
			value bool
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records[key] = value
	}

	return records, rows.Err()
}

// PutRecord creates or overwrites a record.
func (s *SQLiteStore) PutRecord(ctx context.Context, profileID, key string, value bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (profile_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(profile_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, profileID, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. Deleting a missing record is not an error.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, profileID, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE profile_id = ? AND key = ?`, profileID, key)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// RememberSession stores profileID as the session to resume on next start.
func (s *SQLiteStore) RememberSession(ctx context.Context, profileID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO remembered_session (id, profile_id, created_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET profile_id = excluded.profile_id, created_at = excluded.created_at
	`, profileID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to remember session: %w", err)
	}
	return nil
}

// RememberedSession returns the profile of the remembered session.
// It returns ErrNotFound if no session is remembered.
func (s *SQLiteStore) RememberedSession(ctx context.Context) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.username, p.created_at
		FROM remembered_session r JOIN profiles p ON p.id = r.profile_id
		WHERE r.id = 1
	`).Scan(&profile.ID, &profile.Username, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("remembered session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load remembered session: %w", err)
	}
	return profile, nil
}

// ForgetSession removes the remembered session, if any.
func (s *SQLiteStore) ForgetSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM remembered_session`); err != nil {
		return fmt.Errorf("failed to forget session: %w", err)
	}
	return nil
}
