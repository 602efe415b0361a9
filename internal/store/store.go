package store

import (
	"context"
	"errors"

	"privatetasks/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations the sync client needs.
type Store interface {
	// Profile operations
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)

	// Record operations, always scoped to one profile
	ListRecords(ctx context.Context, profileID string) (map[string]bool, error)
	PutRecord(ctx context.Context, profileID, key string, value bool) error
	DeleteRecord(ctx context.Context, profileID, key string) error

	// Remembered session, kept when a device pairs with "stay connected"
	RememberSession(ctx context.Context, profileID string) error
	RememberedSession(ctx context.Context) (*models.Profile, error)
	ForgetSession(ctx context.Context) error

	// Lifecycle
	Close() error
}
