// Package store persists game save snapshots keyed by (playerId, saveSlot).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrStoreUnavailable means no persistence connection is configured or reachable.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound means no active save matches, or it has no game state.
	ErrNotFound = errors.New("save not found")
	// ErrInvalidKey means the save id is not well formed for the store.
	ErrInvalidKey = errors.New("invalid save id")
	// ErrInvalidRecord means the record is missing required fields.
	ErrInvalidRecord = errors.New("invalid save record")
)

// unavailable wraps a connection-level failure so callers can match ErrStoreUnavailable.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverNone     = "none"
)

// Repository is the persistence contract for save records. Upsert must be
// atomic per (playerId, saveSlot): concurrent writers to one key leave
// exactly one record, holding the last write.
type Repository interface {
	Upsert(ctx context.Context, rec *models.SaveRecord) (models.UpsertResult, error)
	// ListByPlayer returns active saves newest first, without game state.
	ListByPlayer(ctx context.Context, playerID string, limit int64) ([]models.SaveSummary, error)
	LoadByID(ctx context.Context, id string) (models.GameState, error)
	// Delete marks a save inactive. Saving the same key again reactivates it.
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// Config selects a repository implementation.
type Config struct {
	Driver   string
	URI      string
	Database string // mongo only
}

// Open connects the configured repository. It returns a nil Repository and
// no error when persistence is disabled or no URI is set.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Repository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverNone, "":
		return nil, nil
	}
	if cfg.URI == "" {
		log.Warn("no store URI configured; saves are disabled", zap.String("driver", driver))
		return nil, nil
	}

	switch driver {
	case DriverMongo:
		repo, err := NewMongo(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverPostgres:
		repo, err := NewPostgres(ctx, cfg.URI)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
