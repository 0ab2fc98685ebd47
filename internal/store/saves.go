package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tatianab/dungeon-master/internal/models"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 10
	maxPlayerIDLen   = 100
)

// Saves applies the save/load rules on top of a Repository. A nil
// Repository makes every operation fail with ErrStoreUnavailable.
type Saves struct {
	repo      Repository
	log       *zap.Logger
	listLimit int64
	timeout   time.Duration
	now       func() time.Time
}

// SavesOption configures Saves.
type SavesOption func(*Saves)

// WithListLimit caps the number of summaries ListSaves returns.
func WithListLimit(n int64) SavesOption {
	return func(s *Saves) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithStoreTimeout bounds each repository call.
func WithStoreTimeout(d time.Duration) SavesOption {
	return func(s *Saves) { s.timeout = d }
}

// WithClock overrides the write timestamp source.
func WithClock(now func() time.Time) SavesOption {
	return func(s *Saves) { s.now = now }
}

// NewSaves returns a Saves backed by repo, which may be nil.
func NewSaves(repo Repository, log *zap.Logger, opts ...SavesOption) *Saves {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Saves{
		repo:      repo,
		log:       log,
		listLimit: defaultListLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a repository is configured.
func (s *Saves) Available() bool { return s.repo != nil }

func (s *Saves) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// SaveGame upserts rec at its (playerId, saveSlot) key, stamping the write time.
func (s *Saves) SaveGame(ctx context.Context, rec models.SaveRecord) (models.UpsertResult, error) {
	if s.repo == nil {
		return models.UpsertResult{}, ErrStoreUnavailable
	}
	rec.PlayerID = strings.TrimSpace(rec.PlayerID)
	if err := validatePlayerID(rec.PlayerID); err != nil {
		return models.UpsertResult{}, err
	}
	if rec.SaveSlot < 0 {
		return models.UpsertResult{}, fmt.Errorf("%w: negative save slot", ErrInvalidRecord)
	}
	if rec.GameState == nil {
		return models.UpsertResult{}, fmt.Errorf("%w: missing game state", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.SaveName) == "" {
		rec.SaveName = fmt.Sprintf("Slot %d", rec.SaveSlot)
	}
	rec.ID = ""
	rec.Timestamp = s.now().UTC()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.repo.Upsert(ctx, &rec)
	if err != nil {
		return models.UpsertResult{}, err
	}
	s.log.Info("game saved",
		zap.String("playerId", rec.PlayerID),
		zap.Int("saveSlot", rec.SaveSlot),
		zap.String("saveId", res.SaveID),
		zap.Bool("created", res.Created),
	)
	return res, nil
}

// ListSaves returns the player's saves, newest first.
func (s *Saves) ListSaves(ctx context.Context, playerID string) ([]models.SaveSummary, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	playerID = strings.TrimSpace(playerID)
	if err := validatePlayerID(playerID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	saves, err := s.repo.ListByPlayer(ctx, playerID, s.listLimit)
	if err != nil {
		return nil, err
	}
	if saves == nil {
		saves = []models.SaveSummary{}
	}
	return saves, nil
}

// LoadSave returns the game state stored under saveID.
func (s *Saves) LoadSave(ctx context.Context, saveID string) (models.GameState, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	saveID = strings.TrimSpace(saveID)
	if saveID == "" {
		return nil, ErrInvalidKey
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.LoadByID(ctx, saveID)
}

// DeleteSave hides the save from listing and loading.
func (s *Saves) DeleteSave(ctx context.Context, saveID string) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	saveID = strings.TrimSpace(saveID)
	if saveID == "" {
		return ErrInvalidKey
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Delete(ctx, saveID); err != nil {
		return err
	}
	s.log.Info("save deleted", zap.String("saveId", saveID))
	return nil
}

func validatePlayerID(id string) error {
	if id == "" || len(id) > maxPlayerIDLen {
		return fmt.Errorf("%w: playerId must be 1-%d characters", ErrInvalidRecord, maxPlayerIDLen)
	}
	return nil
}
