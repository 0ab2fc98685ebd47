package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-master/internal/models"
)

type memoryKey struct {
	playerID string
	slot     int
}

type memorySave struct {
	rec    models.SaveRecord
	active bool
}

// Memory is an in-process Repository. Ids are UUIDs.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*memorySave
	byKey   map[memoryKey]string
	players map[string]time.Time
}

// NewMemory returns an empty in-process repository.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*memorySave),
		byKey:   make(map[memoryKey]string),
		players: make(map[string]time.Time),
	}
}

func (m *Memory) Upsert(ctx context.Context, rec *models.SaveRecord) (models.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return models.UpsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := cloneState(rec.GameState)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	key := memoryKey{rec.PlayerID, rec.SaveSlot}
	stored := *rec
	stored.GameState = state
	m.players[rec.PlayerID] = rec.Timestamp

	if id, ok := m.byKey[key]; ok {
		stored.ID = id
		m.byID[id] = &memorySave{rec: stored, active: true}
		return models.UpsertResult{SaveID: id, Created: false}, nil
	}

	id := uuid.NewString()
	stored.ID = id
	m.byKey[key] = id
	m.byID[id] = &memorySave{rec: stored, active: true}
	return models.UpsertResult{SaveID: id, Created: true}, nil
}

func (m *Memory) ListByPlayer(ctx context.Context, playerID string, limit int64) ([]models.SaveSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.SaveSummary
	for _, s := range m.byID {
		if !s.active || s.rec.PlayerID != playerID {
			continue
		}
		out = append(out, models.SaveSummary{
			SaveID:    s.rec.ID,
			SaveName:  s.rec.SaveName,
			SaveSlot:  s.rec.SaveSlot,
			Timestamp: s.rec.Timestamp,
		})
	}
	slices.SortFunc(out, func(a, b models.SaveSummary) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return a.SaveSlot - b.SaveSlot
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) LoadByID(ctx context.Context, id string) (models.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok || !s.active || s.rec.GameState == nil {
		return nil, ErrNotFound
	}
	return cloneState(s.rec.GameState)
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok || !s.active {
		return ErrNotFound
	}
	s.active = false
	return nil
}

// LastPlayed returns when the player last saved.
func (m *Memory) LastPlayed(playerID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.players[playerID]
	return t, ok
}

func (m *Memory) Close(context.Context) error { return nil }

// cloneState deep-copies a state through JSON, so nested maps and slices are
// never shared with callers and values come back as the document stores
// return them.
func cloneState(state models.GameState) (models.GameState, error) {
	if state == nil {
		return nil, nil
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	var out models.GameState
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return out, nil
}
