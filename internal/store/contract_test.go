package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/dungeon-master/internal/models"
)

// testRepository runs the Repository contract against a fresh repository.
// badID must be malformed for the store; missingID well formed but unknown.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository, badID, missingID string) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	record := func(player string, slot int, name string, at time.Time) *models.SaveRecord {
		return &models.SaveRecord{
			PlayerID:  player,
			SaveSlot:  slot,
			SaveName:  name,
			GameState: models.GameState{"player": map[string]any{"name": "Aria", "level": float64(3)}, "genre": "fantasy"},
			Timestamp: at,
		}
	}

	t.Run("upsert overwrites same key", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Upsert(ctx, record("p1", 1, "first", base))
		require.NoError(t, err)
		assert.True(t, first.Created)
		assert.NotEmpty(t, first.SaveID)

		second, err := repo.Upsert(ctx, record("p1", 1, "second", base.Add(time.Minute)))
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.SaveID, second.SaveID)

		saves, err := repo.ListByPlayer(ctx, "p1", 10)
		require.NoError(t, err)
		require.Len(t, saves, 1)
		assert.Equal(t, "second", saves[0].SaveName)
		assert.Equal(t, 1, saves[0].SaveSlot)
		assert.True(t, saves[0].Timestamp.Equal(base.Add(time.Minute)))
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		repo := newRepo(t)
		for slot := 0; slot < 4; slot++ {
			_, err := repo.Upsert(ctx, record("p2", slot, fmt.Sprintf("slot %d", slot), base.Add(time.Duration(slot)*time.Hour)))
			require.NoError(t, err)
		}
		_, err := repo.Upsert(ctx, record("other", 0, "not mine", base.Add(10*time.Hour)))
		require.NoError(t, err)

		saves, err := repo.ListByPlayer(ctx, "p2", 3)
		require.NoError(t, err)
		require.Len(t, saves, 3)
		assert.Equal(t, []int{3, 2, 1}, []int{saves[0].SaveSlot, saves[1].SaveSlot, saves[2].SaveSlot})

		none, err := repo.ListByPlayer(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("load returns game state", func(t *testing.T) {
		repo := newRepo(t)
		res, err := repo.Upsert(ctx, record("p3", 2, "save", base))
		require.NoError(t, err)

		state, err := repo.LoadByID(ctx, res.SaveID)
		require.NoError(t, err)
		assert.Equal(t, "fantasy", state["genre"])
		player, ok := state["player"].(map[string]any)
		require.True(t, ok, "player is %T", state["player"])
		assert.Equal(t, "Aria", player["name"])
	})

	t.Run("load errors", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.LoadByID(ctx, badID)
		assert.ErrorIs(t, err, ErrInvalidKey)

		_, err = repo.LoadByID(ctx, missingID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete hides until saved again", func(t *testing.T) {
		repo := newRepo(t)
		res, err := repo.Upsert(ctx, record("p4", 1, "doomed", base))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, res.SaveID))
		assert.ErrorIs(t, repo.Delete(ctx, res.SaveID), ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, badID), ErrInvalidKey)

		_, err = repo.LoadByID(ctx, res.SaveID)
		assert.ErrorIs(t, err, ErrNotFound)
		saves, err := repo.ListByPlayer(ctx, "p4", 10)
		require.NoError(t, err)
		assert.Empty(t, saves)

		again, err := repo.Upsert(ctx, record("p4", 1, "revived", base.Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, res.SaveID, again.SaveID)
		_, err = repo.LoadByID(ctx, again.SaveID)
		assert.NoError(t, err)
	})

	t.Run("concurrent upserts keep one record", func(t *testing.T) {
		repo := newRepo(t)
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Upsert(ctx, record("p5", 7, fmt.Sprintf("writer %d", i), base.Add(time.Duration(i)*time.Second)))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		saves, err := repo.ListByPlayer(ctx, "p5", 10)
		require.NoError(t, err)
		assert.Len(t, saves, 1)
	})
}
