package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/dungeon-master/internal/models"
)

// scriptedGenerator replays responses in order; the last one repeats.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := min(g.calls, max(len(g.responses), len(g.errs))-1)
	g.calls++
	g.prompts = append(g.prompts, prompt)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	return g.responses[i], nil
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerateStoryFromModel(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{validStory}}
	e := NewEngine(gen, NewFallback(1))

	out := e.GenerateStory(context.Background(), testPlayer(), "horror", nil, "Cross the bridge")
	require.NoError(t, out.Validate())
	assert.Equal(t, "A goblin blocks the bridge.", out.Story)
	require.NotNil(t, out.Enemy)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Cross the bridge")
	assert.Contains(t, gen.prompts[0], GenreFraming("horror"))
}

func TestGenerateStoryFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"no model", nil},
		{"call error", &scriptedGenerator{errs: []error{errors.New("boom")}}},
		{"empty text", &scriptedGenerator{responses: []string{"  "}}},
		{"malformed", &scriptedGenerator{responses: []string{"I am not JSON"}}},
		{"two choices", &scriptedGenerator{responses: []string{`{"story": "x", "choices": ["a", "b"]}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.gen, NewFallback(1))
			out := e.GenerateStory(context.Background(), testPlayer(), "fantasy", nil, "Open the door")

			require.NotNil(t, out)
			require.NoError(t, out.Validate())
			assert.Contains(t, out.Story, "Open the door")
			require.Len(t, out.Events, 1)
			assert.Equal(t, models.EventSystem, out.Events[0].Type)
		})
	}
}

func TestResolveCombatTurn(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"playerDamage": 4, "enemyDamage": 9, "playerHealth": 96, "enemyHealth": 21, "combatLog": ["You slash.", "It bites."]}`}}
	e := NewEngine(gen, NewFallback(1))

	out := e.ResolveCombatTurn(context.Background(), testPlayer(), goblin(), models.ActionAttack, "")
	assert.Equal(t, 96, out.PlayerHealth)
	assert.Equal(t, 21, out.EnemyHealth)
	assert.Equal(t, []string{"You slash.", "It bites."}, out.CombatLog)
}

func TestResolveCombatTurnFallsBack(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"playerHealth": 0, "enemyHealth": 0, "combatLog": ["x"], "victory": true, "defeat": true, "rewards": {"xp": 5}}`}}
	e := NewEngine(gen, NewFallback(1))

	for _, action := range []string{models.ActionAttack, models.ActionDefend, models.ActionRun, models.ActionUseItem} {
		out := e.ResolveCombatTurn(context.Background(), testPlayer(), goblin(), action, "potion_1")
		require.NoError(t, out.Validate(), action)
		assert.False(t, out.Victory && out.Defeat)
	}
}

func TestRetriesUntilParsable(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"garbage", validStory}}
	e := NewEngine(gen, NewFallback(1), WithMaxAttempts(2))

	out := e.GenerateStory(context.Background(), testPlayer(), "fantasy", nil, "Go")
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, "A goblin blocks the bridge.", out.Story)
}

func TestModelTimeoutFallsBack(t *testing.T) {
	e := NewEngine(blockingGenerator{}, NewFallback(1), WithTimeout(20*time.Millisecond))

	start := time.Now()
	out := e.ResolveCombatTurn(context.Background(), testPlayer(), goblin(), models.ActionAttack, "")
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NoError(t, out.Validate())
}

func TestModelStoryErrors(t *testing.T) {
	e := NewEngine(nil, nil)
	_, err := e.modelStory(context.Background(), testPlayer(), "", nil, "")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, e.HasModel())

	e = NewEngine(&scriptedGenerator{errs: []error{errors.New("quota")}}, nil)
	_, err = e.modelStory(context.Background(), testPlayer(), "", nil, "")
	assert.ErrorIs(t, err, ErrModelCallFailed)

	e = NewEngine(&scriptedGenerator{responses: []string{"nope"}}, nil)
	_, err = e.modelStory(context.Background(), testPlayer(), "", nil, "")
	var formatErr *ResponseFormatError
	assert.ErrorAs(t, err, &formatErr)
}
