package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/dungeon-master/internal/models"
)

func testPlayer() *models.Player {
	p := models.NewPlayer("Aria", "Mage", "female")
	p.AddItem(models.Item{ID: "potion_1", Name: "Healing Potion", Type: "potion", Effect: "Restores 25 health", Quantity: 2})
	return p
}

func TestBuildStoryPromptHistoryWindow(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	var history []models.StoryEvent
	for _, w := range words {
		history = append(history, models.StoryEvent{ID: w, Text: "The " + w + " gate opens.", Type: models.EventStory})
	}

	prompt, err := BuildStoryPrompt(testPlayer(), "fantasy", history, "Enter the tower")
	require.NoError(t, err)

	for _, w := range words[:2] {
		assert.NotContains(t, prompt, w)
	}
	for _, w := range words[2:] {
		assert.Contains(t, prompt, "The "+w+" gate opens.")
	}
	assert.Contains(t, prompt, "Enter the tower")
	assert.Contains(t, prompt, "Aria, a level 1 Mage (female)")
	assert.Contains(t, prompt, "Healing Potion (potion) x2: Restores 25 health")
	assert.NotContains(t, prompt, "No prior context")
}

func TestBuildStoryPromptBeginning(t *testing.T) {
	prompt, err := BuildStoryPrompt(models.NewPlayer("Bram", "Rogue", ""), "sci-fi", nil, "")
	require.NoError(t, err)

	assert.Contains(t, prompt, "No prior context: this is the beginning of the adventure.")
	assert.Contains(t, prompt, "Begin the adventure.")
	assert.Contains(t, prompt, "(empty)")
	assert.Contains(t, prompt, GenreFraming("sci-fi"))
	assert.NotContains(t, prompt, "Bram, a level 1 Rogue (")
}

func TestGenreFraming(t *testing.T) {
	assert.Equal(t, GenreFraming("fantasy"), GenreFraming("no-such-genre"))
	assert.Equal(t, GenreFraming("horror"), GenreFraming("  HORROR "))
	assert.NotEqual(t, GenreFraming("fantasy"), GenreFraming("western"))
	for _, g := range []string{"fantasy", "sci-fi", "mystery", "horror", "western", "cyberpunk", "mythical"} {
		assert.Contains(t, Genres(), g)
	}
}

func TestBuildCombatPromptActions(t *testing.T) {
	p := testPlayer()
	enemy := &models.Enemy{ID: "e1", Name: "Goblin", Health: 20, MaxHealth: 30, Attack: 6, Defense: 2}

	tests := []struct {
		action, itemID string
		want           string
	}{
		{models.ActionAttack, "", "The player attacks Goblin."},
		{models.ActionDefend, "", "defends this turn"},
		{models.ActionRun, "", "tries to flee from Goblin"},
		{models.ActionUseItem, "potion_1", "uses Healing Potion (Restores 25 health)"},
		{models.ActionUseItem, "missing", `("missing") they do not carry`},
		{"dance", "", "attempts to dance"},
	}
	for _, tt := range tests {
		t.Run(tt.action+tt.itemID, func(t *testing.T) {
			prompt, err := BuildCombatPrompt(p, enemy, tt.action, tt.itemID)
			require.NoError(t, err)
			assert.Contains(t, prompt, tt.want)
			assert.Contains(t, prompt, "Health: 20/30 | Attack: 6 | Defense: 2")
		})
	}
}

func TestBuildPromptsNilInputs(t *testing.T) {
	prompt, err := BuildCombatPrompt(nil, nil, models.ActionAttack, "")
	require.NoError(t, err)
	assert.True(t, strings.Contains(prompt, "OUTPUT FORMAT"))

	_, err = BuildStoryPrompt(nil, "", nil, "")
	require.NoError(t, err)
}
