package engine

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tatianab/dungeon-master/internal/models"
)

const defaultPotionHeal = 30

var fallbackChoices = []string{
	"Explore further",
	"Look around carefully",
	"Rest for a moment",
}

var firstNumber = regexp.MustCompile(`\d+`)

// Fallback synthesizes rule-based outcomes when the model cannot be used.
// Every outcome it returns passes Validate.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback returns a Fallback seeded with seed. A zero seed uses the clock.
func NewFallback(seed uint64) *Fallback {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Fallback{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Story builds a generic continuation that acknowledges the player's choice.
func (f *Fallback) Story(player *models.Player, choice string) *models.StoryOutcome {
	name := "The adventurer"
	if player != nil && strings.TrimSpace(player.Name) != "" {
		name = player.Name
	}

	var story string
	if c := strings.TrimSpace(choice); c != "" {
		story = fmt.Sprintf("%s decides: %q. The path ahead stays quiet for now, but the air hums with possibility. Something waits just beyond sight.", name, c)
	} else {
		story = fmt.Sprintf("%s steps forward as the adventure begins. The road ahead is uncertain, and every shadow seems to hide a secret.", name)
	}

	return &models.StoryOutcome{
		Story:   story,
		Choices: append([]string(nil), fallbackChoices...),
		Events: []models.GameEvent{{
			Type: models.EventSystem,
			Text: "The storyteller is unavailable; continuing with a simple narration.",
		}},
	}
}

// Combat resolves one turn with fixed rules and a bounded random spread.
// Defeat takes precedence when both sides fall in the same turn.
func (f *Fallback) Combat(player *models.Player, enemy *models.Enemy, action, itemID string) *models.CombatOutcome {
	var p models.Player
	if player != nil {
		p = *player
	}
	var e models.Enemy
	if enemy != nil {
		e = *enemy
	}
	if e.Name == "" {
		e.Name = "the enemy"
	}

	// Draw the same amount of randomness for every action so seeded runs stay aligned.
	f.mu.Lock()
	pOff := f.rng.IntN(5) - 2
	eOff := f.rng.IntN(5) - 2
	escapeRoll := f.rng.IntN(2)
	f.mu.Unlock()

	dealt := max(1, p.Stats.Strength/2+4-e.Defense/2+pOff)
	taken := max(1, e.Attack-p.Stats.Agility/4+eOff)

	out := &models.CombatOutcome{}
	playerHealth := p.Health
	enemyHealth := e.Health

	switch action {
	case models.ActionDefend:
		taken /= 2
		out.PlayerDamage = taken
		out.CombatLog = []string{
			"You brace yourself and raise your guard.",
			fmt.Sprintf("%s strikes your defense for %d damage.", e.Name, taken),
		}
	case models.ActionRun:
		if escapeRoll == 0 {
			out.Escaped = true
			out.CombatLog = []string{
				fmt.Sprintf("You turn and flee from %s.", e.Name),
				"You escape!",
			}
			out.PlayerHealth = max(0, playerHealth)
			out.EnemyHealth = max(0, enemyHealth)
			return out
		}
		taken = max(0, e.Attack/2)
		out.PlayerDamage = taken
		out.CombatLog = []string{
			"You try to run but cannot get away.",
			fmt.Sprintf("%s catches you for %d damage.", e.Name, taken),
		}
	case models.ActionUseItem:
		first := useItem(&p, itemID, &playerHealth)
		out.PlayerDamage = taken
		out.CombatLog = []string{
			first,
			fmt.Sprintf("%s attacks you for %d damage.", e.Name, taken),
		}
	default:
		out.EnemyDamage = dealt
		out.PlayerDamage = taken
		enemyHealth -= dealt
		out.CombatLog = []string{
			fmt.Sprintf("You strike %s for %d damage!", e.Name, dealt),
			fmt.Sprintf("%s hits back for %d damage.", e.Name, taken),
		}
	}

	playerHealth -= out.PlayerDamage
	out.PlayerHealth = max(0, playerHealth)
	out.EnemyHealth = max(0, enemyHealth)

	switch {
	case out.PlayerHealth == 0:
		out.Defeat = true
		out.CombatLog = append(out.CombatLog, "You have been defeated...")
	case out.EnemyHealth == 0:
		out.Victory = true
		out.Rewards = &models.Rewards{
			XP:    2 * max(0, e.MaxHealth),
			Gold:  max(0, e.MaxHealth) / 2,
			Items: []models.Item{},
		}
		out.CombatLog = append(out.CombatLog, fmt.Sprintf("%s is defeated!", e.Name))
	}
	return out
}

// useItem applies a carried item and returns the log line describing it.
// Only potions have an effect; they heal by the first number in their effect text.
func useItem(p *models.Player, itemID string, health *int) string {
	item, ok := p.FindItem(itemID)
	if !ok {
		return "You fumble for an item you do not have and waste the turn."
	}
	if !strings.EqualFold(item.Type, "potion") {
		return fmt.Sprintf("You use %s, but nothing happens.", item.Name)
	}

	heal := defaultPotionHeal
	if m := firstNumber.FindString(item.Effect); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			heal = n
		}
	}
	before := *health
	*health = min(p.MaxHealth, *health+heal)
	if *health < before {
		*health = before
	}
	return fmt.Sprintf("You drink %s and recover %d health.", item.Name, *health-before)
}
