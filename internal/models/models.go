package models

import "time"

// Stats are the player's core attributes.
type Stats struct {
	Strength     int `json:"strength" bson:"strength"`
	Intelligence int `json:"intelligence" bson:"intelligence"`
	Agility      int `json:"agility" bson:"agility"`
}

// Item is an inventory entry. IDs are unique within one inventory.
type Item struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Type     string `json:"type" bson:"type"` // weapon, armor, potion, key, quest
	Effect   string `json:"effect,omitempty" bson:"effect,omitempty"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// Player is the client's character snapshot.
type Player struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Gender    string `json:"gender"`
	Level     int    `json:"level"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"maxHealth"`
	XP        int    `json:"xp"`
	MaxXP     int    `json:"maxXp"`
	Inventory []Item `json:"inventory"`
	Stats     Stats  `json:"stats"`
}

// FindItem returns the inventory item with the given id.
func (p *Player) FindItem(id string) (Item, bool) {
	for _, it := range p.Inventory {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Enemy is an opponent introduced by a story outcome.
type Enemy struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"maxHealth"`
	Attack    int    `json:"attack"`
	Defense   int    `json:"defense"`
}

// Event types used in the adventure log.
const (
	EventStory   = "story"
	EventCombat  = "combat"
	EventItem    = "item"
	EventLevelUp = "level-up"
	EventSystem  = "system"
)

// StoryEvent is one immutable entry of the adventure log.
type StoryEvent struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// GameEvent is an auxiliary event attached to a story outcome.
type GameEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// StoryOutcome is the result of one story generation.
type StoryOutcome struct {
	Story   string      `json:"story"`
	Choices []string    `json:"choices"`
	Enemy   *Enemy      `json:"enemy,omitempty"`
	Items   []Item      `json:"items,omitempty"`
	Events  []GameEvent `json:"events,omitempty"`
}

// Rewards are granted for a won fight.
type Rewards struct {
	XP    int    `json:"xp"`
	Gold  int    `json:"gold"`
	Items []Item `json:"items"`
}

// CombatOutcome is the result of one combat turn. PlayerDamage is the
// damage the player took; EnemyDamage is the damage the enemy took.
type CombatOutcome struct {
	PlayerDamage int      `json:"playerDamage"`
	EnemyDamage  int      `json:"enemyDamage"`
	PlayerHealth int      `json:"playerHealth"`
	EnemyHealth  int      `json:"enemyHealth"`
	CombatLog    []string `json:"combatLog"`
	Victory      bool     `json:"victory,omitempty"`
	Defeat       bool     `json:"defeat,omitempty"`
	Escaped      bool     `json:"escaped,omitempty"`
	Rewards      *Rewards `json:"rewards,omitempty"`
}

// Combat actions understood by the engine. Anything else is treated as an attack.
const (
	ActionAttack  = "attack"
	ActionDefend  = "defend"
	ActionUseItem = "use-item"
	ActionRun     = "run"
)
