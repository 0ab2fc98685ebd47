package models

import "strings"

var classStats = map[string]Stats{
	"warrior": {Strength: 10, Intelligence: 5, Agility: 7},
	"mage":    {Strength: 5, Intelligence: 10, Agility: 6},
	"rogue":   {Strength: 7, Intelligence: 6, Agility: 10},
}

// NewPlayer creates a level 1 character. Unknown classes get warrior stats.
func NewPlayer(name, class, gender string) *Player {
	stats, ok := classStats[strings.ToLower(class)]
	if !ok {
		stats = classStats["warrior"]
	}
	return &Player{
		Name:      name,
		Class:     class,
		Gender:    gender,
		Level:     1,
		Health:    100,
		MaxHealth: 100,
		XP:        0,
		MaxXP:     100,
		Inventory: []Item{},
		Stats:     stats,
	}
}

// AddItem stacks the item onto an existing entry with the same id or appends it.
func (p *Player) AddItem(item Item) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for i := range p.Inventory {
		if p.Inventory[i].ID == item.ID {
			p.Inventory[i].Quantity += item.Quantity
			return
		}
	}
	p.Inventory = append(p.Inventory, item)
}

// ConsumeItem removes one unit of the item. It reports false if the item is missing.
func (p *Player) ConsumeItem(id string) bool {
	for i := range p.Inventory {
		if p.Inventory[i].ID != id {
			continue
		}
		p.Inventory[i].Quantity--
		if p.Inventory[i].Quantity <= 0 {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
		}
		return true
	}
	return false
}

// GainXP adds experience and applies any level-ups. It returns the number of levels gained.
func (p *Player) GainXP(xp int) int {
	if xp <= 0 {
		return 0
	}
	if p.MaxXP <= 0 {
		p.MaxXP = 100
	}
	p.XP += xp
	levels := 0
	for p.XP >= p.MaxXP {
		p.XP -= p.MaxXP
		p.Level++
		p.MaxHealth += 20
		p.Health = p.MaxHealth
		p.MaxXP += p.MaxXP / 2
		p.Stats.Strength++
		p.Stats.Intelligence++
		p.Stats.Agility++
		levels++
	}
	return levels
}

// ApplyCombat copies a combat outcome onto the player and enemy.
// Rewards are applied when present; it returns the levels gained.
func (p *Player) ApplyCombat(e *Enemy, o *CombatOutcome) int {
	p.Health = o.PlayerHealth
	if e != nil {
		e.Health = o.EnemyHealth
	}
	if o.Rewards == nil {
		return 0
	}
	for _, it := range o.Rewards.Items {
		p.AddItem(it)
	}
	return p.GainXP(o.Rewards.XP)
}
