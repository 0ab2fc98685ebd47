package models

import (
	"errors"
	"fmt"
	"strings"
)

// ChoiceCount is the number of choices every story outcome offers.
const ChoiceCount = 3

// MaxCombatLogLines bounds the combat log a model may return.
const MaxCombatLogLines = 3

var errInvalid = errors.New("invalid outcome")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalid, fmt.Sprintf(format, args...))
}

// IsInvalid reports whether err came from Validate.
func IsInvalid(err error) bool {
	return errors.Is(err, errInvalid)
}

// Validate checks the story outcome invariants.
func (o *StoryOutcome) Validate() error {
	if strings.TrimSpace(o.Story) == "" {
		return invalid("story text is empty")
	}
	if len(o.Choices) != ChoiceCount {
		return invalid("expected %d choices, got %d", ChoiceCount, len(o.Choices))
	}
	for i, c := range o.Choices {
		if strings.TrimSpace(c) == "" {
			return invalid("choice %d is empty", i)
		}
	}
	if o.Enemy != nil {
		if err := o.Enemy.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(o.Items))
	for _, it := range o.Items {
		if err := it.Validate(); err != nil {
			return err
		}
		if seen[it.ID] {
			return invalid("duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
	}
	for _, ev := range o.Events {
		if ev.Type == "" || ev.Text == "" {
			return invalid("event needs both type and text")
		}
	}
	return nil
}

// Validate checks the enemy's stat ranges.
func (e *Enemy) Validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return invalid("enemy has no name")
	case e.MaxHealth <= 0:
		return invalid("enemy %q max health must be positive", e.Name)
	case e.Health < 0 || e.Health > e.MaxHealth:
		return invalid("enemy %q health %d outside 0..%d", e.Name, e.Health, e.MaxHealth)
	case e.Attack < 0 || e.Defense < 0:
		return invalid("enemy %q has negative attack or defense", e.Name)
	}
	return nil
}

// Validate checks an item's required fields.
func (it *Item) Validate() error {
	switch {
	case it.ID == "":
		return invalid("item has no id")
	case strings.TrimSpace(it.Name) == "":
		return invalid("item %q has no name", it.ID)
	case it.Quantity < 1:
		return invalid("item %q quantity %d", it.ID, it.Quantity)
	}
	return nil
}

// Validate checks the combat outcome invariants.
func (o *CombatOutcome) Validate() error {
	if o.PlayerHealth < 0 || o.EnemyHealth < 0 {
		return invalid("negative health")
	}
	if o.PlayerDamage < 0 || o.EnemyDamage < 0 {
		return invalid("negative damage")
	}
	if n := len(o.CombatLog); n < 1 || n > MaxCombatLogLines {
		return invalid("combat log has %d lines", n)
	}
	if o.Victory && o.Defeat {
		return invalid("victory and defeat are both set")
	}
	if o.Escaped && (o.Victory || o.Defeat) {
		return invalid("escape cannot end in victory or defeat")
	}
	if o.Victory && o.EnemyHealth != 0 {
		return invalid("victory with enemy health %d", o.EnemyHealth)
	}
	if o.Defeat && o.PlayerHealth != 0 {
		return invalid("defeat with player health %d", o.PlayerHealth)
	}
	if o.PlayerHealth == 0 && !o.Escaped && !o.Defeat {
		return invalid("player health is 0 but defeat is not set")
	}
	if o.Victory != (o.Rewards != nil) {
		return invalid("rewards must be present exactly when victorious")
	}
	if o.Rewards != nil {
		if o.Rewards.XP < 0 || o.Rewards.Gold < 0 {
			return invalid("negative rewards")
		}
		for _, it := range o.Rewards.Items {
			if err := it.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
