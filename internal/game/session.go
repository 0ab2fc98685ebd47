// Package game tracks one player's adventure between engine calls.
package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-master/internal/models"
)

// Session is the client-side game state: the character, the adventure
// log and the fight in progress, if any.
type Session struct {
	Player  *models.Player      `json:"player"`
	Genre   string              `json:"genre"`
	Enemy   *models.Enemy       `json:"enemy,omitempty"`
	Events  []models.StoryEvent `json:"events"`
	Choices []string            `json:"choices"`
	Gold    int                 `json:"gold"`
	Over    bool                `json:"over"`

	now func() time.Time
}

// NewSession starts a fresh adventure.
func NewSession(player *models.Player, genre string) *Session {
	return &Session{
		Player: player,
		Genre:  genre,
		Events: []models.StoryEvent{},
		now:    time.Now,
	}
}

// InCombat reports whether an enemy is engaged.
func (s *Session) InCombat() bool { return s.Enemy != nil && !s.Over }

// Record appends an event to the adventure log.
func (s *Session) Record(typ, text string) models.StoryEvent {
	if s.now == nil {
		s.now = time.Now
	}
	ev := models.StoryEvent{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: s.now().UTC(),
		Type:      typ,
	}
	s.Events = append(s.Events, ev)
	return ev
}

// ApplyStory folds a story outcome into the session.
func (s *Session) ApplyStory(out *models.StoryOutcome) {
	s.Record(models.EventStory, out.Story)
	for _, it := range out.Items {
		s.Player.AddItem(it)
		s.Record(models.EventItem, fmt.Sprintf("Found %s.", it.Name))
	}
	for _, ev := range out.Events {
		s.Record(ev.Type, ev.Text)
	}
	if out.Enemy != nil {
		enemy := *out.Enemy
		s.Enemy = &enemy
		s.Record(models.EventCombat, fmt.Sprintf("%s attacks!", enemy.Name))
	}
	s.Choices = append([]string(nil), out.Choices...)
}

// ApplyCombat folds a combat outcome into the session. A used item is
// consumed whatever its effect.
func (s *Session) ApplyCombat(action, itemID string, out *models.CombatOutcome) {
	if action == models.ActionUseItem {
		s.Player.ConsumeItem(itemID)
	}
	for _, line := range out.CombatLog {
		s.Record(models.EventCombat, line)
	}

	levels := s.Player.ApplyCombat(s.Enemy, out)
	if levels > 0 {
		s.Record(models.EventLevelUp, fmt.Sprintf("You reached level %d!", s.Player.Level))
	}
	if out.Rewards != nil {
		s.Gold += out.Rewards.Gold
		for _, it := range out.Rewards.Items {
			s.Record(models.EventItem, fmt.Sprintf("Looted %s.", it.Name))
		}
	}

	switch {
	case out.Defeat:
		s.Over = true
	case out.Victory, out.Escaped:
		s.Enemy = nil
	}
}

// ResolveChoice maps a 1-based choice number to its text. Anything else is
// returned unchanged as a free-form action.
func (s *Session) ResolveChoice(input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(s.Choices) {
		return s.Choices[n-1]
	}
	return input
}

// State snapshots the session for the save store.
func (s *Session) State() (models.GameState, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	var state models.GameState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

// Restore rebuilds a session from a saved snapshot.
func Restore(state models.GameState) (*Session, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	s := &Session{now: time.Now}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if s.Player == nil {
		return nil, fmt.Errorf("saved state has no player")
	}
	if s.Events == nil {
		s.Events = []models.StoryEvent{}
	}
	return s, nil
}
