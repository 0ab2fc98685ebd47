package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-master/internal/models"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// StripFence removes a ```json ... ``` wrapper and surrounding whitespace.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, fenceOpen)
	s = strings.TrimSuffix(s, fenceClose)
	return strings.TrimSpace(s)
}

// DecodeResponse decodes a model response into v. Unknown fields are rejected.
func DecodeResponse(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(StripFence(raw)))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return &ResponseFormatError{Err: err}
		case errors.As(err, &typeErr), strings.HasPrefix(err.Error(), "json: unknown field"):
			return &SchemaValidationError{Err: err}
		default:
			return &ParsingError{Err: err}
		}
	}
	if dec.More() {
		return &ResponseFormatError{Err: errors.New("unexpected data after JSON object")}
	}
	return nil
}

// ParseStory decodes, normalizes and validates a story response.
func ParseStory(raw string) (*models.StoryOutcome, error) {
	var out models.StoryOutcome
	if err := DecodeResponse(raw, &out); err != nil {
		return nil, err
	}
	normalizeStory(&out)
	if err := out.Validate(); err != nil {
		return nil, &SchemaValidationError{Err: err}
	}
	return &out, nil
}

// ParseCombat decodes, normalizes and validates a combat response.
func ParseCombat(raw string) (*models.CombatOutcome, error) {
	var out models.CombatOutcome
	if err := DecodeResponse(raw, &out); err != nil {
		return nil, err
	}
	normalizeCombat(&out)
	if err := out.Validate(); err != nil {
		return nil, &SchemaValidationError{Err: err}
	}
	return &out, nil
}

func normalizeStory(o *models.StoryOutcome) {
	o.Story = strings.TrimSpace(o.Story)
	for i := range o.Choices {
		o.Choices[i] = strings.TrimSpace(o.Choices[i])
	}
	if e := o.Enemy; e != nil {
		if e.ID == "" {
			e.ID = "enemy_" + uuid.NewString()
		}
		if e.MaxHealth == 0 {
			e.MaxHealth = e.Health
		}
	}
	for i := range o.Items {
		normalizeItem(&o.Items[i])
	}
}

func normalizeCombat(o *models.CombatOutcome) {
	o.PlayerHealth = max(0, o.PlayerHealth)
	o.EnemyHealth = max(0, o.EnemyHealth)
	if o.Rewards != nil {
		if o.Rewards.Items == nil {
			o.Rewards.Items = []models.Item{}
		}
		for i := range o.Rewards.Items {
			normalizeItem(&o.Rewards.Items[i])
		}
	}
}

func normalizeItem(it *models.Item) {
	if it.ID == "" {
		it.ID = fmt.Sprintf("item_%s", uuid.NewString())
	}
	if it.Quantity == 0 {
		it.Quantity = 1
	}
}
