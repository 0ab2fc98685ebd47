package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tatianab/dungeon-master/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/story.tmpl
var storyPrompt string

//go:embed prompts/combat.tmpl
var combatPrompt string

//go:embed prompts/genres.yaml
var genresYAML []byte

// HistoryWindow is how many trailing events are included in a story prompt.
const HistoryWindow = 3

const defaultGenre = "fantasy"

var (
	storyTmpl  = template.Must(template.New("story").Parse(storyPrompt))
	combatTmpl = template.Must(template.New("combat").Parse(combatPrompt))
	genres     = mustLoadGenres(genresYAML)
)

func mustLoadGenres(data []byte) map[string]string {
	var g map[string]string
	if err := yaml.Unmarshal(data, &g); err != nil {
		panic(fmt.Sprintf("engine: invalid genres.yaml: %v", err))
	}
	if g[defaultGenre] == "" {
		panic("engine: genres.yaml has no " + defaultGenre + " entry")
	}
	return g
}

// GenreFraming returns the narrator framing for a genre. Unknown genres frame as fantasy.
func GenreFraming(genre string) string {
	if f, ok := genres[strings.ToLower(strings.TrimSpace(genre))]; ok {
		return f
	}
	return genres[defaultGenre]
}

// Genres lists the known genre keys.
func Genres() []string {
	keys := make([]string, 0, len(genres))
	for k := range genres {
		keys = append(keys, k)
	}
	return keys
}

// BuildStoryPrompt renders the instruction for the next story segment.
// Only the last HistoryWindow events are included; older ones are dropped.
func BuildStoryPrompt(player *models.Player, genre string, history []models.StoryEvent, choice string) (string, error) {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	var lines []string
	for _, ev := range history {
		if text := strings.TrimSpace(ev.Text); text != "" {
			lines = append(lines, text)
		}
	}

	action := strings.TrimSpace(choice)
	if action == "" {
		action = "Begin the adventure."
	}

	data := struct {
		Framing string
		Player  models.Player
		History []string
		Action  string
	}{
		Framing: GenreFraming(genre),
		Player:  playerOrZero(player),
		History: lines,
		Action:  action,
	}

	var buf bytes.Buffer
	if err := storyTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render story prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildCombatPrompt renders the instruction for one combat turn.
func BuildCombatPrompt(player *models.Player, enemy *models.Enemy, action, itemID string) (string, error) {
	p := playerOrZero(player)
	var e models.Enemy
	if enemy != nil {
		e = *enemy
	}

	data := struct {
		Player models.Player
		Enemy  models.Enemy
		Action string
	}{
		Player: p,
		Enemy:  e,
		Action: describeAction(&p, &e, action, itemID),
	}

	var buf bytes.Buffer
	if err := combatTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render combat prompt: %w", err)
	}
	return buf.String(), nil
}

func describeAction(p *models.Player, e *models.Enemy, action, itemID string) string {
	switch action {
	case models.ActionAttack:
		return fmt.Sprintf("The player attacks %s.", e.Name)
	case models.ActionDefend:
		return "The player raises their guard and defends this turn."
	case models.ActionRun:
		return fmt.Sprintf("The player tries to flee from %s.", e.Name)
	case models.ActionUseItem:
		item, ok := p.FindItem(itemID)
		if !ok {
			return fmt.Sprintf("The player tries to use an item (%q) they do not carry. The attempt fails and the turn is wasted.", itemID)
		}
		if item.Effect != "" {
			return fmt.Sprintf("The player uses %s (%s).", item.Name, item.Effect)
		}
		return fmt.Sprintf("The player uses %s.", item.Name)
	}
	return fmt.Sprintf("The player attempts to %s.", action)
}

func playerOrZero(p *models.Player) models.Player {
	if p == nil {
		return models.Player{}
	}
	return *p
}
