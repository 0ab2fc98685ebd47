package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/tatianab/dungeon-master/internal/config"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/game"
	"github.com/tatianab/dungeon-master/internal/llm"
	"github.com/tatianab/dungeon-master/internal/models"
)

func main() {
	maxTurns := flag.Int("turns", 10, "number of turns to play")
	genre := flag.String("genre", "fantasy", "story genre")
	class := flag.String("class", "Rogue", "hero class")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The same model plays both sides: game master through the engine, and
	// the player picking from the offered choices.
	var gen engine.Generator
	var player llm.Client
	model := cfg.GeminiModel
	if cfg.ModelProvider == config.ProviderOpenAI {
		model = cfg.OpenAIModel
	}
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.ModelProvider,
		APIKey:   cfg.ModelAPIKey(),
		Model:    model,
		BaseURL:  cfg.OpenAIBaseURL,
	})
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		fmt.Println("No API key: simulating with the fallback storyteller and a scripted player.")
	case err != nil:
		log.Fatalf("Failed to create model client: %v", err)
	default:
		defer client.Close()
		gen, player = client, client
	}

	eng := engine.NewEngine(gen, engine.NewFallback(cfg.FallbackSeed))
	session := game.NewSession(models.NewPlayer("Sim", *class, ""), *genre)

	fmt.Println("--- Opening ---")
	session.ApplyStory(eng.GenerateStory(ctx, session.Player, session.Genre, session.Events, ""))
	printLast(session, 0)

	for turn := 1; turn <= *maxTurns && !session.Over; turn++ {
		fmt.Printf("\n--- Turn %d ---\n", turn)
		before := len(session.Events)

		if session.InCombat() {
			action, itemID := combatAction(session)
			fmt.Printf("Player Action: %s %s\n", action, itemID)
			out := eng.ResolveCombatTurn(ctx, session.Player, session.Enemy, action, itemID)
			session.ApplyCombat(action, itemID, out)
			if !session.Over && (out.Victory || out.Escaped) {
				session.ApplyStory(eng.GenerateStory(ctx, session.Player, session.Genre, session.Events, "Continue after the fight"))
			}
		} else {
			choice := pickChoice(ctx, player, session)
			fmt.Printf("Player Choice: %s\n", choice)
			session.ApplyStory(eng.GenerateStory(ctx, session.Player, session.Genre, session.Events, choice))
		}

		printLast(session, before)
		p := session.Player
		fmt.Printf("Stats: Level=%d Health=%d/%d XP=%d/%d Gold=%d Items=%d\n",
			p.Level, p.Health, p.MaxHealth, p.XP, p.MaxXP, session.Gold, len(p.Inventory))
	}

	if session.Over {
		fmt.Println("\nGame Ended: Player Lost!")
	} else {
		fmt.Println("\nGame Ended: turn limit reached.")
	}
}

// combatAction heals below a third of max health when a potion is carried,
// otherwise attacks.
func combatAction(s *game.Session) (string, string) {
	p := s.Player
	if p.Health*3 < p.MaxHealth {
		for _, it := range p.Inventory {
			if strings.EqualFold(it.Type, "potion") {
				return models.ActionUseItem, it.ID
			}
		}
		return models.ActionDefend, ""
	}
	return models.ActionAttack, ""
}

func pickChoice(ctx context.Context, player llm.Client, s *game.Session) string {
	if len(s.Choices) == 0 {
		return "Look around"
	}
	if player == nil {
		return s.Choices[len(s.Events)%len(s.Choices)]
	}

	var history strings.Builder
	start := max(0, len(s.Events)-engine.HistoryWindow)
	for _, ev := range s.Events[start:] {
		history.WriteString("- " + ev.Text + "\n")
	}
	var options strings.Builder
	for i, c := range s.Choices {
		fmt.Fprintf(&options, "%d. %s\n", i+1, c)
	}

	prompt := fmt.Sprintf(`You are playing a text-based role-playing game as %s, a level %d %s.

Recent events:
%s
Your options:
%s
Answer with a JSON object {"choice": <number>} and nothing else.`,
		s.Player.Name, s.Player.Level, s.Player.Class, history.String(), options.String())

	raw, err := player.Generate(ctx, prompt)
	if err != nil {
		return s.Choices[0]
	}
	var answer struct {
		Choice int `json:"choice"`
	}
	if err := engine.DecodeResponse(raw, &answer); err != nil || answer.Choice < 1 || answer.Choice > len(s.Choices) {
		return s.Choices[0]
	}
	return s.Choices[answer.Choice-1]
}

func printLast(s *game.Session, from int) {
	for _, ev := range s.Events[from:] {
		fmt.Printf("[%s] %s\n", ev.Type, ev.Text)
	}
}
