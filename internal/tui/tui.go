package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/dungeon-master/internal/game"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/store"
)

// Narrator produces story and combat outcomes.
type Narrator interface {
	GenerateStory(ctx context.Context, player *models.Player, genre string, history []models.StoryEvent, choice string) *models.StoryOutcome
	ResolveCombatTurn(ctx context.Context, player *models.Player, enemy *models.Enemy, action, itemID string) *models.CombatOutcome
}

type sessionState int

const (
	stateName sessionState = iota
	stateClass
	stateGenre
	stateLoading
	statePlaying
	stateGameOver
)

const defaultGenre = "fantasy"

type model struct {
	state     sessionState
	narrator  Narrator
	saves     *store.Saves
	session   *game.Session
	textInput textinput.Model
	viewport  viewport.Model
	gameLog   string
	status    string
	width     int
	height    int

	name  string
	class string
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	combatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6F61"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#88C0D0")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// NewModel returns the root bubbletea model. saves may wrap a nil repository.
func NewModel(narrator Narrator, saves *store.Saves) model {
	ti := textinput.New()
	ti.Placeholder = "Your hero's name..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	if saves == nil {
		saves = store.NewSaves(nil, nil)
	}
	return model{
		state:     stateName,
		narrator:  narrator,
		saves:     saves,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type storyMsg struct {
	outcome *models.StoryOutcome
}

type combatMsg struct {
	action  string
	itemID  string
	outcome *models.CombatOutcome
}

type statusMsg struct {
	text string
}

type loadedMsg struct {
	session *game.Session
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			return m.handleInput(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 8
		if m.session != nil {
			m.viewport.SetContent(m.gameLog)
		}

	case storyMsg:
		before := len(m.session.Events)
		m.session.ApplyStory(msg.outcome)
		m.appendEvents(len(m.session.Events) - before)
		m.state = statePlaying
		m.setPlaceholder()
		return m, nil

	case combatMsg:
		before := len(m.session.Events)
		m.session.ApplyCombat(msg.action, msg.itemID, msg.outcome)
		m.appendEvents(len(m.session.Events) - before)
		switch {
		case m.session.Over:
			m.state = stateGameOver
			return m, nil
		case msg.outcome.Victory || msg.outcome.Escaped:
			m.state = stateLoading
			choice := "Continue after the fight"
			if msg.outcome.Escaped {
				choice = "Catch my breath after escaping"
			}
			return m, m.generateStory(choice)
		}
		m.state = statePlaying
		m.setPlaceholder()
		return m, nil

	case statusMsg:
		m.status = msg.text
		if m.state == stateLoading {
			m.state = statePlaying
		}
		return m, nil

	case loadedMsg:
		m.session = msg.session
		m.gameLog = ""
		m.appendEvents(len(m.session.Events))
		m.status = "Game loaded."
		m.state = statePlaying
		if m.session.Over {
			m.state = stateGameOver
		}
		m.setPlaceholder()
		return m, nil

	}

	if m.state != stateLoading {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleInput(input string) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateName:
		if input == "" {
			return m, nil
		}
		m.name = input
		m.state = stateClass
		m.textInput.Placeholder = "warrior, mage or rogue"
		return m, nil

	case stateClass:
		if input == "" {
			input = "Warrior"
		}
		m.class = input
		m.state = stateGenre
		m.textInput.Placeholder = "fantasy, sci-fi, mystery, horror, western, cyberpunk"
		return m, nil

	case stateGenre:
		if input == "" {
			input = defaultGenre
		}
		m.session = game.NewSession(models.NewPlayer(m.name, m.class, ""), strings.ToLower(input))
		m.gameLog = ""
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), max(m.height-8, 5))
		}
		m.state = stateLoading
		return m, m.generateStory("")

	case statePlaying, stateGameOver:
		if input == "" {
			return m, nil
		}
		if strings.HasPrefix(input, "/") {
			return m.handleCommand(input)
		}
		if m.state == stateGameOver {
			return m, nil
		}
		m.appendLine(userStyle.Width(m.logWidth()).Render("> " + input))
		m.status = ""
		if m.session.InCombat() {
			action, itemID, ok := parseCombatAction(input)
			if !ok {
				m.status = "In combat: attack, defend, run or use <item id>."
				return m, nil
			}
			m.state = stateLoading
			return m, m.resolveCombat(action, itemID)
		}
		m.state = stateLoading
		return m, m.generateStory(m.session.ResolveChoice(input))
	}
	return m, nil
}

func (m model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit":
		return m, tea.Quit
	case "/restart":
		m.state = stateName
		m.session = nil
		m.gameLog = ""
		m.status = ""
		m.textInput.Placeholder = "Your hero's name..."
		return m, nil
	case "/save":
		slot := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				m.status = "Usage: /save [slot]"
				return m, nil
			}
			slot = n
		}
		return m, m.saveGame(slot)
	case "/saves":
		return m, m.listSaves()
	case "/load":
		if len(fields) < 2 {
			m.status = "Usage: /load <save id>"
			return m, nil
		}
		return m, m.loadGame(fields[1])
	}
	m.status = "Unknown command " + fields[0]
	return m, nil
}

// parseCombatAction accepts attack, defend, run and "use <item id>", with
// single-letter shortcuts.
func parseCombatAction(input string) (action, itemID string, ok bool) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", "", false
	}
	switch strings.ToLower(fields[0]) {
	case "attack", "a", "1":
		return models.ActionAttack, "", true
	case "defend", "d", "2":
		return models.ActionDefend, "", true
	case "run", "r", "flee", "3":
		return models.ActionRun, "", true
	case "use", "u":
		if len(fields) < 2 {
			return "", "", false
		}
		return models.ActionUseItem, fields[1], true
	}
	return "", "", false
}

func (m *model) setPlaceholder() {
	switch {
	case m.session == nil:
	case m.session.Over:
		m.textInput.Placeholder = "/restart or /quit"
	case m.session.InCombat():
		m.textInput.Placeholder = "attack, defend, run, use <item id>"
	default:
		m.textInput.Placeholder = "Pick 1-3 or describe what you do"
	}
}

func (m *model) appendEvents(n int) {
	if n <= 0 || m.session == nil {
		return
	}
	events := m.session.Events
	start := max(0, len(events)-n)
	for _, ev := range events[start:] {
		m.appendLine(renderEvent(ev, m.logWidth()))
	}
}

func (m *model) appendLine(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func renderEvent(ev models.StoryEvent, width int) string {
	switch ev.Type {
	case models.EventCombat:
		return combatStyle.Width(width).Render(ev.Text)
	case models.EventSystem, models.EventLevelUp, models.EventItem:
		return systemStyle.Width(width).Render("* " + ev.Text)
	}
	return gameStyle.Width(width).Render(ev.Text)
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.70)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateName:
		s = fmt.Sprintf("Welcome, adventurer!\n\n%s\n\n%s", "What is your name?", m.textInput.View())
	case stateClass:
		s = fmt.Sprintf("Choose a class for %s:\n\n%s", m.name, m.textInput.View())
	case stateGenre:
		s = fmt.Sprintf("Pick a genre:\n\n%s", m.textInput.View())
	case stateLoading:
		s = "\n  The story unfolds... please wait.\n"
	case statePlaying, stateGameOver:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
		footer := m.renderChoices()
		if m.state == stateGameOver {
			footer = combatStyle.Bold(true).Render("You have fallen. /restart to begin anew.")
		}
		help := helpStyle.Render("Commands: /save [slot], /saves, /load <id>, /restart, /quit")
		if m.status != "" {
			help = systemStyle.Render(m.status) + "\n" + help
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			footer,
			"\n"+m.textInput.View(),
			"\n"+help,
		)
	}

	return "\n" + s + "\n"
}

func (m model) renderChoices() string {
	if m.session == nil {
		return ""
	}
	if m.session.InCombat() {
		return combatStyle.Render("Actions: attack | defend | run | use <item id>")
	}
	var b strings.Builder
	for i, c := range m.session.Choices {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return b.String()
}

func (m model) renderState() string {
	if m.session == nil {
		return ""
	}
	p := m.session.Player

	hero := titleStyle.Render("HERO") + "\n" +
		fmt.Sprintf("%s the %s\nLevel %d\n", p.Name, p.Class, p.Level) +
		fmt.Sprintf("Health: %d/%d\nXP: %d/%d\nGold: %d\n\n", p.Health, p.MaxHealth, p.XP, p.MaxXP, m.session.Gold)

	stats := titleStyle.Render("STATS") + "\n" +
		fmt.Sprintf("STR %d  INT %d  AGI %d\n\n", p.Stats.Strength, p.Stats.Intelligence, p.Stats.Agility)

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(p.Inventory) == 0 {
		inventory += "(empty)\n"
	}
	for _, it := range p.Inventory {
		inventory += fmt.Sprintf("- %s x%d [%s]\n", it.Name, it.Quantity, it.ID)
	}

	enemy := ""
	if e := m.session.Enemy; e != nil && m.session.InCombat() {
		enemy = "\n" + titleStyle.Render("ENEMY") + "\n" +
			fmt.Sprintf("%s\nHealth: %d/%d\n", e.Name, e.Health, e.MaxHealth)
	}

	stateWidth := int(float64(m.width) * 0.26)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(hero + stats + inventory + enemy)
}

func (m model) generateStory(choice string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		out := m.narrator.GenerateStory(context.Background(), session.Player, session.Genre, session.Events, choice)
		return storyMsg{out}
	}
}

func (m model) resolveCombat(action, itemID string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		out := m.narrator.ResolveCombatTurn(context.Background(), session.Player, session.Enemy, action, itemID)
		return combatMsg{action: action, itemID: itemID, outcome: out}
	}
}

func (m model) saveGame(slot int) tea.Cmd {
	session := m.session
	saves := m.saves
	return func() tea.Msg {
		state, err := session.State()
		if err != nil {
			return statusMsg{"Save failed: " + err.Error()}
		}
		res, err := saves.SaveGame(context.Background(), models.SaveRecord{
			PlayerID:  session.Player.Name,
			SaveSlot:  slot,
			SaveName:  fmt.Sprintf("%s, level %d", session.Player.Name, session.Player.Level),
			GameState: state,
		})
		if err != nil {
			return statusMsg{"Save failed: " + err.Error()}
		}
		return statusMsg{fmt.Sprintf("Saved to slot %d (id %s).", slot, res.SaveID)}
	}
}

func (m model) listSaves() tea.Cmd {
	name := m.session.Player.Name
	saves := m.saves
	return func() tea.Msg {
		list, err := saves.ListSaves(context.Background(), name)
		if err != nil {
			return statusMsg{"Could not list saves: " + err.Error()}
		}
		if len(list) == 0 {
			return statusMsg{"No saves yet."}
		}
		var b strings.Builder
		for _, s := range list {
			fmt.Fprintf(&b, "[%d] %s  %s  %s\n", s.SaveSlot, s.SaveName, s.Timestamp.Local().Format("2006-01-02 15:04"), s.SaveID)
		}
		return statusMsg{strings.TrimRight(b.String(), "\n")}
	}
}

func (m model) loadGame(id string) tea.Cmd {
	saves := m.saves
	return func() tea.Msg {
		state, err := saves.LoadSave(context.Background(), id)
		if err != nil {
			return statusMsg{"Load failed: " + err.Error()}
		}
		session, err := game.Restore(state)
		if err != nil {
			return statusMsg{"Load failed: " + err.Error()}
		}
		return loadedMsg{session}
	}
}

// Run starts the terminal game.
func Run(narrator Narrator, saves *store.Saves) error {
	p := tea.NewProgram(NewModel(narrator, saves), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
