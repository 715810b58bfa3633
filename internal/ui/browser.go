package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/ruleseek/internal/rules"
	"github.com/Aman-CERP/ruleseek/internal/search"
)

// Browser is the interactive rules browser. Every keystroke re-runs the
// search over the current snapshot.
type Browser struct {
	store  *rules.Store
	input  io.Reader
	output io.Writer
	styles Styles
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithIO sets the program input and output, for tests.
func WithIO(in io.Reader, out io.Writer) BrowserOption {
	return func(b *Browser) {
		b.input = in
		b.output = out
	}
}

// WithStyles overrides the styles.
func WithStyles(s Styles) BrowserOption {
	return func(b *Browser) { b.styles = s }
}

// NewBrowser creates a browser over store.
func NewBrowser(store *rules.Store, opts ...BrowserOption) *Browser {
	b := &Browser{store: store, styles: GetStyles(noColorEnv())}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run starts the program and blocks until the user quits or ctx ends.
func (b *Browser) Run(ctx context.Context) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if b.input != nil {
		opts = append(opts, tea.WithInput(b.input))
	}
	if b.output != nil {
		opts = append(opts, tea.WithOutput(b.output))
	} else {
		opts = append(opts, tea.WithAltScreen())
	}
	_, err := tea.NewProgram(newBrowserModel(b.store, b.styles), opts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

type browserModel struct {
	store    *rules.Store
	input    textinput.Model
	styles   Styles
	result   search.Result
	cursor   int
	expanded bool
	width    int
	height   int
	quitting bool
}

func newBrowserModel(store *rules.Store, styles Styles) *browserModel {
	ti := textinput.New()
	ti.Placeholder = "Задайте вопрос..."
	ti.Prompt = "❯ "
	ti.PromptStyle = styles.Prompt
	ti.CharLimit = search.DefaultMaxQueryLength
	ti.Focus()

	m := &browserModel{
		store:  store,
		input:  ti,
		styles: styles,
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyCtrlP:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyDown, tea.KeyCtrlN:
			if m.cursor < len(m.result.Rules)-1 {
				m.cursor++
			}
			return m, nil
		case tea.KeyEnter:
			m.expanded = !m.expanded
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refresh()
	}
	return m, cmd
}

// refresh re-runs the search for the current input.
func (m *browserModel) refresh() {
	m.result = search.Run(m.store.Snapshot().Rules, m.input.Value())
	m.cursor = 0
	m.expanded = false
}

// View implements tea.Model.
func (m *browserModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.styles

	var sb strings.Builder
	sb.WriteString(s.Header.Render("Поиск по правилам"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")
	sb.WriteString(s.Label.Render(m.summary()))
	sb.WriteString("\n\n")

	if len(m.result.Rules) == 0 {
		sb.WriteString(s.Dim.Render("Ничего не найдено"))
		sb.WriteString("\n")
	}
	width := max(m.width-8, 20)
	for i, r := range m.result.Rules {
		sb.WriteString(m.renderRule(i, r, width))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(s.Dim.Render("↑/↓ выбор · enter подробно · esc выход"))
	return sb.String()
}

func (m *browserModel) summary() string {
	snap := m.store.Snapshot()
	switch m.result.Mode {
	case search.ModeBrowse:
		return fmt.Sprintf("Первые %d из %d правил", len(m.result.Rules), snap.Len())
	case search.ModeNoTerms:
		return "Слова запроса слишком короткие"
	default:
		return fmt.Sprintf("Найдено: %d (совпадений %d)", len(m.result.Rules), m.result.Matched)
	}
}

func (m *browserModel) renderRule(i int, r search.ScoredRule, width int) string {
	s := m.styles
	marker := "  "
	if i == m.cursor {
		marker = s.Prompt.Render("▸ ")
	}

	head := s.Point.Render(r.Point + ".")
	if r.Scored {
		head += " " + s.Relevance(r.Relevance).Render(fmt.Sprintf("%d%%", r.Relevance))
	}

	text := r.Title
	if i == m.cursor && m.expanded {
		text = r.Content
	}
	if i == m.cursor {
		text = s.Selected.Render(text)
	}
	line := marker + head + " " + lipgloss.NewStyle().Width(width).Render(text)

	if i == m.cursor && m.expanded {
		detail := fmt.Sprintf("%s %s · %s",
			s.Label.Render("Наказание:"), s.Punishment.Render(r.Punishment), s.Category.Render(r.Category))
		line += "\n    " + detail
	}
	return line
}
