package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/wifivault/credentials"
)

type browseState int

const (
	stateList browseState = iota
	stateDetail
)

// clipboardClearedMsg fires when the copy numbered seq expires.
type clipboardClearedMsg struct{ seq int }

type model struct {
	store      *credentials.Store
	input      textinput.Model
	results    []credentials.CenterCredentials
	cursor     int
	state      browseState
	selected   *credentials.CenterCredentials
	clearAfter time.Duration
	copySeq    int
	pending    bool
	msg        string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

func newModel(store *credentials.Store, clearAfter time.Duration) model {
	ti := textinput.New()
	ti.Placeholder = "code or name"
	ti.Prompt = "Search: "
	ti.Focus()

	return model{
		store:      store,
		input:      ti,
		results:    store.All(),
		clearAfter: clearAfter,
	}
}

// RunTUI starts the interactive browser over an already loaded store.
func RunTUI(store *credentials.Store, clearAfter time.Duration) error {
	p := tea.NewProgram(newModel(store, clearAfter))
	final, err := p.Run()
	if m, ok := final.(model); ok && m.pending {
		_ = writeClipboard("")
	}
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cleared, ok := msg.(clipboardClearedMsg); ok {
		if cleared.seq != m.copySeq || !m.pending {
			return m, nil
		}
		_ = writeClipboard("")
		m.pending = false
		m.msg = "Clipboard cleared"
		return m, nil
	}

	switch m.state {
	case stateDetail:
		return m.updateDetail(msg)
	default:
		return m.updateList(msg)
	}
}

func (m model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m.quit()
		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "enter":
			if c := m.current(); c != nil {
				m.selected = c
				m.state = stateDetail
				m.msg = ""
			}
			return m, nil
		case "ctrl+y":
			return m.copyCurrent()
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.results = m.store.Search(strings.TrimSpace(m.input.Value()))
		m.cursor = 0
	}
	return m, cmd
}

func (m model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c":
		return m.quit()
	case "esc", "backspace", "q":
		m.state = stateList
		m.selected = nil
		m.msg = ""
	case "ctrl+y", "c":
		return m.copyCurrent()
	}
	return m, nil
}

func (m model) current() *credentials.CenterCredentials {
	if m.state == stateDetail && m.selected != nil {
		return m.selected
	}
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return nil
	}
	c := m.results[m.cursor]
	return &c
}

// quit clears a copied password that has not expired yet.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.pending {
		_ = writeClipboard("")
		m.pending = false
	}
	return m, tea.Quit
}

func (m model) copyCurrent() (tea.Model, tea.Cmd) {
	c := m.current()
	if c == nil {
		return m, nil
	}
	if err := writeClipboard(c.Password); err != nil {
		m.msg = "Copy failed: " + err.Error()
		return m, nil
	}
	m.copySeq++
	if m.clearAfter <= 0 {
		m.pending = false
		m.msg = "Password copied!"
		return m, nil
	}
	m.pending = true
	m.msg = fmt.Sprintf("Password copied! (clears in %s)", m.clearAfter)
	seq := m.copySeq
	return m, tea.Tick(m.clearAfter, func(time.Time) tea.Msg { return clipboardClearedMsg{seq: seq} })
}

func (m model) View() string {
	if m.state == stateDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m model) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.store.Describe()) + "\n\n")
	b.WriteString(m.input.View() + "\n\n")
	if len(m.results) == 0 {
		b.WriteString("No centers match.\n")
	}
	for i, c := range m.results {
		line := fmt.Sprintf("%-10s  %-40s  %s", c.CenterCode, c.CenterName, c.Username)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.msg != "" {
		b.WriteString("\n" + msgStyle.Render(m.msg) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("type to filter, up/down=move, enter=show, ctrl+y=copy password, esc=quit"))
	return b.String()
}

func (m model) viewDetail() string {
	c := m.selected
	s := titleStyle.Render(c.CenterName) + "\n\n"
	s += fmt.Sprintf("Code:     %s\nUsername: %s\nPassword: %s\n", c.CenterCode, c.Username, "********")
	if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg) + "\n"
	}
	s += "\n" + helpStyle.Render("c=copy password, esc=back")
	return s
}
