package repl

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// maxScrollback bounds the number of results kept on screen
const maxScrollback = 200

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	exprStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	inputBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

type model struct {
	session *session
	input   textinput.Model
	results []result
	notice  string

	// recall holds submitted lines; recallPos == len(recall) means the
	// input is not showing a recalled line
	recall    []string
	recallPos int
	draft     string

	width    int
	height   int
	quitting bool
}

func newModel(sess *session) model {
	ti := textinput.New()
	ti.Placeholder = "2 * (3 + 4)"
	ti.Prompt = "› "
	ti.CharLimit = 4096
	ti.Width = 60
	ti.Focus()

	return model{
		session: sess,
		input:   ti,
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			return m.submit()

		case tea.KeyUp:
			m.recallPrev()
			return m, nil

		case tea.KeyDown:
			m.recallNext()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	m.notice = ""
	m.draft = ""

	if strings.TrimSpace(line) == "" {
		return m, nil
	}
	if n := len(m.recall); n == 0 || m.recall[n-1] != line {
		m.recall = append(m.recall, line)
	}
	m.recallPos = len(m.recall)

	switch parseCommand(line) {
	case cmdQuit:
		m.quitting = true
		return m, tea.Quit
	case cmdHelp:
		m.notice = helpText
		return m, nil
	case cmdClear:
		m.results = nil
		return m, nil
	}

	m.results = append(m.results, m.session.eval(line))
	if len(m.results) > maxScrollback {
		m.results = m.results[len(m.results)-maxScrollback:]
	}
	return m, nil
}

func (m *model) recallPrev() {
	if m.recallPos == 0 {
		return
	}
	if m.recallPos == len(m.recall) {
		m.draft = m.input.Value()
	}
	m.recallPos--
	m.input.SetValue(m.recall[m.recallPos])
	m.input.CursorEnd()
}

func (m *model) recallNext() {
	if m.recallPos >= len(m.recall) {
		return
	}
	m.recallPos++
	if m.recallPos == len(m.recall) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.recall[m.recallPos])
	}
	m.input.CursorEnd()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	wrap := max(20, m.width-4)
	var lines []string
	for _, r := range m.results {
		lines = append(lines, exprStyle.Render(wordwrap.String(r.expr, wrap)))
		if r.err != nil {
			lines = append(lines, errorStyle.Render(wordwrap.String(r.output, wrap)))
		} else {
			lines = append(lines, valueStyle.Render("= "+r.output))
		}
	}
	if m.notice != "" {
		lines = append(lines, hintStyle.Render(wordwrap.String(m.notice, wrap)))
	}

	// keep the newest lines that fit above the input box
	body := strings.Join(lines, "\n")
	if avail := m.height - 6; avail > 0 {
		rows := strings.Split(body, "\n")
		if len(rows) > avail {
			body = strings.Join(rows[len(rows)-avail:], "\n")
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("exprcalc"))
	b.WriteString("\n")
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString(inputBorder.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Enter to evaluate, ↑/↓ for history, :help, Esc to quit"))
	return b.String()
}
