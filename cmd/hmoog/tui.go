package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SarahIsWeird/hmoog"
	"github.com/SarahIsWeird/hmoog/internal/prefs"
	"github.com/SarahIsWeird/hmoog/markup"
)

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	echoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	backlogStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")).Padding(0, 1)
	hardlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1).Bold(true)
)

// resultMsg delivers the outcome of one command cycle back to the model.
type resultMsg struct {
	command string
	res     *hmoog.Result
	err     error
}

// hardlineMsg delivers the outcome of a hardline transition.
type hardlineMsg struct {
	entering bool
	out      hmoog.HardlineOutcome
	err      error
}

type model struct {
	ctx     context.Context
	session *hmoog.Session

	prefs     prefs.Prefs
	prefsPath string
	histIdx   int
	draft     string

	input textinput.Model
	view  viewport.Model
	spin  spinner.Model

	history []string
	busy    bool
	pending string
	ready   bool
	width   int
	height  int
}

func newModel(ctx context.Context, session *hmoog.Session, userPrefs prefs.Prefs, prefsPath string, transcript []string) model {
	input := textinput.New()
	input.Prompt = "» "
	input.Placeholder = "command"
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := model{
		ctx:       ctx,
		session:   session,
		prefs:     userPrefs,
		prefsPath: prefsPath,
		histIdx:   len(userPrefs.History),
		input:     input,
		spin:      spin,
	}
	for _, raw := range transcript {
		m.history = append(m.history, backlogStyle.Render(stripMarkup(raw)))
	}
	return m
}

// stripMarkup renders a raw shell log line as plain text, passing unparseable
// lines through untouched.
func stripMarkup(raw string) string {
	nodes, err := markup.Parse(raw)
	if err != nil {
		return raw
	}
	return markup.Plain(nodes, markup.Options{})
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = vpHeight
		}
		m.refreshView()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			// Best effort; losing prefs must not block quitting.
			_ = prefs.Save(m.prefsPath, m.prefs)
			return m, tea.Quit
		case "ctrl+t":
			if m.prefs.View == "clean" {
				m.prefs.View = "ansi"
			} else {
				m.prefs.View = "clean"
			}
			return m, nil
		case "ctrl+h":
			if m.busy {
				return m, nil
			}
			m.busy = true
			entering := !m.session.HardlineActive()
			if entering {
				m.pending = "entering hardline"
			} else {
				m.pending = "leaving hardline"
			}
			return m, tea.Batch(m.spin.Tick, m.hardlineCmd(entering))
		case "up":
			m.recallOlder()
			return m, nil
		case "down":
			m.recallNewer()
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			command := strings.TrimSpace(m.input.Value())
			if command == "" {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.pending = command
			m.prefs.AddHistory(command)
			m.histIdx = len(m.prefs.History)
			m.draft = ""
			m.appendLine(echoStyle.Render("» " + command))
			return m, tea.Batch(m.spin.Tick, m.runCmd(command))
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case resultMsg:
		m.busy = false
		m.pending = ""
		switch {
		case msg.err != nil:
			m.appendLine(errorStyle.Render("error: " + msg.err.Error()))
		case msg.res == nil:
			m.appendLine(noticeStyle.Render("timed out: " + msg.command))
		default:
			lines := msg.res.ANSI.Lines
			if m.prefs.View == "clean" {
				lines = msg.res.Clean.Lines
			}
			for _, line := range lines {
				m.appendLine(line)
			}
		}
		return m, nil

	case hardlineMsg:
		m.busy = false
		m.pending = ""
		switch {
		case msg.err != nil:
			m.appendLine(errorStyle.Render("hardline: " + msg.err.Error()))
		case msg.entering && !msg.out.Active:
			if msg.out.Cooldown > 0 {
				m.appendLine(noticeStyle.Render(
					fmt.Sprintf("hardline on cooldown, retry in %s", msg.out.Cooldown.Round(time.Second))))
			} else {
				m.appendLine(noticeStyle.Render("hardline activation not confirmed"))
			}
		case msg.entering:
			m.appendLine(noticeStyle.Render("hardline active"))
		case msg.out.Active:
			m.appendLine(noticeStyle.Render("hardline disconnect not confirmed"))
		default:
			m.appendLine(noticeStyle.Render("hardline disconnected"))
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}
	var b strings.Builder
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spin.View() + " " + m.pending)
	} else {
		b.WriteString(promptStyle.Render(m.input.View()))
	}
	return b.String()
}

func (m model) renderStatusBar() string {
	mode := statusStyle.Render("LOCAL")
	if m.session.HardlineActive() {
		mode = hardlineStyle.Render("HARDLINE")
	}
	view := statusStyle.Render("view: " + m.prefs.View)
	hints := statusStyle.Render("enter: run  ctrl+h: hardline  ctrl+t: view  ctrl+c: quit")
	left := mode + " " + view
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hints)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + hints
}

// recallOlder steps backward through the command history, stashing whatever
// was typed so recallNewer can restore it.
func (m *model) recallOlder() {
	if m.histIdx == 0 || len(m.prefs.History) == 0 {
		return
	}
	if m.histIdx == len(m.prefs.History) {
		m.draft = m.input.Value()
	}
	m.histIdx--
	m.input.SetValue(m.prefs.History[m.histIdx])
	m.input.CursorEnd()
}

func (m *model) recallNewer() {
	if m.histIdx >= len(m.prefs.History) {
		return
	}
	m.histIdx++
	if m.histIdx == len(m.prefs.History) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.prefs.History[m.histIdx])
	}
	m.input.CursorEnd()
}

func (m *model) appendLine(line string) {
	m.history = append(m.history, line)
	m.refreshView()
}

func (m *model) refreshView() {
	if !m.ready {
		return
	}
	m.view.SetContent(strings.Join(m.history, "\n"))
	m.view.GotoBottom()
}

func (m model) runCmd(command string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.session.Run(m.ctx, command, hmoog.RunOptions{})
		return resultMsg{command: command, res: res, err: err}
	}
}

func (m model) hardlineCmd(entering bool) tea.Cmd {
	return func() tea.Msg {
		var (
			out hmoog.HardlineOutcome
			err error
		)
		if entering {
			out, err = m.session.EnterHardline(m.ctx)
		} else {
			out, err = m.session.ExitHardline(m.ctx)
		}
		return hardlineMsg{entering: entering, out: out, err: err}
	}
}
