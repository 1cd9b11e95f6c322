// Package tui is the interactive terminal front end over a joining session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/session"
	"codejoiner/pkg/status"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	kindStyle    = lipgloss.NewStyle().Bold(true).Width(12)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// refreshInterval re-renders the view so expired status messages disappear.
const refreshInterval = time.Second

// --- Messages ---
type opDoneMsg struct{ err error }

type refreshMsg time.Time

// --- Model ---
type mode int

const (
	modeNormal mode = iota
	modeAddPaths
	modePickLoad
	modePickSave
)

// Config holds what the model needs besides the session.
type Config struct {
	Session     *session.Session
	Board       *status.Board
	Remote      *remote.Backend // nil when no remote storage is configured
	DownloadDir string
}

// Model is the bubbletea model of an interactive session.
type Model struct {
	cfg        Config
	spinner    spinner.Model
	input      textinput.Model
	mode       mode
	busy       bool
	previewURL string
}

// New returns a Model over cfg.Session.
func New(cfg Config) Model {
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	in := textinput.New()
	in.CharLimit = 4096
	in.Width = 60

	return Model{cfg: cfg, spinner: s, input: in}
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode != modeNormal {
			return m.updatePrompt(msg)
		}
		if m.busy {
			return m, nil
		}
		return m.updateNormal(msg)

	case opDoneMsg:
		m.busy = false
		return m, nil

	case refreshMsg:
		return m, refresh()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.cfg.Session
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "a":
		return m.openPrompt(modeAddPaths, "paths (space separated)")
	case "j":
		_, _ = sess.Join()
	case "c":
		_ = sess.Copy()
	case "d":
		_, _ = sess.Download(m.cfg.DownloadDir)
	case "p":
		if url, err := sess.Preview(); err == nil {
			m.previewURL = url
		}
	case "x":
		_ = sess.ClosePreview()
		m.previewURL = ""
	case "l":
		if m.cfg.Remote == nil {
			_, _ = sess.LoadRemote(context.Background())
			return m, nil
		}
		return m.openPrompt(modePickLoad, "remote folder to load")
	case "s":
		if sess.Document() == "" || m.cfg.Remote == nil {
			_, _ = sess.SaveRemote(context.Background())
			return m, nil
		}
		return m.openPrompt(modePickSave, "remote folder to save into")
	case "1", "2", "3":
		sess.Remove(combine.Kinds[msg.String()[0]-'1'])
	case "C":
		sess.Clear()
	}
	return m, nil
}

func (m Model) openPrompt(md mode, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.Reset()
	m.input.Placeholder = placeholder
	return m, m.input.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.submitPrompt("")
	case tea.KeyEnter:
		return m.submitPrompt(strings.TrimSpace(m.input.Value()))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitPrompt runs the action behind the prompt. An empty value on a folder
// prompt reaches the session as a cancelled selection.
func (m Model) submitPrompt(value string) (tea.Model, tea.Cmd) {
	md := m.mode
	m.mode = modeNormal
	m.input.Blur()

	sess := m.cfg.Session
	var run func() error
	switch md {
	case modeAddPaths:
		if value == "" {
			return m, nil
		}
		paths := strings.Fields(value)
		run = func() error {
			_, err := sess.LoadFiles(context.Background(), paths)
			return err
		}
	case modePickLoad:
		m.cfg.Remote.Picker = remote.StaticPicker{Folder: value}
		run = func() error {
			_, err := sess.LoadRemote(context.Background())
			return err
		}
	case modePickSave:
		m.cfg.Remote.Picker = remote.StaticPicker{Folder: value}
		run = func() error {
			_, err := sess.SaveRemote(context.Background())
			return err
		}
	default:
		return m, nil
	}

	m.busy = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return opDoneMsg{err: run()}
	})
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("codejoiner"))
	b.WriteString("\n\n")
	b.WriteString(panelStyle.Render(m.renderFiles()))
	b.WriteString("\n")

	if m.previewURL != "" {
		b.WriteString(fmt.Sprintf("Preview: %s\n", m.previewURL))
	}
	if doc := m.cfg.Session.Document(); doc != "" {
		b.WriteString(faintStyle.Render(fmt.Sprintf("Combined document: %s", session.FormatFileSize(int64(len(doc))))))
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(m.spinner.View() + " Working...\n")
	}
	if msg, ok := m.cfg.Board.Current(); ok {
		b.WriteString(renderStatus(msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.mode != modeNormal {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(faintStyle.Render("enter confirm • esc cancel"))
	} else {
		b.WriteString(faintStyle.Render("a add • j join • c copy • d download • p preview • x close preview • l load remote • s save remote • 1/2/3 remove • C clear • q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderFiles() string {
	set := m.cfg.Session.Sources()
	var lines []string
	for i, kind := range combine.Kinds {
		label := kindStyle.Render(fmt.Sprintf("%d %s", i+1, kind))
		if src := set.Get(kind); src != nil {
			lines = append(lines, fmt.Sprintf("%s %s %s", label, src.Name, faintStyle.Render("("+session.FormatFileSize(src.Size)+")")))
		} else {
			lines = append(lines, label+faintStyle.Render(" empty"))
		}
	}
	return strings.Join(lines, "\n")
}

func renderStatus(msg status.Message) string {
	switch msg.Level {
	case status.Success:
		return successStyle.Render(msg.Text)
	case status.Error:
		return errorStyle.Render(msg.Text)
	default:
		return infoStyle.Render(msg.Text)
	}
}
