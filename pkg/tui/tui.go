// Package tui provides a terminal user interface for the lead sheet builder
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet"
	"github.com/ito55/smf-leadsheet-builder/pkg/musicxml"
)

// Manuscript-inspired color scheme (brass and ivory)
var (
	// Primary colors - brass gold and ivory
	brassGold = lipgloss.Color("#D4AF37")
	warnAmber = lipgloss.Color("#FFBF00")
	ivory     = lipgloss.Color("#FFFFF0")
	darkGray  = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brassGold).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	fileStyle = lipgloss.NewStyle().
			Foreground(ivory).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(warnAmber).
			PaddingTop(1)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnAmber).
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brassGold).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brassGold).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StatePickChord State = iota
	StatePickMelody
	StateBuilding
	StateResult
)

// Model represents the TUI model
type Model struct {
	state      State
	filePicker filepicker.Model
	spinner    spinner.Model
	chordFile  string
	melodyFile string
	outputFile string
	warnings   []leadsheet.Warning
	err        error
	width      int
	height     int
}

// buildDoneMsg signals build completion
type buildDoneMsg struct {
	outputFile string
	warnings   []leadsheet.Warning
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.filePicker.Init(), m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brassGold)

	return Model{
		state:      StatePickChord,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker states first - the picker needs to receive all messages
	if m.state == StatePickChord || m.state == StatePickMelody {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				if m.state == StatePickMelody {
					m.state = StatePickChord
					m.chordFile = ""
					return m, nil
				}
				return m, tea.Quit
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			if m.state == StatePickChord {
				m.chordFile = path
				m.state = StatePickMelody
				return m, cmd
			}
			m.melodyFile = path
			m.state = StateBuilding
			return m, tea.Batch(m.spinner.Tick, m.performBuild())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		if m.state == StateResult {
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case buildDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.warnings = msg.warnings
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StatePickChord
		m.chordFile = ""
		m.melodyFile = ""
		m.outputFile = ""
		m.warnings = nil
		m.err = nil
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performBuild() tea.Cmd {
	return func() tea.Msg {
		score, warnings, err := leadsheet.BuildFiles(m.chordFile, m.melodyFile, leadsheet.Options{})
		if err != nil {
			return buildDoneMsg{warnings: warnings, err: err}
		}

		// Output lands next to the melody file
		base := strings.TrimSuffix(m.melodyFile, filepath.Ext(m.melodyFile))
		outputFile := base + ".musicxml"

		if err := musicxml.WriteFile(outputFile, score); err != nil {
			return buildDoneMsg{warnings: warnings, err: err}
		}

		return buildDoneMsg{outputFile: outputFile, warnings: warnings}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StatePickChord:
		s.WriteString(m.viewFilePicker("CHORD (XF)"))
	case StatePickMelody:
		s.WriteString(m.viewFilePicker("MELODY"))
	case StateBuilding:
		s.WriteString(m.viewBuilding())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewFilePicker(role string) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", role)))
	s.WriteString("\n\n")
	if m.chordFile != "" {
		s.WriteString(fileStyle.Render("Chords: " + filepath.Base(m.chordFile)))
		s.WriteString("\n\n")
	}
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back"))

	return s.String()
}

func (m Model) viewBuilding() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" BUILDING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Merging %s + %s...\n", m.spinner.View(),
		filepath.Base(m.chordFile), filepath.Base(m.melodyFile)))
	s.WriteString(statusStyle.Render("  chords + melody → lead sheet"))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Build failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Lead sheet written!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Chords: %s\n", filepath.Base(m.chordFile)))
		s.WriteString(fmt.Sprintf("Melody: %s\n", filepath.Base(m.melodyFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
		if len(m.warnings) > 0 {
			s.WriteString("\n\n")
			s.WriteString(statusStyle.Render(fmt.Sprintf("%d warning(s):", len(m.warnings))))
			for _, w := range m.warnings {
				s.WriteString("\n")
				s.WriteString(warningStyle.Render("• " + w.String()))
			}
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   _     _____    _    ____  ____  _   _ _____ _____ _____
  | |   | ____|  / \  |  _ \/ ___|| | | | ____| ____|_   _|
  | |   |  _|   / _ \ | | | \___ \| |_| |  _| |  _|   | |
  | |___| |___ / ___ \| |_| |___) |  _  | |___| |___  | |
  |_____|_____/_/   \_\____/|____/|_| |_|_____|_____| |_|
`
	return lipgloss.NewStyle().Foreground(brassGold).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
