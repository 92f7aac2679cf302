// Package prompt asks for a value on the terminal until it passes
// validation or the user gives up.
package prompt

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the prompt with Esc or Ctrl+C.
var ErrCancelled = errors.New("prompt cancelled")

// Validator rejects an entered value with a message shown under the input.
type Validator func(string) error

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Model is a single-line prompt with validation and retry.
type Model struct {
	title     string
	input     textinput.Model
	validate  Validator
	err       error
	value     string
	done      bool
	cancelled bool
}

// New creates a focused prompt. validate may be nil.
func New(title, placeholder string, validate Validator) Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Width = 60
	input.Focus()

	if validate == nil {
		validate = func(string) error { return nil }
	}
	return Model{title: title, input: input, validate: validate}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if err := m.validate(value); err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.value = value
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("enter to confirm, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Value is the accepted input, empty until Enter passes validation.
func (m Model) Value() string { return m.value }

// Cancelled reports whether the user quit without a value.
func (m Model) Cancelled() bool { return m.cancelled }

// Err is the last validation failure.
func (m Model) Err() error { return m.err }

// Run shows the prompt on out, reading keys from in, and returns the first
// value that passes validate.
func Run(in io.Reader, out io.Writer, title, placeholder string, validate Validator) (string, error) {
	program := tea.NewProgram(New(title, placeholder, validate), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(Model)
	if !ok || m.cancelled || !m.done {
		return "", ErrCancelled
	}
	return m.value, nil
}
