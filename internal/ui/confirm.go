package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel is a single yes/no question.
type ConfirmModel struct {
	question string
	keys     keyMap
	help     help.Model
	answered bool
	answer   bool
	aborted  bool
}

func NewConfirmModel(question string) ConfirmModel {
	return ConfirmModel{question: question, keys: newKeyMap(), help: help.New()}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.yes):
			m.answered, m.answer = true, true
			return m, tea.Quit
		case key.Matches(msg, m.keys.no):
			m.answered, m.answer = true, false
			return m, tea.Quit
		case key.Matches(msg, m.keys.quit):
			m.aborted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	var b strings.Builder
	b.WriteString(styles.Title(m.question))
	b.WriteString(" ")

	switch {
	case m.aborted:
		b.WriteString(styles.Warn("aborted"))
		b.WriteString("\n")
	case m.answered && m.answer:
		b.WriteString(styles.OK("yes"))
		b.WriteString("\n")
	case m.answered:
		b.WriteString(styles.Err("no"))
		b.WriteString("\n")
	default:
		b.WriteString(styles.Help("[y/N]"))
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
		b.WriteString("\n")
	}
	return b.String()
}

// Answer reports the choice and whether one was made.
func (m ConfirmModel) Answer() (yes, ok bool) {
	return m.answer, m.answered
}

// Confirm runs a [ConfirmModel] program reading keys from in and rendering to out.
// Quitting the prompt counts as a "no".
func Confirm(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	p := tea.NewProgram(
		NewConfirmModel(question),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	m, ok := final.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected prompt model %T", final)
	}
	return m.answer && !m.aborted, nil
}
