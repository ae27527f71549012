package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel is a standalone yes/no prompt.
type ConfirmModel struct {
	dialog    ConfirmationDialog
	confirmed bool
	answered  bool
}

type answerMsg bool

// NewConfirmModel creates a prompt with "No" preselected.
func NewConfirmModel(title, message string) ConfirmModel {
	d := NewConfirmationDialog(title, message)
	d.OnConfirm = func() tea.Cmd { return func() tea.Msg { return answerMsg(true) } }
	d.OnCancel = func() tea.Cmd { return func() tea.Msg { return answerMsg(false) } }
	return ConfirmModel{dialog: d}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case answerMsg:
		m.confirmed = bool(msg)
		m.answered = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.answered = true
			return m, tea.Quit
		}
	}
	return m, m.dialog.Update(msg)
}

// View renders the dialog until an answer is given.
func (m ConfirmModel) View() string {
	if m.answered {
		return ""
	}
	return m.dialog.View()
}

// Confirmed reports whether the user chose "Yes".
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// Confirm asks a yes/no question on the terminal.
func Confirm(title, message string) (bool, error) {
	final, err := tea.NewProgram(NewConfirmModel(title, message)).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}
