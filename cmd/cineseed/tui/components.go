package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/cinema-seed/pkg/migration"
)

// ConfirmationDialog is a yes/no prompt. Enter fires OnConfirm or OnCancel
// depending on the highlighted button.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
	OnConfirm   func() tea.Cmd
	OnCancel    func() tea.Cmd
}

// NewConfirmationDialog creates a dialog with "No" preselected.
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Update moves the selection or fires the chosen callback.
func (d *ConfirmationDialog) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "left", "h", "y":
		d.YesSelected = true
	case "right", "l", "n":
		d.YesSelected = false
	case "tab":
		d.YesSelected = !d.YesSelected
	case "enter":
		callback := d.OnCancel
		if d.YesSelected {
			callback = d.OnConfirm
		}
		if callback != nil {
			return callback()
		}
	}
	return nil
}

func button(label string, active bool) string {
	if active {
		return activeButtonStyle.Render(label)
	}
	return inactiveButtonStyle.Render(label)
}

// View renders the dialog
func (d ConfirmationDialog) View() string {
	buttons := lipgloss.JoinHorizontal(lipgloss.Left,
		button("Yes", d.YesSelected), "  ", button("No", !d.YesSelected))
	help := helpStyle.Render(strings.Join([]string{
		FormatKey("←/→", "choose"),
		FormatKey("enter", "confirm"),
		FormatKey("esc/q", "cancel"),
	}, " • "))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(d.Title), d.Message, "", buttons, help))
}

// migrationItem adapts a migration status record to the list component.
type migrationItem struct {
	record migration.MigrationRecord
}

func (i migrationItem) FilterValue() string { return i.record.Name }

func (i migrationItem) Title() string {
	return fmt.Sprintf("%s %s - %s", FormatStatus(string(i.record.Status)), i.record.Version, i.record.Name)
}

func (i migrationItem) Description() string {
	switch {
	case i.record.Status == migration.StatusFailed && i.record.Error != nil:
		return dangerStyle.Render("Failed: " + firstLine(*i.record.Error))
	case i.record.Status == migration.StatusApplied && i.record.AppliedAt != nil:
		return mutedStyle.Render("Applied: " + i.record.AppliedAt.Format("2006-01-02 15:04:05"))
	default:
		return mutedStyle.Render("Not applied")
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// migrationDelegate draws each migration on two lines with a cursor marker.
type migrationDelegate struct{}

func (migrationDelegate) Height() int                             { return 2 }
func (migrationDelegate) Spacing() int                            { return 1 }
func (migrationDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (migrationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(migrationItem)
	if !ok {
		return
	}

	style, cursor := unselectedItemStyle, "  "
	if index == m.Index() {
		style, cursor = selectedItemStyle, "▸ "
	}
	_, _ = fmt.Fprint(w, style.Render(cursor+i.Title()+"\n  "+i.Description()))
}

// ProgressView shows a titled progress bar with an optional caption.
type ProgressView struct {
	Title   string
	Current int
	Total   int
	Message string
}

// View renders the progress view
func (p ProgressView) View() string {
	parts := []string{titleStyle.Render(p.Title)}
	if p.Message != "" {
		parts = append(parts, infoStyle.Render(p.Message), "")
	}
	parts = append(parts, FormatProgressBar(p.Current, p.Total, 40))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// LogView keeps the last MaxLen entries.
type LogView struct {
	Logs   []string
	MaxLen int
}

// NewLogView creates a new log view
func NewLogView(maxLen int) LogView {
	return LogView{Logs: make([]string, 0, maxLen), MaxLen: maxLen}
}

// AddLog appends entry, dropping the oldest ones past MaxLen.
func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[len(l.Logs)-l.MaxLen:]
	}
}

// View renders the log view
func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No logs")
	}

	var b strings.Builder
	for _, entry := range l.Logs {
		b.WriteString(mutedStyle.Render("• ") + entry + "\n")
	}
	return boxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
