package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/pkg/migration"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmationDialog_Navigation(t *testing.T) {
	d := NewConfirmationDialog("Reset", "Delete everything?")
	assert.False(t, d.YesSelected)

	d.Update(key("left"))
	assert.True(t, d.YesSelected)

	d.Update(key("right"))
	assert.False(t, d.YesSelected)

	d.Update(key("tab"))
	assert.True(t, d.YesSelected)

	d.Update(key("n"))
	assert.False(t, d.YesSelected)
}

func TestConfirmationDialog_Enter(t *testing.T) {
	var confirmed, cancelled int
	d := NewConfirmationDialog("Reset", "Delete everything?")
	d.OnConfirm = func() tea.Cmd { confirmed++; return nil }
	d.OnCancel = func() tea.Cmd { cancelled++; return nil }

	d.Update(key("enter"))
	assert.Equal(t, 0, confirmed)
	assert.Equal(t, 1, cancelled)

	d.Update(key("y"))
	d.Update(key("enter"))
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, cancelled)
}

func TestConfirmationDialog_View(t *testing.T) {
	view := NewConfirmationDialog("Reset", "Delete everything?").View()
	assert.Contains(t, view, "Reset")
	assert.Contains(t, view, "Delete everything?")
	assert.Contains(t, view, "Yes")
	assert.Contains(t, view, "No")
}

func TestConfirmModel(t *testing.T) {
	var m tea.Model = NewConfirmModel("Reset", "Delete everything?")

	m, _ = m.Update(key("left"))
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)

	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd)
	assert.True(t, m.(ConfirmModel).Confirmed())
	assert.Empty(t, m.View())
}

func TestConfirmModel_EscCancels(t *testing.T) {
	var m tea.Model = NewConfirmModel("Reset", "Delete everything?")

	m, _ = m.Update(key("left"))
	m, cmd := m.Update(key("esc"))
	require.NotNil(t, cmd)
	assert.False(t, m.(ConfirmModel).Confirmed())
}

func TestLogView_KeepsTail(t *testing.T) {
	l := NewLogView(2)
	assert.Contains(t, l.View(), "No logs")

	l.AddLog("one")
	l.AddLog("two")
	l.AddLog("three")
	assert.Equal(t, []string{"two", "three"}, l.Logs)
}

func TestFormatProgressBar(t *testing.T) {
	assert.Contains(t, FormatProgressBar(3, 11, 20), "3/11")
	assert.Contains(t, FormatProgressBar(20, 11, 20), "11/11")
	assert.NotContains(t, FormatProgressBar(0, 0, 10), "/")
}

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus("applied"), "✓")
	assert.Contains(t, FormatStatus("done"), "✓")
	assert.Contains(t, FormatStatus("pending"), "○")
	assert.Contains(t, FormatStatus("failed"), "✗")
	assert.Contains(t, FormatStatus("running"), "◉")
}

func TestMigrationItem(t *testing.T) {
	applied := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	reason := "relation \"users\" already exists\nQuery: CREATE TABLE users"

	tests := []struct {
		name   string
		record migration.MigrationRecord
		want   string
	}{
		{"pending", migration.MigrationRecord{Status: migration.StatusPending}, "Not applied"},
		{"applied", migration.MigrationRecord{Status: migration.StatusApplied, AppliedAt: &applied}, "Applied: 2025-03-03 12:00:00"},
		{"failed", migration.MigrationRecord{Status: migration.StatusFailed, Error: &reason}, `Failed: relation "users" already exists`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := migrationItem{record: tt.record}
			assert.Contains(t, item.Description(), tt.want)
			assert.NotContains(t, item.Description(), "Query:")
		})
	}

	item := migrationItem{record: migration.MigrationRecord{Version: "20240101000000", Name: "create_cinema_tables", Status: migration.StatusApplied}}
	assert.Equal(t, "create_cinema_tables", item.FilterValue())
	assert.Contains(t, item.Title(), "20240101000000 - create_cinema_tables")
}
