package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/marshallshelly/cinema-seed/pkg/migration"
)

// Migrator is the part of *migration.Executor the migration UI drives.
type Migrator interface {
	Initialize(ctx context.Context) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	GetStatus(ctx context.Context, migrations []migration.Migration) ([]migration.MigrationRecord, error)
	Apply(ctx context.Context, m migration.Migration, dryRun bool) error
	Rollback(ctx context.Context, m migration.Migration, dryRun bool) error
}

// Mode is the screen a model is showing.
type Mode int

const (
	ModeList Mode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrateModel lists the embedded migrations and applies or rolls back the
// selected one after confirmation.
type MigrateModel struct {
	ctx          context.Context
	mode         Mode
	action       string // "up" or "down"
	list         list.Model
	confirmation ConfirmationDialog
	progress     ProgressView
	logs         LogView
	err          error
	width        int
	height       int
	migrator     Migrator
	migrations   []migration.Migration
	status       []migration.MigrationRecord
	selected     int
}

// NewMigrateModel creates a migration UI for action ("up" or "down").
func NewMigrateModel(ctx context.Context, action string, migrator Migrator, migrations []migration.Migration) MigrateModel {
	l := list.New([]list.Item{}, migrationDelegate{}, 0, 0)
	l.Title = "Cinema Schema Migrations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return MigrateModel{
		ctx:        ctx,
		mode:       ModeList,
		action:     action,
		list:       l,
		logs:       NewLogView(10),
		migrator:   migrator,
		migrations: migrations,
		selected:   -1,
	}
}

// Init loads the migration status.
func (m MigrateModel) Init() tea.Cmd {
	return loadStatusCmd(m.ctx, m.migrator, m.migrations)
}

type statusLoadedMsg struct {
	status []migration.MigrationRecord
}

type migrationExecutedMsg struct {
	version string
	err     error
}

type confirmedMsg struct{}

type cancelledMsg struct{}

type errorMsg struct {
	err error
}

func loadStatusCmd(ctx context.Context, migrator Migrator, migrations []migration.Migration) tea.Cmd {
	return func() tea.Msg {
		if err := migrator.Initialize(ctx); err != nil {
			return errorMsg{err: fmt.Errorf("failed to initialize migrations: %w", err)}
		}
		status, err := migrator.GetStatus(ctx, migrations)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to get migration status: %w", err)}
		}
		return statusLoadedMsg{status: status}
	}
}

// executeMigrationCmd holds the advisory lock for the duration of one migration.
func executeMigrationCmd(ctx context.Context, migrator Migrator, mig migration.Migration, action string) tea.Cmd {
	return func() tea.Msg {
		if err := migrator.Lock(ctx); err != nil {
			return migrationExecutedMsg{version: mig.Version, err: err}
		}
		defer func() { _ = migrator.Unlock(ctx) }()

		var err error
		if action == "up" {
			err = migrator.Apply(ctx, mig, false)
		} else {
			err = migrator.Rollback(ctx, mig, false)
		}
		return migrationExecutedMsg{version: mig.Version, err: err}
	}
}

// canExecute reports whether the migration at idx is a valid target: any
// unapplied one for up, only the latest applied one for down.
func (m MigrateModel) canExecute(idx int) bool {
	if idx < 0 || idx >= len(m.status) {
		return false
	}
	if m.action == "up" {
		return m.status[idx].Status != migration.StatusApplied
	}
	if m.status[idx].Status != migration.StatusApplied {
		return false
	}
	for _, later := range m.status[idx+1:] {
		if later.Status == migration.StatusApplied {
			return false
		}
	}
	return true
}

// Update handles messages
func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case statusLoadedMsg:
		m.status = msg.status
		items := make([]list.Item, len(msg.status))
		for i, record := range msg.status {
			items[i] = migrationItem{record: record}
		}
		return m, m.list.SetItems(items)

	case confirmedMsg:
		mig := m.migrations[m.selected]
		m.mode = ModeExecuting
		m.progress = ProgressView{
			Title:   "Migration Progress",
			Total:   1,
			Message: fmt.Sprintf("Executing: %s - %s", mig.Version, mig.Name),
		}
		return m, executeMigrationCmd(m.ctx, m.migrator, mig, m.action)

	case cancelledMsg:
		m.mode = ModeList
		m.selected = -1
		return m, nil

	case migrationExecutedMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			m.logs.AddLog(dangerStyle.Render("Failed: " + msg.version + " - " + msg.err.Error()))
			return m, nil
		}
		m.logs.AddLog(successStyle.Render("✓ Completed: " + msg.version))
		m.progress.Current++
		m.mode = ModeComplete
		return m, nil

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.list.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit

			case "enter", " ":
				idx := m.list.Index()
				if !m.canExecute(idx) {
					return m, nil
				}

				m.selected = idx
				m.confirmation = NewConfirmationDialog(
					fmt.Sprintf("Confirm Migration %s", strings.ToUpper(m.action)),
					fmt.Sprintf("Are you sure you want to %s migration:\n%s - %s",
						m.action, m.status[idx].Version, m.status[idx].Name),
				)
				m.confirmation.OnConfirm = func() tea.Cmd { return func() tea.Msg { return confirmedMsg{} } }
				m.confirmation.OnCancel = func() tea.Cmd { return func() tea.Msg { return cancelledMsg{} } }
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				m.selected = -1
				return m, nil
			default:
				return m, m.confirmation.Update(msg)
			}

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Err returns the error that ended the session, if any.
func (m MigrateModel) Err() error {
	return m.err
}

// View renders the UI
func (m MigrateModel) View() string {
	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", m.action) + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeConfirm:
		return m.place(m.confirmation.View())

	case ModeExecuting:
		return m.place(lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "\n", m.logs.View()))

	case ModeComplete:
		verb := lo.Ternary(m.action == "up", "applied", "rolled back")
		msg := titleStyle.Render("Migration Complete!") + "\n\n" +
			successStyle.Render(fmt.Sprintf("Successfully %s %d migration(s)", verb, m.progress.Current)) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return m.place(boxStyle.Render(msg))

	case ModeError:
		msg := titleStyle.Render("Migration Failed") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return m.place(boxStyle.Render(msg))
	}

	return "Unknown mode"
}

func (m MigrateModel) place(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// RunMigrateUI starts the interactive migration UI and returns the error
// that ended it, if any.
func RunMigrateUI(ctx context.Context, action string, migrator Migrator, migrations []migration.Migration) error {
	p := tea.NewProgram(NewMigrateModel(ctx, action, migrator, migrations), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(MigrateModel); ok {
		return fm.Err()
	}
	return nil
}
