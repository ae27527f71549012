package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/cinema-seed/pkg/seed"
)

// RunFunc executes a seed run, reporting each finished step to reporter.
type RunFunc func(ctx context.Context, reporter seed.Reporter) (*seed.Report, error)

type stepDoneMsg struct {
	name  string
	title string
}

type runDoneMsg struct {
	report *seed.Report
	err    error
}

// RunModel shows the seed steps ticking off while a run executes elsewhere.
// Events arrive on a channel fed by the run's reporter.
type RunModel struct {
	mode     Mode
	spinner  spinner.Model
	progress ProgressView
	steps    []seed.StepInfo
	done     map[string]bool
	events   <-chan tea.Msg
	report   *seed.Report
	err      error
	width    int
	height   int
}

// NewRunModel creates a progress model reading from events.
func NewRunModel(events <-chan tea.Msg) RunModel {
	steps := seed.Steps()
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	return RunModel{
		mode:    ModeExecuting,
		spinner: s,
		progress: ProgressView{
			Title:   "Cinema Seed",
			Total:   len(steps),
			Message: steps[0].Title,
		},
		steps:  steps,
		done:   make(map[string]bool, len(steps)),
		events: events,
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Init starts the spinner and the event pump.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeExecuting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepDoneMsg:
		if !m.done[msg.name] {
			m.done[msg.name] = true
			m.progress.Current++
		}
		if next, ok := m.nextStep(); ok {
			m.progress.Message = next.Title
		}
		return m, waitForEvent(m.events)

	case runDoneMsg:
		m.report = msg.report
		m.err = msg.err
		if msg.err != nil {
			m.mode = ModeError
		} else {
			m.mode = ModeComplete
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.mode != ModeExecuting {
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

func (m RunModel) nextStep() (seed.StepInfo, bool) {
	for _, step := range m.steps {
		if !m.done[step.Name] {
			return step, true
		}
	}
	return seed.StepInfo{}, false
}

// Finished reports whether the run delivered its result.
func (m RunModel) Finished() bool {
	return m.mode == ModeComplete || m.mode == ModeError
}

// Result returns what the run produced once Finished is true.
func (m RunModel) Result() (*seed.Report, error) {
	return m.report, m.err
}

// checklist renders one line per step: done, in progress, failed or pending.
func (m RunModel) checklist() string {
	current, _ := m.nextStep()
	lines := make([]string, 0, len(m.steps))
	for _, step := range m.steps {
		var icon string
		switch {
		case m.done[step.Name]:
			icon = statusDoneStyle.Render()
		case step.Name != current.Name:
			icon = statusPendingStyle.Render()
		case m.mode == ModeExecuting:
			icon = m.spinner.View()
		case m.mode == ModeError:
			icon = statusFailedStyle.Render()
		default:
			icon = statusPendingStyle.Render()
		}
		lines = append(lines, icon+" "+step.Title)
	}
	return strings.Join(lines, "\n")
}

// View renders the UI
func (m RunModel) View() string {
	var footer string
	switch m.mode {
	case ModeExecuting:
		footer = helpStyle.Render(FormatKey("q", "abort"))
	case ModeComplete:
		footer = successStyle.Render(fmt.Sprintf("Run finished: %d steps", m.progress.Current)) + "\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
	case ModeError:
		footer = dangerStyle.Render("Run failed") + "\n" +
			errorStyle.Render(m.err.Error()) + "\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "", m.checklist(), "", footer)
	if m.width == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

// ErrAborted is returned when the UI is closed before the run finished.
var ErrAborted = errors.New("run aborted")

// RunSeedUI executes run in the background while showing its progress. If
// the UI is closed early the run is cancelled and awaited before returning.
func RunSeedUI(ctx context.Context, run RunFunc) (*seed.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One slot per step plus the final result, so the run never blocks on a
	// UI that has already quit.
	events := make(chan tea.Msg, len(seed.Steps())+1)
	reporter := seed.ReporterFunc(func(name, title string, _ any) {
		select {
		case events <- stepDoneMsg{name: name, title: title}:
		default:
		}
	})

	finished := make(chan runDoneMsg, 1)
	go func() {
		rep, err := run(ctx, reporter)
		done := runDoneMsg{report: rep, err: err}
		finished <- done
		events <- done
	}()

	final, err := tea.NewProgram(NewRunModel(events), tea.WithContext(ctx)).Run()
	if fm, ok := final.(RunModel); ok && fm.Finished() {
		rep, runErr := fm.Result()
		return rep, runErr
	}

	cancel()
	result := <-finished
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return result.report, err
	}
	if result.err != nil {
		return result.report, result.err
	}
	return result.report, ErrAborted
}
