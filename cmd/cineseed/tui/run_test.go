package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/pkg/seed"
)

func TestRunModel_Steps(t *testing.T) {
	events := make(chan tea.Msg, 1)
	var m tea.Model = NewRunModel(events)
	steps := seed.Steps()

	m, cmd := m.Update(stepDoneMsg{name: steps[0].Name, title: steps[0].Title})
	require.NotNil(t, cmd)

	rm := m.(RunModel)
	assert.Equal(t, 1, rm.progress.Current)
	assert.Equal(t, steps[1].Title, rm.progress.Message)
	assert.False(t, rm.Finished())

	// A repeated step does not advance the bar twice.
	m, _ = m.Update(stepDoneMsg{name: steps[0].Name, title: steps[0].Title})
	assert.Equal(t, 1, m.(RunModel).progress.Current)

	// The pump returns whatever arrives next.
	events <- stepDoneMsg{name: steps[1].Name, title: steps[1].Title}
	assert.Equal(t, stepDoneMsg{name: steps[1].Name, title: steps[1].Title}, cmd())
}

func TestRunModel_Done(t *testing.T) {
	var m tea.Model = NewRunModel(make(chan tea.Msg))
	rep := &seed.Report{RunID: "abc"}

	m, _ = m.Update(runDoneMsg{report: rep})
	rm := m.(RunModel)
	require.True(t, rm.Finished())
	got, err := rm.Result()
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Contains(t, rm.View(), "Run finished")

	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRunModel_Failure(t *testing.T) {
	var m tea.Model = NewRunModel(make(chan tea.Msg))
	boom := errors.New("step reset: boom")

	m, _ = m.Update(runDoneMsg{err: boom})
	rm := m.(RunModel)
	require.True(t, rm.Finished())
	_, err := rm.Result()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, rm.View(), "Run failed")
	assert.Contains(t, rm.View(), "boom")
}

func TestRunModel_EnterIgnoredWhileRunning(t *testing.T) {
	var m tea.Model = NewRunModel(make(chan tea.Msg))

	_, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd)
}
