package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestDump(t *testing.T) {
	buf := capture(t)

	require.NoError(t, Dump("Diretores", map[string]any{"name": "Lucas Arthuro", "_count": map[string]int{"movies": 1}}))

	text := buf.String()
	assert.Contains(t, text, "Diretores:")
	assert.Contains(t, text, `"name": "Lucas Arthuro"`)
	assert.Contains(t, text, `"movies": 1`)
}

func TestDump_Nil(t *testing.T) {
	buf := capture(t)

	require.NoError(t, Dump("Nada", nil))
	assert.Contains(t, buf.String(), "(none)")
}

func TestJSON_IsParseable(t *testing.T) {
	buf := capture(t)

	require.NoError(t, JSON([]int{1, 2, 3}))

	var got []int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestSection(t *testing.T) {
	buf := capture(t)

	Section("Status")
	assert.Contains(t, buf.String(), "Status")
	assert.Contains(t, buf.String(), "══════")
}

func TestStatusIcon(t *testing.T) {
	assert.Contains(t, StatusIcon("applied"), "✓")
	assert.Contains(t, StatusIcon("pending"), "○")
	assert.Contains(t, StatusIcon("failed"), "✗")
	assert.Contains(t, StatusIcon("other"), "•")
}
