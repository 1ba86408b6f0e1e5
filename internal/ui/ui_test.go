package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total, width int
		want               string
	}{
		{0, 0, 10, "░░░░░░░░░░   0%"},
		{1, 2, 10, "█████░░░░░  50%"},
		{3, 3, 5, "█████ 100%"},
		{1, 1, 1, "█████ 100%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProgressBar(tt.done, tt.total, tt.width))
	}
}

func TestNewTheme(t *testing.T) {
	assert.Equal(t, "classic", NewTheme("").Name)
	assert.Equal(t, "classic", NewTheme("unknown").Name)
	assert.Equal(t, "neon", NewTheme("NEON").Name)
	mono := NewTheme("mono")
	assert.Equal(t, "[x]", mono.BoxChecked)
	assert.NotEmpty(t, mono.Spinner.Frames)
}

func TestPanel(t *testing.T) {
	SetColorMode("never")
	out := NewTheme("mono").Panel([]string{"one", "three"})
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.Contains(t, lines[1], "one")
	assert.Contains(t, lines[2], "three")
}

func TestOutputHelpers(t *testing.T) {
	SetColorMode("never")
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "load: boom")
	Hint(&buf, "Hint: run `todo ls`")
	assert.Equal(t, "✔ added\n✖ load: boom\nHint: run `todo ls`\n", buf.String())
}
