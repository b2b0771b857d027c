package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/intensity/internal/record"
)

func TestVisualLen(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", "hello", 5},
		{"empty", "", 0},
		{"ansi", "\x1b[1mhello\x1b[0m", 5},
		{"wide runes", "오전", 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, visualLen(tc.input))
		})
	}
}

func TestTableRender(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tbl := NewTable("Date", "Type")
	tbl.AddRow("2025-03-10", "Running")
	tbl.AddRow("2025-03-09")

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Date        Type   ", lines[0])
	assert.Contains(t, lines[1], "─")
	assert.Equal(t, "2025-03-10  Running", lines[2])
	assert.Equal(t, "", NewTable().Render())
}

func TestIntensityBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	assert.Equal(t, "██████░░░░  6.0", IntensityBar(6, record.BandModerate, 10))
	assert.Equal(t, "░░░░░░░░░░  0.0", IntensityBar(0, record.BandLow, 10))
	assert.Equal(t, "██████████ 12.0", IntensityBar(12, record.BandMax, 10))
}

func TestCountBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	assert.Equal(t, "█████░░░░░ 2", CountBar(2, 4, 10))
	assert.Equal(t, "░░░░░░░░░░ 0", CountBar(0, 0, 10))
}
