package output

import (
	"fmt"
	"math"
	"strings"

	"example.com/intensity/internal/record"
)

// IntensityBar renders value on the 0-10 intensity scale as a bar of the given width, coloured
// by band. Example: "██████░░░░ 6.0"
func IntensityBar(value float64, band record.Band, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(math.Round(value / record.MaxIntensity * float64(width)))
	filled = max(0, min(filled, width))

	bar := Band(band, strings.Repeat("█", filled)) + Muted(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %4.1f", bar, value)
}

// CountBar renders count relative to total as a proportional bar.
func CountBar(count, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		filled = int(math.Round(float64(count) / float64(total) * float64(width)))
	}
	filled = max(0, min(filled, width))
	return fmt.Sprintf("%s%s %d", Header(strings.Repeat("█", filled)), Muted(strings.Repeat("░", width-filled)), count)
}
