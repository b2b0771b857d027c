package record

import "fmt"

// Band is the display classification of an intensity value.
type Band string

const (
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
	BandMax      Band = "max"
)

// Thresholds are the inclusive upper bounds of the low, moderate and high bands.
type Thresholds struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// DefaultThresholds matches the colour scale of the mobile client.
var DefaultThresholds = Thresholds{Low: 3, Mid: 6, High: 8}

// Classify maps an intensity onto its band.
func (t Thresholds) Classify(intensity int) Band {
	switch {
	case intensity <= t.Low:
		return BandLow
	case intensity <= t.Mid:
		return BandModerate
	case intensity <= t.High:
		return BandHigh
	default:
		return BandMax
	}
}

// Validate ensures the cut points are ordered and inside the intensity range.
func (t Thresholds) Validate() error {
	if t.Low < MinIntensity || t.High > MaxIntensity || t.Low > t.Mid || t.Mid > t.High {
		return fmt.Errorf("intensity thresholds must satisfy %d <= low <= mid <= high <= %d, got %d/%d/%d",
			MinIntensity, MaxIntensity, t.Low, t.Mid, t.High)
	}
	return nil
}
