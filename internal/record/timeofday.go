package record

import (
	"fmt"
	"strings"
)

// TimeOfDay is the daypart in which a workout happened.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Night     TimeOfDay = "night"
	Scattered TimeOfDay = "scattered"
)

// TimesOfDay lists every daypart in display order.
var TimesOfDay = [...]TimeOfDay{Morning, Afternoon, Night, Scattered}

// aliases maps the labels used by the legacy mobile client onto the canonical values.
var aliases = map[string]TimeOfDay{
	"오전":  Morning,
	"오후":  Afternoon,
	"야간":  Night,
	"틈틈이": Scattered,
}

// ParseTimeOfDay resolves a canonical value (case-insensitive) or a legacy label.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t := normalizeTimeOfDay(value)
	if !t.Valid() {
		return "", fmt.Errorf("unknown time of day %q", value)
	}
	return t, nil
}

// Valid reports whether t is one of the canonical dayparts.
func (t TimeOfDay) Valid() bool {
	switch t {
	case Morning, Afternoon, Night, Scattered:
		return true
	}
	return false
}

// UnmarshalText normalises legacy labels. Unknown values are kept verbatim so that Validate can
// report them.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	*t = normalizeTimeOfDay(string(text))
	return nil
}

func normalizeTimeOfDay(value string) TimeOfDay {
	trimmed := strings.TrimSpace(value)
	if alias, ok := aliases[trimmed]; ok {
		return alias
	}
	lowered := TimeOfDay(strings.ToLower(trimmed))
	if lowered.Valid() {
		return lowered
	}
	return TimeOfDay(trimmed)
}
