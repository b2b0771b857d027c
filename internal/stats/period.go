package stats

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"example.com/intensity/internal/record"
)

// Period selects the creation-time window a report covers.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ErrInvalidPeriod is returned by ParsePeriod for an unknown period name.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod resolves a period name; the empty string means PeriodWeek.
func ParsePeriod(value string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PeriodWeek, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w %q (day, week, month, year)", ErrInvalidPeriod, value)
	}
}

// Days is the number of calendar days compared by Compare for the period.
func (p Period) Days() int {
	switch p {
	case PeriodDay:
		return 1
	case PeriodMonth:
		return 30
	case PeriodYear:
		return 365
	default:
		return TrendDays
	}
}

// Start returns the inclusive lower bound of the window ending at now. PeriodDay starts at
// local midnight; the others reach back a fixed number of days.
func (p Period) Start(now time.Time) time.Time {
	if p == PeriodDay {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
	return now.AddDate(0, 0, -p.Days())
}

// Report is a Summary restricted to a period plus the period-only extras.
type Report struct {
	Summary
	Period                   Period      `json:"period"`
	TotalIntensityScore      int         `json:"total_intensity_score"`
	ExerciseTypeDistribution []TypeCount `json:"exercise_type_distribution"`
}

// TypeCount is the number of records of one exercise type.
type TypeCount struct {
	ExerciseType string `json:"exercise_type"`
	Count        int    `json:"count"`
}

// BuildReport computes the Summary of the records created inside the period window.
func BuildReport(records []record.Record, period Period, now time.Time) Report {
	windowed := CreatedSince(records, period.Start(now))
	return Report{
		Summary:                  Compute(windowed, now),
		Period:                   period,
		TotalIntensityScore:      TotalIntensity(windowed),
		ExerciseTypeDistribution: Distribution(windowed),
	}
}

// CreatedSince returns the records whose CreatedAt is at or after start, in input order.
func CreatedSince(records []record.Record, start time.Time) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if !r.CreatedAt.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

// TotalIntensity sums the intensity of every record.
func TotalIntensity(records []record.Record) int {
	total := 0
	for _, r := range records {
		total += r.Intensity
	}
	return total
}

// Distribution counts records per exercise type, most frequent first; ties keep first-seen order.
func Distribution(records []record.Record) []TypeCount {
	index := make(map[string]int)
	out := make([]TypeCount, 0)
	for _, r := range records {
		if i, ok := index[r.ExerciseType]; ok {
			out[i].Count++
			continue
		}
		index[r.ExerciseType] = len(out)
		out = append(out, TypeCount{ExerciseType: r.ExerciseType, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b TypeCount) int {
		return b.Count - a.Count
	})
	return out
}
