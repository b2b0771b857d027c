// Package stats derives aggregate views from exercise records. Every function is a pure
// computation over its arguments: callers own the records and the clock.
package stats

import (
	"math"
	"time"

	descriptive "github.com/montanaflynn/stats"

	"example.com/intensity/internal/record"
)

// TrendDays is the length of the trailing window used for consistency and the trend series.
const TrendDays = 7

// Summary is the statistics view of a record set.
type Summary struct {
	AverageIntensity float64          `json:"average_intensity"`
	MaxIntensity     int              `json:"max_intensity"`
	TotalWorkouts    int              `json:"total_workouts"`
	Consistency      int              `json:"consistency"`
	Trend            []TrendPoint     `json:"trend"`
	TimeOfDay        []TimeOfDayCount `json:"time_of_day"`
}

// TrendPoint is the mean intensity of one calendar day.
type TrendPoint struct {
	Date      string  `json:"date"`
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
	Workouts  int     `json:"workouts"`
}

// TimeOfDayCount is one bucket of the daypart histogram.
type TimeOfDayCount struct {
	TimeOfDay record.TimeOfDay `json:"time_of_day"`
	Count     int              `json:"count"`
}

// Compute aggregates records into a Summary. "Today" is the calendar day of now in now's
// location. An empty input yields a zero summary with a full 7-point trend and histogram.
func Compute(records []record.Record, now time.Time) Summary {
	today := record.DateOf(now)
	byDay := groupByDate(records)

	summary := Summary{
		TotalWorkouts: len(records),
		Trend:         make([]TrendPoint, 0, TrendDays),
		TimeOfDay:     histogram(records),
	}

	if len(records) > 0 {
		intensities := make(descriptive.Float64Data, 0, len(records))
		for _, r := range records {
			intensities = append(intensities, float64(r.Intensity))
			if r.Intensity > summary.MaxIntensity {
				summary.MaxIntensity = r.Intensity
			}
		}
		summary.AverageIntensity = mean(intensities)
	}

	active := 0
	for offset := TrendDays - 1; offset >= 0; offset-- {
		day := today.AddDays(-offset)
		dayRecords := byDay[day]
		if len(dayRecords) > 0 {
			active++
		}
		summary.Trend = append(summary.Trend, TrendPoint{
			Date:      day.String(),
			Label:     day.Label(),
			Intensity: meanIntensity(dayRecords),
			Workouts:  len(dayRecords),
		})
	}
	summary.Consistency = int(math.Round(float64(active) / TrendDays * 100))

	return summary
}

func histogram(records []record.Record) []TimeOfDayCount {
	counts := make(map[record.TimeOfDay]int, len(record.TimesOfDay))
	for _, r := range records {
		counts[r.TimeOfDay]++
	}
	out := make([]TimeOfDayCount, 0, len(record.TimesOfDay))
	for _, t := range record.TimesOfDay {
		out = append(out, TimeOfDayCount{TimeOfDay: t, Count: counts[t]})
	}
	return out
}

func groupByDate(records []record.Record) map[record.Date][]record.Record {
	out := make(map[record.Date][]record.Record)
	for _, r := range records {
		out[r.Date] = append(out[r.Date], r)
	}
	return out
}

func meanIntensity(records []record.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	data := make(descriptive.Float64Data, 0, len(records))
	for _, r := range records {
		data = append(data, float64(r.Intensity))
	}
	return mean(data)
}

// mean returns the arithmetic mean rounded to one decimal, or 0 for empty data.
func mean(data descriptive.Float64Data) float64 {
	avg, err := descriptive.Mean(data)
	if err != nil {
		return 0
	}
	return roundTenth(avg)
}

func roundTenth(value float64) float64 {
	rounded, err := descriptive.Round(value, 1)
	if err != nil {
		return 0
	}
	return rounded
}
