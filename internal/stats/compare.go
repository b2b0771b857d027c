package stats

import (
	"time"

	descriptive "github.com/montanaflynn/stats"

	"example.com/intensity/internal/record"
)

// CompareStats is the headline of one side of a comparison.
type CompareStats struct {
	TotalWorkouts    int     `json:"total_workouts"`
	AverageIntensity float64 `json:"average_intensity"`
	TotalScore       int     `json:"total_score"`
}

// ComparisonPoint holds both users' mean intensity for one day.
type ComparisonPoint struct {
	Date            string  `json:"date"`
	Label           string  `json:"label"`
	UserIntensity   float64 `json:"user_intensity"`
	FriendIntensity float64 `json:"friend_intensity"`
}

// Comparison contrasts a user's records with a friend's over a period.
type Comparison struct {
	Period      Period            `json:"period"`
	UserStats   CompareStats      `json:"user_stats"`
	FriendStats CompareStats      `json:"friend_stats"`
	Series      []ComparisonPoint `json:"comparison_data"`
}

// Compare windows both record sets by the period and builds a per-day series of period.Days()
// points ending today.
func Compare(user, friend []record.Record, period Period, now time.Time) Comparison {
	start := period.Start(now)
	user = CreatedSince(user, start)
	friend = CreatedSince(friend, start)

	userByDay := groupByDate(user)
	friendByDay := groupByDate(friend)

	days := period.Days()
	today := record.DateOf(now)
	series := make([]ComparisonPoint, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		day := today.AddDays(-offset)
		series = append(series, ComparisonPoint{
			Date:            day.String(),
			Label:           day.Label(),
			UserIntensity:   meanIntensity(userByDay[day]),
			FriendIntensity: meanIntensity(friendByDay[day]),
		})
	}

	return Comparison{
		Period:      period,
		UserStats:   headline(user),
		FriendStats: headline(friend),
		Series:      series,
	}
}

func headline(records []record.Record) CompareStats {
	if len(records) == 0 {
		return CompareStats{}
	}
	data := make(descriptive.Float64Data, 0, len(records))
	for _, r := range records {
		data = append(data, float64(r.Intensity))
	}
	return CompareStats{
		TotalWorkouts:    len(records),
		AverageIntensity: mean(data),
		TotalScore:       TotalIntensity(records),
	}
}
