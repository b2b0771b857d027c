package stats

import (
	"time"

	descriptive "github.com/montanaflynn/stats"

	"example.com/intensity/internal/record"
)

// GlobalWindowDays is the look-back of the anonymised global report.
const GlobalWindowDays = 30

// popularLimit caps the number of exercise types in GlobalSummary.PopularExercises.
const popularLimit = 5

// GlobalSummary is the anonymised activity across every user.
type GlobalSummary struct {
	Period           string      `json:"period"`
	TotalRecords     int         `json:"total_workout_records"`
	ActiveUsers      int         `json:"active_users"`
	AverageIntensity float64     `json:"average_intensity"`
	PopularExercises []TypeCount `json:"popular_exercises"`
}

// Global summarises the records created in the last GlobalWindowDays days.
func Global(records []record.Record, now time.Time) GlobalSummary {
	windowed := CreatedSince(records, now.AddDate(0, 0, -GlobalWindowDays))

	users := make(map[string]struct{})
	data := make(descriptive.Float64Data, 0, len(windowed))
	for _, r := range windowed {
		users[r.UserID] = struct{}{}
		data = append(data, float64(r.Intensity))
	}

	popular := Distribution(windowed)
	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}

	return GlobalSummary{
		Period:           "30_days",
		TotalRecords:     len(windowed),
		ActiveUsers:      len(users),
		AverageIntensity: mean(data),
		PopularExercises: popular,
	}
}
