package stats

import (
	"slices"
	"time"

	"example.com/intensity/internal/record"
)

// WeeklyScore sums the intensity of records created in the seven days before now.
func WeeklyScore(records []record.Record, now time.Time) int {
	return TotalIntensity(CreatedSince(records, now.AddDate(0, 0, -7)))
}

// Standing is one participant of a leaderboard.
type Standing struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	IsUser   bool   `json:"is_user"`
	Rank     int    `json:"rank"`
}

// Rank orders standings by score, highest first, and assigns 1-based ranks. Equal scores keep
// their input order. The input slice is not modified.
func Rank(standings []Standing) []Standing {
	out := slices.Clone(standings)
	slices.SortStableFunc(out, func(a, b Standing) int {
		return b.Score - a.Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
