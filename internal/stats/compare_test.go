package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/record"
)

func TestCompare(t *testing.T) {
	user := []record.Record{
		rec("u1", 0, 6, record.Morning),
		rec("u2", 0, 8, record.Night),
		rec("u3", 2, 5, record.Morning),
	}
	friend := []record.Record{
		rec("f1", 1, 9, record.Afternoon),
		rec("f-old", 12, 9, record.Afternoon),
	}

	cmp := Compare(user, friend, PeriodWeek, testNow)

	assert.Equal(t, CompareStats{TotalWorkouts: 3, AverageIntensity: 6.3, TotalScore: 19}, cmp.UserStats)
	assert.Equal(t, CompareStats{TotalWorkouts: 1, AverageIntensity: 9, TotalScore: 9}, cmp.FriendStats)

	require.Len(t, cmp.Series, 7)
	last := cmp.Series[6]
	assert.Equal(t, "2025-03-10", last.Date)
	assert.Equal(t, 7.0, last.UserIntensity)
	assert.Zero(t, last.FriendIntensity)
	assert.Equal(t, 9.0, cmp.Series[5].FriendIntensity)

	monthly := Compare(nil, nil, PeriodMonth, testNow)
	assert.Len(t, monthly.Series, 30)
	assert.Equal(t, CompareStats{}, monthly.UserStats)
}
