package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/intensity/internal/record"
)

func TestWeeklyScore(t *testing.T) {
	records := []record.Record{
		rec("a", 0, 6, record.Morning),
		rec("b", 6, 4, record.Morning),
		rec("c", 8, 10, record.Morning),
	}
	assert.Equal(t, 10, WeeklyScore(records, testNow))
	assert.Zero(t, WeeklyScore(nil, testNow))
}

func TestRankIsStableAndDoesNotMutate(t *testing.T) {
	in := []Standing{
		{UserID: "me", Score: 12, IsUser: true},
		{UserID: "kim", Score: 18},
		{UserID: "park", Score: 12},
		{UserID: "choi", Score: 3},
	}

	got := Rank(in)

	assert.Equal(t, []Standing{
		{UserID: "kim", Score: 18, Rank: 1},
		{UserID: "me", Score: 12, IsUser: true, Rank: 2},
		{UserID: "park", Score: 12, Rank: 3},
		{UserID: "choi", Score: 3, Rank: 4},
	}, got)
	assert.Equal(t, "me", in[0].UserID)
	assert.Zero(t, in[0].Rank)
}
