package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/record"
)

func TestListRecordsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	add := func(id, user, kind string, day int, createdOffset time.Duration) {
		require.NoError(t, repo.CreateRecord(ctx, record.Record{
			ID: id, UserID: user, ExerciseType: kind, Intensity: 5, TimeOfDay: record.Morning,
			Date: record.NewDate(2025, 3, day), CreatedAt: base.Add(createdOffset),
		}))
	}
	add("a", "u1", "Running", 8, -3*time.Hour)
	add("b", "u1", "Trail Run", 9, -2*time.Hour)
	add("c", "u1", "Yoga", 10, -time.Hour)
	add("d", "u2", "Running", 10, 0)
	add("e", "u1", "Swim", 10, -time.Hour)

	all, next, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []string{"e", "c", "b", "a"}, recordIDs(all))

	page, next, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c"}, recordIDs(page))
	require.NotNil(t, next)

	page, next, err = repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1", Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, recordIDs(page))
	require.NotNil(t, next)

	page, next, err = repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1", Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Nil(t, next)

	runs, _, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1", ExerciseType: "RUN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, recordIDs(runs))

	ranged, _, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: "u1", StartDate: record.NewDate(2025, 3, 9), EndDate: record.NewDate(2025, 3, 9)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, recordIDs(ranged))

	recent, _, err := repo.ListRecords(ctx, domain.RecordQuery{CreatedSince: base.Add(-90 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e", "c"}, recordIDs(recent))
}

func TestFriendshipsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	now := time.Now()

	require.NoError(t, repo.CreateFriendship(ctx, domain.Friendship{ID: "f1", UserID: "u1", FriendID: "u2", Status: domain.FriendshipAccepted, CreatedAt: now}))
	require.NoError(t, repo.CreateFriendship(ctx, domain.Friendship{ID: "f2", UserID: "u3", FriendID: "u1", Status: domain.FriendshipAccepted, CreatedAt: now}))
	require.NoError(t, repo.CreateFriendship(ctx, domain.Friendship{ID: "f3", UserID: "u1", FriendID: "u4", Status: domain.FriendshipPending, CreatedAt: now}))
	require.ErrorIs(t, repo.CreateFriendship(ctx, domain.Friendship{ID: "f4", UserID: "u2", FriendID: "u1"}), domain.ErrFriendshipExists)

	accepted, err := repo.ListFriendships(ctx, "u1", domain.FriendshipAccepted)
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.Equal(t, "f1", accepted[0].ID)
	assert.Equal(t, "f2", accepted[1].ID)

	require.NoError(t, repo.DeleteFriendship(ctx, "f1"))
	require.ErrorIs(t, repo.DeleteFriendship(ctx, "f1"), domain.ErrFriendshipNotFound)

	found, err := repo.FindFriendship(ctx, "u1", "u3")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "f2", found.ID)
}

func recordIDs(records []record.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
