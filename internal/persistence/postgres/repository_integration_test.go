//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/events"
	"example.com/intensity/internal/record"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("intensity"),
		postgrescontainer.WithUsername("intensity"),
		postgrescontainer.WithPassword("intensity"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations are idempotent")
	return pool
}

func TestRepositoryRecordLifecycleWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	repo := NewRepository(pool)

	user := domain.User{ID: uuid.NewString(), Username: "minji", Email: "minji@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))
	require.ErrorIs(t, repo.CreateUser(ctx, domain.User{ID: uuid.NewString(), Username: "minji", CreatedAt: time.Now().UTC()}), domain.ErrUsernameTaken)

	base := time.Now().UTC().Truncate(time.Microsecond)
	recs := []record.Record{
		{ID: uuid.NewString(), UserID: user.ID, Date: record.NewDate(2025, 3, 8), TimeOfDay: record.Morning, Intensity: 4, ExerciseType: "Running", CreatedAt: base.Add(-2 * time.Hour), UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: uuid.NewString(), UserID: user.ID, Date: record.NewDate(2025, 3, 9), TimeOfDay: record.Night, Intensity: 7, ExerciseType: "Trail run", Memo: "muddy", CreatedAt: base.Add(-time.Hour), UpdatedAt: base.Add(-time.Hour)},
		{ID: uuid.NewString(), UserID: user.ID, Date: record.NewDate(2025, 3, 10), TimeOfDay: record.Afternoon, Intensity: 9, ExerciseType: "Yoga", CreatedAt: base, UpdatedAt: base},
	}
	for _, rec := range recs {
		require.NoError(t, repo.CreateRecord(ctx, rec))
	}

	stored, err := repo.GetRecord(ctx, recs[1].ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, record.NewDate(2025, 3, 9), stored.Date)
	require.Equal(t, "muddy", stored.Memo)

	page, next, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: user.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, recs[2].ID, page[0].ID)
	require.NotNil(t, next)

	rest, next, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: user.ID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, recs[0].ID, rest[0].ID)
	require.Nil(t, next)

	runs, _, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: user.ID, ExerciseType: "RUN"})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ranged, _, err := repo.ListRecords(ctx, domain.RecordQuery{UserID: user.ID, StartDate: record.NewDate(2025, 3, 9), EndDate: record.NewDate(2025, 3, 9)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	updated := *stored
	updated.Intensity = 10
	updated.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, repo.UpdateRecord(ctx, updated))
	require.NoError(t, repo.DeleteRecord(ctx, recs[0]))
	require.ErrorIs(t, repo.DeleteRecord(ctx, recs[0]), domain.ErrRecordNotFound)

	missing, err := repo.GetRecord(ctx, recs[0].ID)
	require.NoError(t, err)
	require.Nil(t, missing)

	counts := map[string]int{}
	rows, err := pool.Query(ctx, `SELECT event_type, count(*) FROM outbox WHERE user_id=$1 GROUP BY event_type`, user.ID)
	require.NoError(t, err)
	for rows.Next() {
		var eventType string
		var n int
		require.NoError(t, rows.Scan(&eventType, &n))
		counts[eventType] = n
	}
	require.NoError(t, rows.Err())
	require.Equal(t, map[string]int{events.RecordCreated: 3, events.RecordUpdated: 1, events.RecordDeleted: 1}, counts)
}

func TestRepositoryFriendships(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startPostgres(t))

	now := time.Now().UTC()
	a := domain.User{ID: uuid.NewString(), Username: "a", CreatedAt: now}
	b := domain.User{ID: uuid.NewString(), Username: "b", CreatedAt: now}
	require.NoError(t, repo.CreateUser(ctx, a))
	require.NoError(t, repo.CreateUser(ctx, b))

	f := domain.Friendship{ID: uuid.NewString(), UserID: a.ID, FriendID: b.ID, Status: domain.FriendshipPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateFriendship(ctx, f))
	require.ErrorIs(t, repo.CreateFriendship(ctx, domain.Friendship{ID: uuid.NewString(), UserID: a.ID, FriendID: b.ID, Status: domain.FriendshipPending, CreatedAt: now, UpdatedAt: now}), domain.ErrFriendshipExists)

	found, err := repo.FindFriendship(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, f.ID, found.ID)

	f.Status = domain.FriendshipAccepted
	require.NoError(t, repo.UpdateFriendship(ctx, f))

	accepted, err := repo.ListFriendships(ctx, b.ID, domain.FriendshipAccepted)
	require.NoError(t, err)
	require.Len(t, accepted, 1)

	require.NoError(t, repo.DeleteFriendship(ctx, f.ID))
	gone, err := repo.GetFriendship(ctx, f.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
