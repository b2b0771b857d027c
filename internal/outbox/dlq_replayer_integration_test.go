//go:build integration

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/events"
)

func TestReplayerRequeuesDeadLetteredEvents(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	userID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, userID, events.RecordCreated))

	failing := NewDispatcher(pool, &stubProducer{err: errors.New("broker down")}, &stubRegistry{id: 3}, 10*time.Millisecond, 5)
	require.NoError(t, failing.processBatch(ctx))

	replayer := NewReplayer(pool, 3, time.Millisecond)
	before := testutil.ToFloat64(dlqRequeuedCounter.WithLabelValues(events.RecordsTopic))

	requeued, err := replayer.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, requeued)
	require.InDelta(t, before+1, testutil.ToFloat64(dlqRequeuedCounter.WithLabelValues(events.RecordsTopic)), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Zero(t, dlqCount)

	var replays int
	var dedupeKey string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT replay_count, dedupe_key FROM outbox WHERE published_at IS NULL AND user_id = $1`, userID,
	).Scan(&replays, &dedupeKey))
	require.Equal(t, 1, replays)
	require.Contains(t, dedupeKey, "replay:")

	time.Sleep(10 * time.Millisecond)
	producer := &stubProducer{}
	require.NoError(t, NewDispatcher(pool, producer, &stubRegistry{id: 3}, 10*time.Millisecond, 5).processBatch(ctx))
	require.Len(t, producer.writes, 1)
}

func TestReplayerQuarantinesExhaustedAndUnknownEntries(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), "record.unknown"))
	require.NoError(t, NewDispatcher(pool, &stubProducer{}, &stubRegistry{id: 1}, 10*time.Millisecond, 5).processBatch(ctx))

	exhaustedUser := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, exhaustedUser, events.RecordDeleted))
	_, err := pool.Exec(ctx, `UPDATE outbox SET replay_count = 2 WHERE user_id = $1`, exhaustedUser)
	require.NoError(t, err)
	require.NoError(t, NewDispatcher(pool, &stubProducer{err: errors.New("still down")}, &stubRegistry{id: 1}, 10*time.Millisecond, 5).processBatch(ctx))

	requeued, err := NewReplayer(pool, 2, time.Millisecond).RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, requeued)

	reasons := map[string]string{}
	rows, err := pool.Query(ctx, `SELECT event_type, quarantine_reason FROM outbox_dlq WHERE quarantined_at IS NOT NULL`)
	require.NoError(t, err)
	for rows.Next() {
		var eventType, reason string
		require.NoError(t, rows.Scan(&eventType, &reason))
		reasons[eventType] = reason
	}
	require.NoError(t, rows.Err())
	require.Equal(t, map[string]string{
		"record.unknown":     ReasonUnknownEvent,
		events.RecordDeleted: ReasonRetryLimit,
	}, reasons)

	requeued, err = NewReplayer(pool, 2, time.Millisecond).RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, requeued, "quarantined entries are not revisited")
}
