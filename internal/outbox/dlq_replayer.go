package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/events"
)

const (
	defaultMaxReplays  = 5
	defaultReplayDelay = time.Minute
	maxReplayDelay     = time.Hour
)

// Quarantine reasons stored on outbox_dlq rows that will not be replayed again.
const (
	ReasonRetryLimit   = "retry limit reached"
	ReasonUnknownEvent = "unknown event type"
)

// ReplayerOption configures optional behaviour for the Replayer.
type ReplayerOption func(*Replayer)

// WithReplayerLogger overrides the logger used by the Replayer.
func WithReplayerLogger(logger logrus.FieldLogger) ReplayerOption {
	return func(r *Replayer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Replayer requeues dead-lettered events into the outbox with an exponential delay and
// quarantines the ones that keep failing.
type Replayer struct {
	pool       *pgxpool.Pool
	maxReplays int
	baseDelay  time.Duration
	logger     logrus.FieldLogger
}

// NewReplayer constructs a Replayer. Non-positive values fall back to five replays and a one
// minute base delay.
func NewReplayer(pool *pgxpool.Pool, maxReplays int, baseDelay time.Duration, opts ...ReplayerOption) *Replayer {
	if maxReplays <= 0 {
		maxReplays = defaultMaxReplays
	}
	if baseDelay <= 0 {
		baseDelay = defaultReplayDelay
	}
	r := &Replayer{
		pool:       pool,
		maxReplays: maxReplays,
		baseDelay:  baseDelay,
		logger:     logrus.StandardLogger().WithField("component", "dlq-replayer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Replayer) Run(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		requeued, err := r.RunOnce(ctx, batchSize)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.WithError(err).Error("dlq replay error")
		} else if requeued > 0 {
			r.logger.WithField("requeued", requeued).Info("dlq entries requeued")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce processes up to batchSize due DLQ entries and returns how many were requeued.
func (r *Replayer) RunOnce(ctx context.Context, batchSize int) (int, error) {
	entries, err := r.dueEntries(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, entry := range entries {
		ok, handleErr := r.handleEntry(ctx, entry)
		if handleErr != nil {
			err = errors.Join(err, fmt.Errorf("dlq entry %d: %w", entry.ID, handleErr))
			continue
		}
		if ok {
			requeued++
		}
	}
	return requeued, err
}

func (r *Replayer) dueEntries(ctx context.Context, batchSize int) ([]dlqEntry, error) {
	const query = `SELECT dlq_id, event_id, event_type, topic, payload, aggregate_type, aggregate_id, user_id, schema_subject, partition_key, retry_count
        FROM outbox_dlq
        WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at, dlq_id
        LIMIT $1`

	rows, err := r.pool.Query(ctx, query, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []dlqEntry
	for rows.Next() {
		var e dlqEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.Topic, &e.Payload, &e.AggregateType, &e.AggregateID, &e.UserID, &e.SchemaSubject, &e.PartitionKey, &e.RetryCount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// handleEntry quarantines, requeues or reschedules a single entry. It reports whether the entry
// went back to the outbox.
func (r *Replayer) handleEntry(ctx context.Context, entry dlqEntry) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	log := r.logger.WithFields(logrus.Fields{"dlq_id": entry.ID, "event_type": entry.EventType, "user_id": entry.UserID})

	if reason := r.quarantineReason(entry); reason != "" {
		if _, err := tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`, reason, entry.ID); err != nil {
			return false, err
		}
		log.WithField("reason", reason).Warn("dlq entry quarantined")
		dlqQuarantinedCounter.WithLabelValues(reason).Inc()
		return false, tx.Commit(ctx)
	}

	attempt := entry.RetryCount + 1
	delay := r.delay(attempt)
	if err := requeue(ctx, tx, entry, attempt, delay); err != nil {
		// The failed insert aborted tx; record the attempt in a fresh one.
		tx.Rollback(ctx)
		log.WithError(err).Warn("dlq requeue failed")
		_, updateErr := r.pool.Exec(ctx,
			`UPDATE outbox_dlq
                SET retry_count = retry_count + 1,
                    last_attempt_at = NOW(),
                    next_retry_at = NOW() + $1::interval,
                    reason = $2
              WHERE dlq_id = $3`,
			delay, err.Error(), entry.ID,
		)
		return false, updateErr
	}

	if _, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	dlqRequeuedCounter.WithLabelValues(entry.Topic).Inc()
	return true, nil
}

func (r *Replayer) quarantineReason(entry dlqEntry) string {
	if entry.RetryCount >= r.maxReplays {
		return ReasonRetryLimit
	}
	if _, ok := events.Lookup(entry.EventType); !ok {
		return ReasonUnknownEvent
	}
	return ""
}

// delay returns the exponential backoff before replay attempt n (1-based), capped at one hour.
func (r *Replayer) delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxReplayDelay
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// requeue reinserts the entry into the outbox, delayed by delay. The dedupe key is derived from
// the original event and attempt so replays never collide with the original row.
func requeue(ctx context.Context, tx pgx.Tx, entry dlqEntry, attempt int, delay time.Duration) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, user_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key, replay_count, available_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW() + $11::interval)`,
		entry.AggregateType,
		entry.AggregateID,
		entry.UserID,
		entry.EventType,
		entry.Topic,
		entry.SchemaSubject,
		entry.PartitionKey,
		entry.Payload,
		replayDedupeKey(entry.EventID, attempt),
		attempt,
		delay,
	)
	return err
}

func replayDedupeKey(eventID int64, attempt int) string {
	return fmt.Sprintf("replay:%d:%d", eventID, attempt)
}

type dlqEntry struct {
	ID            int64
	EventID       int64
	EventType     string
	Topic         string
	Payload       []byte
	AggregateType string
	AggregateID   string
	UserID        string
	SchemaSubject string
	PartitionKey  string
	RetryCount    int
}
