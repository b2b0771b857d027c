// Package postgres persists users, records, friendships and outbox events in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/events"
	"example.com/intensity/internal/observability"
	"example.com/intensity/internal/record"
)

const uniqueViolation = "23505"

// Repository provides Postgres-backed persistence for the domain service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping verifies connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateUser inserts a user, mapping a username collision to domain.ErrUsernameTaken.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, username, email, created_at) VALUES ($1,$2,$3,$4)`,
		user.ID, user.Username, user.Email, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	return err
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return r.queryUser(ctx, `SELECT user_id, username, email, created_at FROM users WHERE user_id=$1`, id)
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryUser(ctx, `SELECT user_id, username, email, created_at FROM users WHERE username=$1`, username)
}

func (r *Repository) queryUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateRecord persists the record and its record.created outbox event in a single transaction.
func (r *Repository) CreateRecord(ctx context.Context, rec record.Record) error {
	return r.writeRecord(ctx, rec, events.RecordCreated, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO exercise_records (record_id, user_id, record_date, time_of_day, intensity, exercise_type, memo, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			rec.ID, rec.UserID, rec.Date.Time(), string(rec.TimeOfDay), rec.Intensity, rec.ExerciseType, rec.Memo, rec.CreatedAt, rec.UpdatedAt,
		)
		return err
	})
}

// UpdateRecord rewrites the mutable columns and records record.updated.
func (r *Repository) UpdateRecord(ctx context.Context, rec record.Record) error {
	return r.writeRecord(ctx, rec, events.RecordUpdated, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE exercise_records SET record_date=$2, time_of_day=$3, intensity=$4, exercise_type=$5, memo=$6, updated_at=$7
            WHERE record_id=$1`,
			rec.ID, rec.Date.Time(), string(rec.TimeOfDay), rec.Intensity, rec.ExerciseType, rec.Memo, rec.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteRecord removes the record and records record.deleted.
func (r *Repository) DeleteRecord(ctx context.Context, rec record.Record) error {
	return r.writeRecord(ctx, rec, events.RecordDeleted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM exercise_records WHERE record_id=$1`, rec.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrRecordNotFound
		}
		return nil
	})
}

func (r *Repository) writeRecord(ctx context.Context, rec record.Record, eventType string, write func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = write(tx); err != nil {
		return err
	}

	occurredAt := rec.UpdatedAt
	if eventType == events.RecordDeleted {
		occurredAt = time.Now().UTC()
	}
	if err = r.insertOutbox(ctx, tx, rec, eventType, events.NewRecordChanged(rec, occurredAt)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordPersisted(occurredAt)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, rec record.Record, eventType string, payload events.RecordChanged) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := events.Lookup(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", rec.ID, eventType, payload.OccurredAt.UnixNano())

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, user_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		"record",
		rec.ID,
		rec.UserID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		rec.UserID,
		body,
		dedupeKey,
	)
	return err
}

const recordColumns = `record_id, user_id, record_date, time_of_day, intensity, exercise_type, memo, created_at, updated_at`

// GetRecord retrieves a record by ID.
func (r *Repository) GetRecord(ctx context.Context, id string) (*record.Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM exercise_records WHERE record_id=$1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns records ordered by creation time, newest first.
func (r *Repository) ListRecords(ctx context.Context, query domain.RecordQuery) ([]record.Record, *domain.Cursor, error) {
	sql, args := buildListQuery(query)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]record.Record, 0, max(query.Limit, 0))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if query.Limit > 0 && len(results) == query.Limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

func buildListQuery(query domain.RecordQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, values ...any) {
		for _, v := range values {
			args = append(args, v)
			clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conditions = append(conditions, clause)
	}

	if query.UserID != "" {
		add("user_id = ?", query.UserID)
	}
	if !query.StartDate.IsZero() {
		add("record_date >= ?", query.StartDate.Time())
	}
	if !query.EndDate.IsZero() {
		add("record_date <= ?", query.EndDate.Time())
	}
	if term := strings.TrimSpace(query.ExerciseType); term != "" {
		add("exercise_type ILIKE ?", "%"+escapeLike(term)+"%")
	}
	if !query.CreatedSince.IsZero() {
		add("created_at >= ?", query.CreatedSince)
	}
	if query.Cursor != nil {
		add("(created_at, record_id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	sql := `SELECT ` + recordColumns + ` FROM exercise_records`
	if len(conditions) > 0 {
		sql += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	sql += ` ORDER BY created_at DESC, record_id DESC`
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return sql, args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func scanRecord(row pgx.Row) (record.Record, error) {
	var (
		rec       record.Record
		date      time.Time
		timeOfDay string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &date, &timeOfDay, &rec.Intensity, &rec.ExerciseType, &rec.Memo, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return record.Record{}, err
	}
	rec.Date = record.DateOf(date)
	rec.TimeOfDay = record.TimeOfDay(timeOfDay)
	return rec, nil
}

// CreateFriendship inserts a friendship, mapping a duplicate pair to domain.ErrFriendshipExists.
func (r *Repository) CreateFriendship(ctx context.Context, f domain.Friendship) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO friendships (friendship_id, user_id, friend_id, status, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.UserID, f.FriendID, string(f.Status), f.CreatedAt, f.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrFriendshipExists
	}
	return err
}

const friendshipColumns = `friendship_id, user_id, friend_id, status, created_at, updated_at`

// GetFriendship retrieves a friendship by ID.
func (r *Repository) GetFriendship(ctx context.Context, id string) (*domain.Friendship, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE friendship_id=$1`, id)
	return optionalFriendship(row)
}

// FindFriendship retrieves the friendship linking a and b in either direction.
func (r *Repository) FindFriendship(ctx context.Context, a, b string) (*domain.Friendship, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships
        WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
        LIMIT 1`, a, b)
	return optionalFriendship(row)
}

// UpdateFriendship persists a status change.
func (r *Repository) UpdateFriendship(ctx context.Context, f domain.Friendship) error {
	tag, err := r.pool.Exec(ctx, `UPDATE friendships SET status=$2, updated_at=$3 WHERE friendship_id=$1`,
		f.ID, string(f.Status), f.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFriendshipNotFound
	}
	return nil
}

// DeleteFriendship removes a friendship.
func (r *Repository) DeleteFriendship(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM friendships WHERE friendship_id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFriendshipNotFound
	}
	return nil
}

// ListFriendships returns a user's friendships in status, oldest first.
func (r *Repository) ListFriendships(ctx context.Context, userID string, status domain.FriendshipStatus) ([]domain.Friendship, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+friendshipColumns+` FROM friendships
        WHERE (user_id=$1 OR friend_id=$1) AND status=$2
        ORDER BY created_at, friendship_id`, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Friendship, 0)
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func optionalFriendship(row pgx.Row) (*domain.Friendship, error) {
	f, err := scanFriendship(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFriendship(row pgx.Row) (domain.Friendship, error) {
	var (
		f      domain.Friendship
		status string
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return domain.Friendship{}, err
	}
	f.Status = domain.FriendshipStatus(status)
	return f, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
