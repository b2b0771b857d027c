package domain

import (
	"context"
	"time"

	"example.com/intensity/internal/record"
)

// Cursor models the pagination token of record listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// RecordQuery selects records. Zero values leave the corresponding filter unset; a zero Limit
// returns every match.
type RecordQuery struct {
	UserID       string
	StartDate    record.Date
	EndDate      record.Date
	ExerciseType string
	CreatedSince time.Time
	Cursor       *Cursor
	Limit        int
}

// RecordRepository captures record persistence. Implementations return nil, nil from GetRecord
// when the record does not exist and order listings by CreatedAt then ID, newest first.
type RecordRepository interface {
	CreateRecord(ctx context.Context, rec record.Record) error
	GetRecord(ctx context.Context, id string) (*record.Record, error)
	UpdateRecord(ctx context.Context, rec record.Record) error
	DeleteRecord(ctx context.Context, rec record.Record) error
	ListRecords(ctx context.Context, query RecordQuery) ([]record.Record, *Cursor, error)
}

// UserRepository captures user persistence. Lookups return nil, nil for unknown users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// FriendshipRepository captures friendship persistence. Lookups return nil, nil when absent.
type FriendshipRepository interface {
	CreateFriendship(ctx context.Context, friendship Friendship) error
	GetFriendship(ctx context.Context, id string) (*Friendship, error)
	// FindFriendship returns the relation between a and b in either direction.
	FindFriendship(ctx context.Context, a, b string) (*Friendship, error)
	UpdateFriendship(ctx context.Context, friendship Friendship) error
	DeleteFriendship(ctx context.Context, id string) error
	// ListFriendships returns the relations in the given status that involve userID, oldest first.
	ListFriendships(ctx context.Context, userID string, status FriendshipStatus) ([]Friendship, error)
}

// Repository is the full persistence surface the Service depends on.
type Repository interface {
	RecordRepository
	UserRepository
	FriendshipRepository
}

// SummaryCache memoizes computed statistics. The records version of a user changes on every
// write so keys derived from it never serve stale summaries.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	RecordsVersion(ctx context.Context, userID string) (int64, error)
	BumpRecordsVersion(ctx context.Context, userID string) error
}
