// Package domain defines the business logic of the intensity log service.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/record"
)

// Service orchestrates record, statistics and friendship workflows.
type Service struct {
	repo       Repository
	cache      SummaryCache
	now        func() time.Time
	logger     logrus.FieldLogger
	thresholds record.Thresholds
}

// Option configures the Service.
type Option func(*Service)

// WithCache memoizes statistics in cache.
func WithCache(cache SummaryCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThresholds overrides the intensity band thresholds.
func WithThresholds(t record.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		now:        time.Now,
		logger:     logrus.StandardLogger(),
		thresholds: record.DefaultThresholds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the band thresholds in use.
func (s *Service) Thresholds() record.Thresholds {
	return s.thresholds
}

// CreateUserInput captures the payload from the API layer.
type CreateUserInput struct {
	Username string
	Email    string
}

// CreateUser registers a user with a unique username.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if existing, err := s.repo.GetUserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	user := User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     strings.TrimSpace(input.Email),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateRecordInput captures the payload from the API layer.
type CreateRecordInput struct {
	UserID       string
	Date         record.Date
	TimeOfDay    record.TimeOfDay
	Intensity    int
	ExerciseType string
	Memo         string
}

// CreateRecord validates and stores a new record for an existing user.
func (s *Service) CreateRecord(ctx context.Context, input CreateRecordInput) (*record.Record, error) {
	if _, err := s.GetUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := record.Record{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		Date:         input.Date,
		TimeOfDay:    input.TimeOfDay,
		Intensity:    input.Intensity,
		ExerciseType: strings.TrimSpace(input.ExerciseType),
		Memo:         input.Memo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := record.Validate(rec); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.invalidate(ctx, rec.UserID)
	return &rec, nil
}

// GetRecord fetches by ID.
func (s *Service) GetRecord(ctx context.Context, id string) (*record.Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// UpdateRecordInput carries a partial update; nil fields are left unchanged.
type UpdateRecordInput struct {
	Date         *record.Date
	TimeOfDay    *record.TimeOfDay
	Intensity    *int
	ExerciseType *string
	Memo         *string
}

// UpdateRecord applies a partial update and revalidates the result.
func (s *Service) UpdateRecord(ctx context.Context, id string, input UpdateRecordInput) (*record.Record, error) {
	current, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if input.Date != nil {
		updated.Date = *input.Date
	}
	if input.TimeOfDay != nil {
		updated.TimeOfDay = *input.TimeOfDay
	}
	if input.Intensity != nil {
		updated.Intensity = *input.Intensity
	}
	if input.ExerciseType != nil {
		updated.ExerciseType = strings.TrimSpace(*input.ExerciseType)
	}
	if input.Memo != nil {
		updated.Memo = *input.Memo
	}
	updated.UpdatedAt = s.now().UTC()

	if err := record.Validate(updated); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRecord(ctx, updated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.UserID)
	return &updated, nil
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRecord(ctx, *rec); err != nil {
		return err
	}
	s.invalidate(ctx, rec.UserID)
	return nil
}

// ListRecords fetches a user's records with cursor pagination.
func (s *Service) ListRecords(ctx context.Context, query RecordQuery) ([]record.Record, *Cursor, error) {
	if _, err := s.GetUser(ctx, query.UserID); err != nil {
		return nil, nil, err
	}
	if !query.StartDate.IsZero() && !query.EndDate.IsZero() && query.EndDate.Before(query.StartDate) {
		return nil, nil, fmt.Errorf("%w: end_date before start_date", record.ErrInvalidRecord)
	}
	return s.repo.ListRecords(ctx, query)
}

func (s *Service) allRecords(ctx context.Context, query RecordQuery) ([]record.Record, error) {
	query.Limit = 0
	query.Cursor = nil
	records, _, err := s.repo.ListRecords(ctx, query)
	return records, err
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpRecordsVersion(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("records version bump failed")
	}
}
