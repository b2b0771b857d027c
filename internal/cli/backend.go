package cli

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/intensity/internal/client"
	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/filter"
	"example.com/intensity/internal/localstore"
	"example.com/intensity/internal/record"
	"example.com/intensity/internal/stats"
)

var errUserRequired = errors.New("user id is required for the api source (--user or user_id in config)")

// backend is where the CLI reads and writes records.
type backend interface {
	Log(ctx context.Context, input domain.CreateRecordInput) (*domain.BandedRecord, error)
	View(ctx context.Context, search, category string) (*domain.RecordView, error)
	Report(ctx context.Context, period string) (*stats.Report, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

type localBackend struct {
	store      *localstore.Store
	thresholds record.Thresholds
	now        func() time.Time
}

func (b *localBackend) Log(ctx context.Context, input domain.CreateRecordInput) (*domain.BandedRecord, error) {
	now := b.now()
	rec := record.Record{
		ID:           uuid.NewString(),
		Date:         input.Date,
		TimeOfDay:    input.TimeOfDay,
		Intensity:    input.Intensity,
		ExerciseType: input.ExerciseType,
		Memo:         input.Memo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.store.Add(ctx, rec); err != nil {
		return nil, err
	}
	return &domain.BandedRecord{Record: rec, Band: b.thresholds.Classify(rec.Intensity)}, nil
}

func (b *localBackend) View(ctx context.Context, search, category string) (*domain.RecordView, error) {
	records, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = filter.AllCategories
	}
	result := filter.Apply(records, search, category)
	view := &domain.RecordView{
		Records:    make([]domain.BandedRecord, 0, len(result.Records)),
		Categories: result.Categories,
	}
	for _, r := range result.Records {
		view.Records = append(view.Records, domain.BandedRecord{Record: r, Band: b.thresholds.Classify(r.Intensity)})
	}
	return view, nil
}

func (b *localBackend) Report(ctx context.Context, periodName string) (*stats.Report, error) {
	period, err := stats.ParsePeriod(periodName)
	if err != nil {
		return nil, err
	}
	records, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	report := stats.BuildReport(records, period, b.now())
	return &report, nil
}

func (b *localBackend) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, id)
}

func (b *localBackend) Close() error {
	return b.store.Close()
}

type apiBackend struct {
	client *client.Client
	userID string
}

func (b *apiBackend) Log(ctx context.Context, input domain.CreateRecordInput) (*domain.BandedRecord, error) {
	input.UserID = b.userID
	return b.client.CreateRecord(ctx, input)
}

func (b *apiBackend) View(ctx context.Context, search, category string) (*domain.RecordView, error) {
	return b.client.ViewRecords(ctx, b.userID, search, category)
}

func (b *apiBackend) Report(ctx context.Context, period string) (*stats.Report, error) {
	return b.client.Statistics(ctx, b.userID, period)
}

func (b *apiBackend) Delete(ctx context.Context, id string) error {
	return b.client.DeleteRecord(ctx, id)
}

func (b *apiBackend) Close() error { return nil }
