package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/intensity/internal/cache"
	"example.com/intensity/internal/filter"
	"example.com/intensity/internal/observability"
	"example.com/intensity/internal/record"
	"example.com/intensity/internal/stats"
)

// BandedRecord is a record annotated with its intensity band.
type BandedRecord struct {
	record.Record
	Band record.Band `json:"band"`
}

// RecordView is the filtered display view of a user's records.
type RecordView struct {
	Records    []BandedRecord `json:"records"`
	Categories []string       `json:"categories"`
}

// ViewRecords narrows a user's records by search term and category.
func (s *Service) ViewRecords(ctx context.Context, userID, search, category string) (*RecordView, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	records, err := s.allRecords(ctx, RecordQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = filter.AllCategories
	}

	result := filter.Apply(records, search, category)
	view := &RecordView{
		Records:    make([]BandedRecord, 0, len(result.Records)),
		Categories: result.Categories,
	}
	for _, r := range result.Records {
		view.Records = append(view.Records, BandedRecord{Record: r, Band: s.thresholds.Classify(r.Intensity)})
	}
	return view, nil
}

// Statistics builds the period report of a user, memoized per records version, calendar day and
// window start.
func (s *Service) Statistics(ctx context.Context, userID, periodName string) (*stats.Report, error) {
	period, err := stats.ParsePeriod(periodName)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	key := s.statisticsKey(ctx, userID, period, now)
	if key != "" {
		if report, ok := s.cachedReport(ctx, key); ok {
			return report, nil
		}
	}

	records, err := s.allRecords(ctx, RecordQuery{UserID: userID})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report := stats.BuildReport(records, period, now)
	observability.ObserveStatisticsComputed(string(period), time.Since(started))

	if key != "" {
		s.storeReport(ctx, key, report)
	}
	return &report, nil
}

func (s *Service) statisticsKey(ctx context.Context, userID string, period stats.Period, now time.Time) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.RecordsVersion(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("records version lookup failed")
		return ""
	}
	return cache.StatisticsKey(userID, string(period), version, record.DateOf(now).String(), period.Start(now))
}

func (s *Service) cachedReport(ctx context.Context, key string) (*stats.Report, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("summary cache read failed")
		return nil, false
	}
	if !ok {
		observability.RecordCacheLookup(false)
		return nil, false
	}
	var report stats.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("discarding undecodable cached summary")
		return nil, false
	}
	observability.RecordCacheLookup(true)
	return &report, true
}

func (s *Service) storeReport(ctx context.Context, key string, report stats.Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		s.logger.WithError(err).Warn("summary encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("summary cache write failed")
	}
}

// Compare contrasts a user with another user over a week or a month.
func (s *Service) Compare(ctx context.Context, userID, friendID, periodName string) (*stats.Comparison, error) {
	period, err := stats.ParsePeriod(periodName)
	if err != nil {
		return nil, err
	}
	if period != stats.PeriodWeek && period != stats.PeriodMonth {
		return nil, fmt.Errorf("%w: comparison supports week or month", stats.ErrInvalidPeriod)
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, friendID); err != nil {
		return nil, err
	}

	now := s.now()
	since := period.Start(now)
	userRecords, err := s.allRecords(ctx, RecordQuery{UserID: userID, CreatedSince: since})
	if err != nil {
		return nil, err
	}
	friendRecords, err := s.allRecords(ctx, RecordQuery{UserID: friendID, CreatedSince: since})
	if err != nil {
		return nil, err
	}

	comparison := stats.Compare(userRecords, friendRecords, period, now)
	return &comparison, nil
}

// GlobalStatistics summarises every user's records of the last thirty days.
func (s *Service) GlobalStatistics(ctx context.Context) (*stats.GlobalSummary, error) {
	now := s.now()
	records, err := s.allRecords(ctx, RecordQuery{CreatedSince: now.AddDate(0, 0, -stats.GlobalWindowDays)})
	if err != nil {
		return nil, err
	}
	summary := stats.Global(records, now)
	return &summary, nil
}
