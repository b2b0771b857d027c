package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/events"
)

// VersionBumper advances a user's records version.
type VersionBumper interface {
	BumpRecordsVersion(ctx context.Context, userID string) error
}

// CacheInvalidationHandler bumps the records version of the user named by each record event so
// every API replica stops serving memoized statistics for that user.
type CacheInvalidationHandler struct {
	cache  VersionBumper
	logger logrus.FieldLogger
}

// NewCacheInvalidationHandler constructs the handler.
func NewCacheInvalidationHandler(cache VersionBumper, logger logrus.FieldLogger) *CacheInvalidationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CacheInvalidationHandler{cache: cache, logger: logger}
}

// Handle implements Handler. Events other than record lifecycle events are ignored.
func (h *CacheInvalidationHandler) Handle(ctx context.Context, msg Message) error {
	if !events.IsRecordEvent(msg.EventType) {
		return nil
	}

	userID := msg.UserID
	if userID == "" {
		var payload events.RecordChanged
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s payload: %w", msg.EventType, err))
		}
		userID = payload.UserID
	}
	if userID == "" {
		h.logger.WithField("event_type", msg.EventType).Warn("record event without user id skipped")
		return nil
	}

	if err := h.cache.BumpRecordsVersion(ctx, userID); err != nil {
		return fmt.Errorf("bump records version of %s: %w", userID, err)
	}
	h.logger.WithFields(logrus.Fields{"event_type": msg.EventType, "user_id": userID}).Debug("statistics cache invalidated")
	return nil
}
