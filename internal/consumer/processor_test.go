package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/events"
)

func framed(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"record_id":"abc","user_id":"u1"}`)
	msg := kafka.Message{
		Topic:     events.RecordsTopic,
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.RecordCreated)},
			{Key: "user_id", Value: []byte("u1")},
			{Key: "schema_subject", Value: []byte("record_events-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	before := testutil.ToFloat64(processedCounter.WithLabelValues(events.RecordsTopic, events.RecordCreated))
	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.RecordCreated, handler.last.EventType)
	require.Equal(t, "u1", handler.last.UserID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
	require.InDelta(t, before+1, testutil.ToFloat64(processedCounter.WithLabelValues(events.RecordsTopic, events.RecordCreated)), 0.0001)
}

func noWait() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

func updatedMessage(offset int64, user string) kafka.Message {
	return kafka.Message{
		Topic:  events.RecordsTopic,
		Offset: offset,
		Time:   time.Now().UTC(),
		Value:  framed(99, []byte(`{"record_id":"def"}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.RecordUpdated)},
			{Key: "user_id", Value: []byte(user)},
		},
	}
}

func TestProcessorRetriesTransientHandlerErrors(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{updatedMessage(20, "u2")}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("redis timeout"), failures: 2}
	logger, _ := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger), WithHandlerBackOff(noWait)).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestProcessorCommitsEventsThatKeepFailing(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{updatedMessage(21, "u2")}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("boom")}
	logger, hook := test.NewNullLogger()

	before := testutil.ToFloat64(handlerErrorCounter.WithLabelValues(events.RecordsTopic, events.RecordUpdated))
	err := NewProcessor(reader, handler, WithLogger(logger), WithHandlerBackOff(noWait)).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls, "one attempt plus two retries")
	require.Equal(t, 1, reader.commitCalls)
	require.NotNil(t, hook.LastEntry())
	require.Equal(t, "handler error", hook.LastEntry().Message)
	require.InDelta(t, before+1, testutil.ToFloat64(handlerErrorCounter.WithLabelValues(events.RecordsTopic, events.RecordUpdated)), 0.0001)
}

func TestProcessorDoesNotRetryPermanentErrors(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{updatedMessage(22, "u2")}, after: contextCanceled}
	handler := &stubHandler{err: backoff.Permanent(errors.New("bad payload"))}
	logger, _ := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger), WithHandlerBackOff(noWait)).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestProcessorLeavesMessageUncommittedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &stubReader{messages: []kafka.Message{updatedMessage(23, "u2")}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("boom"), onCall: cancel}
	logger, _ := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger), WithHandlerBackOff(noWait)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls)
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: events.RecordsTopic, Value: []byte{0, 1}},
			{Topic: events.RecordsTopic, Value: framed(1, []byte(`{}`))},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues(events.RecordsTopic))
	err := NewProcessor(reader, handler, WithLogger(logger)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 2, reader.commitCalls, "short payloads and missing event_type headers are committed")
	require.InDelta(t, before+2, testutil.ToFloat64(decodeErrorCounter.WithLabelValues(events.RecordsTopic)), 0.0001)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

// stubHandler fails with err on every call, or only on the first failures calls when failures is
// positive.
type stubHandler struct {
	calls    int
	err      error
	failures int
	onCall   func()
	last     Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.onCall != nil {
		h.onCall()
	}
	if h.failures > 0 && h.calls > h.failures {
		return nil
	}
	return h.err
}
