package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsKey(t *testing.T) {
	start := time.Date(2025, time.March, 3, 18, 0, 42, 0, time.UTC)
	assert.Equal(t, "stats:u1:week:3:2025-03-10:1741024800", StatisticsKey("u1", "week", 3, "2025-03-10", start))
	assert.Equal(t, StatisticsKey("u1", "week", 3, "2025-03-10", start),
		StatisticsKey("u1", "week", 3, "2025-03-10", start.Add(15*time.Second)))
	assert.NotEqual(t, StatisticsKey("u1", "week", 3, "2025-03-10", start),
		StatisticsKey("u1", "week", 3, "2025-03-10", start.Add(time.Minute)))
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, time.Minute)

	mock.ExpectGet("stats:k").SetErr(redis.Nil)
	_, ok, err := c.Get(ctx, "stats:k")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectSet("stats:k", []byte(`{"a":1}`), time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "stats:k", []byte(`{"a":1}`)))

	mock.ExpectGet("stats:k").SetVal(`{"a":1}`)
	value, ok, err := c.Get(ctx, "stats:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(value))

	mock.ExpectGet("stats:k").SetErr(errors.New("connection refused"))
	_, _, err = c.Get(ctx, "stats:k")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheRecordsVersion(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, 0)

	mock.ExpectGet("records-version:u1").SetErr(redis.Nil)
	version, err := c.RecordsVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, version)

	mock.ExpectIncr("records-version:u1").SetVal(1)
	require.NoError(t, c.BumpRecordsVersion(ctx, "u1"))

	mock.ExpectGet("records-version:u1").SetVal("1")
	version, err = c.RecordsVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	mock.ExpectIncr("records-version:u1").SetErr(errors.New("readonly"))
	require.Error(t, c.BumpRecordsVersion(ctx, "u1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(1, time.Minute)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(value))
	assert.Equal(t, int64(1), c.EntryCount())

	version, err := c.RecordsVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, c.BumpRecordsVersion(ctx, "u1"))
	require.NoError(t, c.BumpRecordsVersion(ctx, "u1"))
	version, err = c.RecordsVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	other, err := c.RecordsVersion(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, other)
}
