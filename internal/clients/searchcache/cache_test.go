package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-agent/internal/models"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

type countingRetriever struct {
	calls  int
	result *models.SearchResult
	err    error
}

func (r *countingRetriever) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	r.calls++
	return r.result, r.err
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func sampleResult() *models.SearchResult {
	return &models.SearchResult{
		Answer:  "Check the compressor mount.",
		Sources: []models.DocumentReference{{Name: "HVAC Manual", Snippet: "mount torque"}},
	}
}

func TestKey_Normalises(t *testing.T) {
	assert.Equal(t, "voice:search:for brake system fault", Key("  For   Brake System FAULT "))
	assert.Equal(t, Key("door sensor"), Key("DOOR  sensor"))
}

func TestCache_MissThenHit(t *testing.T) {
	rdb, mr := setupRedis(t)
	next := &countingRetriever{result: sampleResult()}
	cache := New(&Config{TTL: time.Minute}, next, rdb, &TestLogger{t: t})

	first, err := cache.Search(context.Background(), "HVAC noise")
	require.NoError(t, err)
	second, err := cache.Search(context.Background(), "hvac  NOISE")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("voice:search:hvac noise"))
	assert.Equal(t, time.Minute, mr.TTL("voice:search:hvac noise"))
}

func TestCache_FailuresAreNotCached(t *testing.T) {
	rdb, mr := setupRedis(t)
	next := &countingRetriever{err: errors.New("RETRIEVAL_FAILED: backend down")}
	cache := New(&Config{TTL: time.Minute}, next, rdb, &TestLogger{t: t})

	_, err := cache.Search(context.Background(), "brakes")
	assert.EqualError(t, err, "RETRIEVAL_FAILED: backend down")
	_, _ = cache.Search(context.Background(), "brakes")

	assert.Equal(t, 2, next.calls)
	assert.False(t, mr.Exists(Key("brakes")))
}

func TestCache_CorruptEntryIsReplaced(t *testing.T) {
	rdb, mr := setupRedis(t)
	require.NoError(t, mr.Set(Key("brakes"), "{not json"))
	next := &countingRetriever{result: sampleResult()}
	cache := New(&Config{TTL: time.Minute}, next, rdb, &TestLogger{t: t})

	res, err := cache.Search(context.Background(), "brakes")

	require.NoError(t, err)
	assert.Equal(t, sampleResult(), res)
	assert.Equal(t, 1, next.calls)

	stored, _ := mr.Get(Key("brakes"))
	var decoded models.SearchResult
	require.NoError(t, json.Unmarshal([]byte(stored), &decoded))
	assert.Equal(t, "Check the compressor mount.", decoded.Answer)
}

func TestCache_RedisErrorsAreBypassed(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	key := Key("brakes")
	data, _ := json.Marshal(sampleResult())

	redisMock.ExpectGet(key).SetErr(errors.New("connection refused"))
	redisMock.ExpectSet(key, data, time.Minute).SetErr(errors.New("connection refused"))

	next := &countingRetriever{result: sampleResult()}
	cache := New(&Config{TTL: time.Minute}, next, redisClient, &TestLogger{t: t})

	res, err := cache.Search(context.Background(), "brakes")

	require.NoError(t, err)
	assert.Equal(t, sampleResult(), res)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCache_MissStoresResult(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	key := Key("door sensor")
	data, _ := json.Marshal(sampleResult())

	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectSet(key, data, 5*time.Minute).SetVal("OK")

	cache := New(&Config{TTL: 5 * time.Minute}, &countingRetriever{result: sampleResult()}, redisClient, &TestLogger{t: t})

	_, err := cache.Search(context.Background(), "door sensor")
	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
