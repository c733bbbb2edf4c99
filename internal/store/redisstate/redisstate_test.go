package redisstate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-booking/internal/models"
)

// stringify mirrors what HGETALL hands back for fields written by HSET.
func stringify(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func TestServingHashRoundTrip(t *testing.T) {
	id, number, name := int64(3), 3, "Window C"
	recall := time.Date(2026, 10, 15, 10, 4, 5, 123456789, time.UTC)
	in := models.Serving{
		QueueNumber:    17,
		WindowID:       &id,
		WindowNumber:   &number,
		WindowName:     &name,
		LastRecallTime: &recall,
		Version:        9,
	}

	out, err := decodeServing(stringify(encodeServing(in)))
	require.NoError(t, err)
	assert.Equal(t, 17, out.QueueNumber)
	assert.Equal(t, int64(9), out.Version)
	require.NotNil(t, out.WindowName)
	assert.Equal(t, "Window C", *out.WindowName)
	require.NotNil(t, out.LastRecallTime)
	assert.True(t, out.LastRecallTime.Equal(recall))
}

func TestDecodeEmptyHashIsNotServing(t *testing.T) {
	out, err := decodeServing(map[string]string{})
	require.NoError(t, err)
	assert.Zero(t, out.QueueNumber)
	assert.Nil(t, out.WindowID)
	assert.Nil(t, out.LastRecallTime)
}

func TestDecodeRejectsCorruptFields(t *testing.T) {
	_, err := decodeServing(map[string]string{"number": "abc"})
	assert.Error(t, err)

	_, err = decodeServing(map[string]string{"number": "1", "last_recall": "yesterday"})
	assert.Error(t, err)
}

func TestNextServing(t *testing.T) {
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	first := nextServing(models.Serving{}, models.Serving{QueueNumber: 4}, false, at)
	assert.Equal(t, int64(1), first.Version)
	assert.Nil(t, first.LastRecallTime)

	recalled := nextServing(first, models.Serving{QueueNumber: 4}, true, at)
	require.NotNil(t, recalled.LastRecallTime)
	assert.True(t, recalled.LastRecallTime.Equal(at))

	again := nextServing(recalled, models.Serving{QueueNumber: 4}, true, at)
	assert.True(t, again.LastRecallTime.After(*recalled.LastRecallTime))
	assert.Equal(t, int64(3), again.Version)

	plain := nextServing(again, models.Serving{QueueNumber: 5}, false, at.Add(time.Minute))
	assert.Equal(t, again.LastRecallTime, plain.LastRecallTime)
	assert.Equal(t, 5, plain.QueueNumber)
}

func TestKeysAreScopedByDate(t *testing.T) {
	assert.Equal(t, "booking:queue_number:2026-10-15", sequenceKey("2026-10-15"))
	assert.Equal(t, "queue:serving:2026-10-15", servingKey("2026-10-15"))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return m, client
}

func TestSequenceNextPerDate(t *testing.T) {
	m, client := newRedis(t)
	seq := NewSequence(client)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := seq.Next(ctx, "2026-10-15")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.Next(ctx, "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, 1, got, "each date starts its own sequence")

	assert.Equal(t, defaultTTL, m.TTL(sequenceKey("2026-10-15")))
}

func TestServingPublish(t *testing.T) {
	m, client := newRedis(t)
	serving := NewServing(client)
	ctx := context.Background()
	date := "2026-10-15"
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	window := int64(2)
	number := 2
	name := "Window B"
	next := models.Serving{QueueNumber: 5, WindowID: &window, WindowNumber: &number, WindowName: &name}

	first, err := serving.Publish(ctx, date, next, false, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Nil(t, first.LastRecallTime)

	recalled, err := serving.Publish(ctx, date, next, true, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), recalled.Version)
	require.NotNil(t, recalled.LastRecallTime)
	assert.True(t, recalled.LastRecallTime.Equal(at))

	again, err := serving.Publish(ctx, date, next, true, at)
	require.NoError(t, err)
	require.NotNil(t, again.LastRecallTime)
	assert.True(t, again.LastRecallTime.After(*recalled.LastRecallTime), "same clock tick still advances the stamp")

	plain, err := serving.Publish(ctx, date, models.Serving{QueueNumber: 6}, false, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(4), plain.Version)
	require.NotNil(t, plain.LastRecallTime)
	assert.True(t, plain.LastRecallTime.Equal(*again.LastRecallTime), "a plain publish keeps the previous stamp")
	assert.Nil(t, plain.WindowNumber)

	current, err := serving.Current(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 6, current.QueueNumber)
	assert.Equal(t, int64(4), current.Version)
	assert.True(t, current.LastRecallTime.Equal(*again.LastRecallTime))

	assert.Equal(t, defaultTTL, m.TTL(servingKey(date)))
}

func TestServingPublishAcrossInstances(t *testing.T) {
	_, client := newRedis(t)
	a, b := NewServing(client), NewServing(client)
	ctx := context.Background()
	date := "2026-10-15"
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	var last *time.Time
	for i, s := range []*Serving{a, b, a, b} {
		out, err := s.Publish(ctx, date, models.Serving{QueueNumber: 7}, true, at)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), out.Version)
		require.NotNil(t, out.LastRecallTime)
		if last != nil {
			assert.True(t, out.LastRecallTime.After(*last))
		}
		last = out.LastRecallTime
	}
}

func TestServingCurrentEmpty(t *testing.T) {
	_, client := newRedis(t)
	current, err := NewServing(client).Current(context.Background(), "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, models.Serving{}, current)
}
