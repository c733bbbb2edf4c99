// Package redisstate keeps the per-day queue counter and the global serving
// value in Redis so that several API instances share them.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

const (
	defaultTTL     = 48 * time.Hour
	publishRetries = 5
)

func sequenceKey(date string) string { return fmt.Sprintf("booking:queue_number:%s", date) }
func servingKey(date string) string  { return fmt.Sprintf("queue:serving:%s", date) }

/*
|--------------------------------------------------------------------------
| Queue Number Sequence
|--------------------------------------------------------------------------
*/

type Sequence struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSequence(client redis.Cmdable) *Sequence {
	return &Sequence{client: client, ttl: defaultTTL}
}

func (s *Sequence) Next(ctx context.Context, date string) (int, error) {
	key := sequenceKey(date)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return int(incr.Val()), nil
}

/*
|--------------------------------------------------------------------------
| Serving State
|--------------------------------------------------------------------------
| Disimpan sebagai hash: number, window_id, window_number, window_name,
| last_recall (RFC3339Nano), version
*/

type Serving struct {
	client *redis.Client
	ttl    time.Duration
}

func NewServing(client *redis.Client) *Serving {
	return &Serving{client: client, ttl: defaultTTL}
}

func (s *Serving) Current(ctx context.Context, date string) (models.Serving, error) {
	fields, err := s.client.HGetAll(ctx, servingKey(date)).Result()
	if err != nil {
		return models.Serving{}, err
	}
	return decodeServing(fields)
}

// Publish replaces the serving value under WATCH so that the version and the
// recall stamp advance atomically across instances.
func (s *Serving) Publish(ctx context.Context, date string, serving models.Serving, forceRecall bool, at time.Time) (models.Serving, error) {
	key := servingKey(date)
	var out models.Serving

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		prev, err := decodeServing(fields)
		if err != nil {
			return err
		}

		out = nextServing(prev, serving, forceRecall, at)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, encodeServing(out))
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < publishRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.Serving{}, err
	}
	return models.Serving{}, fmt.Errorf("publish %s: %w", key, redis.TxFailedErr)
}

func nextServing(prev, next models.Serving, forceRecall bool, at time.Time) models.Serving {
	next.Version = prev.Version + 1
	next.LastRecallTime = prev.LastRecallTime
	if forceRecall {
		t := store.NextRecallTime(prev.LastRecallTime, at)
		next.LastRecallTime = &t
	}
	return next
}

func encodeServing(s models.Serving) map[string]interface{} {
	fields := map[string]interface{}{
		"number":  s.QueueNumber,
		"version": s.Version,
	}
	if s.WindowID != nil {
		fields["window_id"] = *s.WindowID
	}
	if s.WindowNumber != nil {
		fields["window_number"] = *s.WindowNumber
	}
	if s.WindowName != nil {
		fields["window_name"] = *s.WindowName
	}
	if s.LastRecallTime != nil {
		fields["last_recall"] = s.LastRecallTime.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeServing(fields map[string]string) (models.Serving, error) {
	var (
		s   models.Serving
		err error
	)
	if len(fields) == 0 {
		return s, nil
	}

	if v, ok := fields["number"]; ok {
		if s.QueueNumber, err = strconv.Atoi(v); err != nil {
			return s, fmt.Errorf("serving number: %w", err)
		}
	}
	if v, ok := fields["version"]; ok {
		if s.Version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return s, fmt.Errorf("serving version: %w", err)
		}
	}
	if v, ok := fields["window_id"]; ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("serving window_id: %w", err)
		}
		s.WindowID = &id
	}
	if v, ok := fields["window_number"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("serving window_number: %w", err)
		}
		s.WindowNumber = &n
	}
	if v, ok := fields["window_name"]; ok {
		name := v
		s.WindowName = &name
	}
	if v, ok := fields["last_recall"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return s, fmt.Errorf("serving last_recall: %w", err)
		}
		s.LastRecallTime = &t
	}
	return s, nil
}

var (
	_ store.QueueSequence = (*Sequence)(nil)
	_ store.ServingState  = (*Serving)(nil)
)
