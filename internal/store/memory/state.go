package memory

import (
	"context"
	"sync"
	"time"

	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

// Sequence is an in-process store.QueueSequence.
type Sequence struct {
	mu   sync.Mutex
	last map[string]int
}

func NewSequence() *Sequence {
	return &Sequence{last: make(map[string]int)}
}

func (s *Sequence) Next(ctx context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[date]++
	return s.last[date], nil
}

// Serving is an in-process store.ServingState.
type Serving struct {
	mu     sync.Mutex
	byDate map[string]models.Serving
}

func NewServing() *Serving {
	return &Serving{byDate: make(map[string]models.Serving)}
}

func (s *Serving) Current(ctx context.Context, date string) (models.Serving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byDate[date], nil
}

func (s *Serving) Publish(ctx context.Context, date string, serving models.Serving, forceRecall bool, at time.Time) (models.Serving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.byDate[date]
	serving.Version = prev.Version + 1
	serving.LastRecallTime = prev.LastRecallTime
	if forceRecall {
		t := store.NextRecallTime(prev.LastRecallTime, at)
		serving.LastRecallTime = &t
	}
	s.byDate[date] = serving
	return serving, nil
}

var (
	_ store.QueueSequence = (*Sequence)(nil)
	_ store.ServingState  = (*Serving)(nil)
)
