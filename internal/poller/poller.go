// Package poller fetches the global status snapshot on a fixed interval and
// fans it out to subscribers.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"backend-booking/internal/models"
)

const (
	DefaultInterval     = 2 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

// ErrTransientFetch marks a failed poll. The poller logs it, keeps the last
// good snapshot and tries again on the next tick.
var ErrTransientFetch = errors.New("transient snapshot fetch failure")

// Source is anything that can produce a status snapshot, usually the booking
// store.
type Source interface {
	GetStatusSnapshot(ctx context.Context) (models.StatusSnapshot, error)
}

type Subscriber func(models.StatusSnapshot)

type Poller struct {
	source       Source
	interval     time.Duration
	fetchTimeout time.Duration
	log          zerolog.Logger

	mu     sync.Mutex
	subs   map[string]Subscriber
	order  []string
	latest *models.StatusSnapshot
}

func New(source Source, interval, fetchTimeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Poller{
		source:       source,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		log:          log.With().Str("component", "poller").Logger(),
		subs:         make(map[string]Subscriber),
	}
}

// Subscribe registers fn for every successful poll. Subscribers run in
// registration order on the polling goroutine. The returned func removes fn
// and is safe to call more than once.
func (p *Poller) Subscribe(fn Subscriber) (unsubscribe func()) {
	id := uuid.NewString()

	p.mu.Lock()
	p.subs[id] = fn
	p.order = append(p.order, id)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			for i, sid := range p.order {
				if sid == id {
					p.order = append(p.order[:i], p.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Latest returns the last successfully fetched snapshot.
func (p *Poller) Latest() (models.StatusSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return models.StatusSnapshot{}, false
	}
	return *p.latest, true
}

// Run polls immediately and then once per interval until ctx is done. Fetches
// never overlap: a slow fetch delays the next tick instead of stacking.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			p.log.Info().Msg("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll performs a single fetch and notifies subscribers on success.
func (p *Poller) Poll(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	snap, err := p.source.GetStatusSnapshot(fetchCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Warn().Err(err).Msg("snapshot fetch failed, keeping last snapshot")
		return errors.Join(ErrTransientFetch, err)
	}

	p.mu.Lock()
	p.latest = &snap
	subs := make([]Subscriber, 0, len(p.order))
	for _, id := range p.order {
		subs = append(subs, p.subs[id])
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}
