package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-booking/internal/models"
)

type fakeSource struct {
	fetchFn func(ctx context.Context) (models.StatusSnapshot, error)
}

func (f fakeSource) GetStatusSnapshot(ctx context.Context) (models.StatusSnapshot, error) {
	return f.fetchFn(ctx)
}

func staticSource(snap models.StatusSnapshot) fakeSource {
	return fakeSource{fetchFn: func(context.Context) (models.StatusSnapshot, error) { return snap, nil }}
}

func TestPollNotifiesSubscribersInOrder(t *testing.T) {
	p := New(staticSource(models.StatusSnapshot{CurrentServing: 5, Version: 3}), time.Hour, time.Second)

	var calls []string
	p.Subscribe(func(s models.StatusSnapshot) { calls = append(calls, "first") })
	p.Subscribe(func(s models.StatusSnapshot) { calls = append(calls, "second") })

	_, ok := p.Latest()
	assert.False(t, ok)

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []string{"first", "second"}, calls)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 5, latest.CurrentServing)
}

func TestPollFailureKeepsLastSnapshot(t *testing.T) {
	fail := false
	src := fakeSource{fetchFn: func(context.Context) (models.StatusSnapshot, error) {
		if fail {
			return models.StatusSnapshot{}, errors.New("dial tcp: connection refused")
		}
		return models.StatusSnapshot{CurrentServing: 9}, nil
	}}
	p := New(src, time.Hour, time.Second)

	delivered := 0
	p.Subscribe(func(models.StatusSnapshot) { delivered++ })

	require.NoError(t, p.Poll(context.Background()))
	fail = true
	err := p.Poll(context.Background())
	assert.ErrorIs(t, err, ErrTransientFetch)
	assert.Equal(t, 1, delivered)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 9, latest.CurrentServing)
}

func TestUnsubscribe(t *testing.T) {
	p := New(staticSource(models.StatusSnapshot{CurrentServing: 1}), time.Hour, time.Second)

	a, b := 0, 0
	unsubA := p.Subscribe(func(models.StatusSnapshot) { a++ })
	p.Subscribe(func(models.StatusSnapshot) { b++ })

	require.NoError(t, p.Poll(context.Background()))
	unsubA()
	unsubA()
	require.NoError(t, p.Poll(context.Background()))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestRunFetchesImmediately(t *testing.T) {
	p := New(staticSource(models.StatusSnapshot{CurrentServing: 2}), time.Hour, time.Second)

	got := make(chan models.StatusSnapshot, 1)
	p.Subscribe(func(s models.StatusSnapshot) {
		select {
		case got <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case s := <-got:
		assert.Equal(t, 2, s.CurrentServing)
	case <-time.After(time.Second):
		t.Fatal("no snapshot before the first interval elapsed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSurvivesFailuresWithoutOverlap(t *testing.T) {
	var (
		calls    int32
		inFlight int32
		maxSeen  int32
	)
	src := fakeSource{fetchFn: func(context.Context) (models.StatusSnapshot, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if atomic.AddInt32(&calls, 1) <= 3 {
			return models.StatusSnapshot{}, errors.New("timeout")
		}
		return models.StatusSnapshot{CurrentServing: 4}, nil
	}}
	p := New(src, time.Millisecond, time.Second)

	var once sync.Once
	got := make(chan struct{})
	p.Subscribe(func(models.StatusSnapshot) { once.Do(func() { close(got) }) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("poller stopped after fetch failures")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestPollHonoursFetchTimeout(t *testing.T) {
	src := fakeSource{fetchFn: func(ctx context.Context) (models.StatusSnapshot, error) {
		<-ctx.Done()
		return models.StatusSnapshot{}, ctx.Err()
	}}
	p := New(src, time.Hour, 10*time.Millisecond)

	err := p.Poll(context.Background())
	assert.ErrorIs(t, err, ErrTransientFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
