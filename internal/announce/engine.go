// Package announce turns polled status snapshots into spoken announcements.
//
// An Engine compares every snapshot with what it last announced and, when the
// serving number, its window or the recall stamp moved, runs a three stage
// sequence: attention tone, primary locale speech, secondary locale speech.
// A newer announcement preempts the running one.
package announce

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"backend-booking/internal/models"
)

const (
	DefaultToneTimeout   = 2 * time.Second
	DefaultSpeechTimeout = 15 * time.Second
)

type Config struct {
	Primary       language.Tag
	Secondary     language.Tag
	ToneTimeout   time.Duration
	SpeechTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Primary == language.Und {
		c.Primary = language.MustParse("ar-SA")
	}
	if c.Secondary == language.Und {
		c.Secondary = language.AmericanEnglish
	}
	if c.ToneTimeout <= 0 {
		c.ToneTimeout = DefaultToneTimeout
	}
	if c.SpeechTimeout <= 0 {
		c.SpeechTimeout = DefaultSpeechTimeout
	}
	return c
}

// Announcement is one decided announcement and the lines it speaks.
type Announcement struct {
	ID           string
	QueueNumber  int
	WindowNumber *int
	WindowName   *string
	Recall       bool
	Messages     []Message
}

// decisionState is what was last announced.
type decisionState struct {
	number int
	window *int
	recall *time.Time
}

func stateOf(s models.StatusSnapshot) decisionState {
	st := decisionState{number: s.CurrentServing}
	if s.WindowNumber != nil {
		w := *s.WindowNumber
		st.window = &w
	}
	if s.LastRecallTime != nil {
		t := *s.LastRecallTime
		st.recall = &t
	}
	return st
}

func sameWindow(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// decide reports whether snap warrants an announcement given the last
// announced state, and whether it is a forced recall.
func (st decisionState) decide(snap models.StatusSnapshot) (announce, recall bool) {
	if snap.CurrentServing <= 0 {
		return false, false
	}
	numberChanged := snap.CurrentServing != st.number
	windowChanged := !sameWindow(snap.WindowNumber, st.window)
	recall = snap.LastRecallTime != nil &&
		(st.recall == nil || !snap.LastRecallTime.Equal(*st.recall))
	return numberChanged || windowChanged || recall, recall
}

type Engine struct {
	backend Backend
	cfg     Config
	log     zerolog.Logger

	// mu serialises snapshot handling; the sequence goroutine never takes it.
	mu          sync.Mutex
	initialized bool
	enabled     bool
	state       decisionState
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewEngine(backend Backend, cfg Config) *Engine {
	if backend == nil {
		backend = NopBackend{}
	}
	return &Engine{
		backend: backend,
		cfg:     cfg.withDefaults(),
		log:     log.With().Str("component", "announce").Logger(),
		enabled: true,
	}
}

// Reset stops any running sequence and forgets the decision state. The next
// snapshot only seeds the state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.initialized = false
	e.state = decisionState{}
}

func (e *Engine) Enable() {
	e.mu.Lock()
	e.enabled = true
	e.mu.Unlock()
	e.log.Info().Msg("voice enabled")
}

// Disable silences the engine and stops the running sequence.
func (e *Engine) Disable() {
	e.mu.Lock()
	e.enabled = false
	e.stopLocked()
	e.mu.Unlock()
	e.log.Info().Msg("voice disabled")
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Handle processes one snapshot. It returns the announcement that was
// started, if any. Suitable as a poller subscriber.
func (e *Engine) Handle(snap models.StatusSnapshot) (Announcement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		e.state = stateOf(snap)
		e.initialized = true
		e.log.Debug().Int("serving", snap.CurrentServing).Msg("decision state seeded")
		return Announcement{}, false
	}

	announce, recall := e.state.decide(snap)
	if !announce {
		return Announcement{}, false
	}
	if !e.enabled {
		e.state = stateOf(snap)
		return Announcement{}, false
	}

	a := e.compose(snap, recall)
	e.stopLocked()
	e.startLocked(a)
	e.state = stateOf(snap)

	e.log.Info().
		Str("announcement_id", a.ID).
		Int("serving", a.QueueNumber).
		Bool("recall", recall).
		Msg("announcement started")
	return a, true
}

// Wait blocks until the running sequence, if any, has finished.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops the running sequence.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) compose(snap models.StatusSnapshot, recall bool) Announcement {
	a := Announcement{
		ID:           uuid.NewString(),
		QueueNumber:  snap.CurrentServing,
		WindowNumber: snap.WindowNumber,
		WindowName:   snap.WindowName,
		Recall:       recall,
	}
	for _, locale := range []language.Tag{e.cfg.Primary, e.cfg.Secondary} {
		a.Messages = append(a.Messages, Message{
			Locale: locale,
			Text:   ComposeMessage(locale, snap.CurrentServing, snap.WindowNumber, snap.WindowName),
		})
	}
	return a
}

// stopLocked cancels the running sequence, mutes the backend and waits for
// the sequence goroutine to exit.
func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	select {
	case <-e.done:
	default:
		e.cancel()
		e.backend.Cancel()
		<-e.done
	}
	e.cancel()
	e.cancel = nil
}

func (e *Engine) startLocked(a Announcement) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel, e.done = cancel, done
	go e.run(ctx, a, done)
}
