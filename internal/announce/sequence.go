package announce

import (
	"context"
	"errors"
	"time"
)

type stage struct {
	name    string
	timeout time.Duration
	play    func(ctx context.Context) error
}

func (e *Engine) stages(a Announcement) []stage {
	out := []stage{{
		name:    "tone",
		timeout: e.cfg.ToneTimeout,
		play:    e.backend.PlayTone,
	}}
	for _, m := range a.Messages {
		m := m
		out = append(out, stage{
			name:    "speech:" + m.Locale.String(),
			timeout: e.cfg.SpeechTimeout,
			play: func(ctx context.Context) error {
				return e.backend.Speak(ctx, m.Text, m.Locale)
			},
		})
	}
	return out
}

// run plays the stages in order. A failed or timed out stage is logged and
// the next one starts; only cancellation ends the sequence early.
func (e *Engine) run(ctx context.Context, a Announcement, done chan struct{}) {
	defer close(done)

	for _, st := range e.stages(a) {
		if ctx.Err() != nil {
			e.log.Debug().Str("announcement_id", a.ID).Msg("announcement preempted")
			return
		}

		err := runStage(ctx, st.timeout, st.play)
		if ctx.Err() != nil {
			e.log.Debug().Str("announcement_id", a.ID).Str("stage", st.name).Msg("announcement preempted")
			return
		}
		if err != nil {
			ev := e.log.Warn()
			if errors.Is(err, context.DeadlineExceeded) {
				ev = ev.Bool("timeout", true)
			}
			ev.Err(err).
				Str("announcement_id", a.ID).
				Str("stage", st.name).
				Msg("announcement stage degraded")
		}
	}

	e.log.Info().Str("announcement_id", a.ID).Msg("announcement finished")
}

// runStage bounds play by timeout. It returns as soon as the deadline passes
// or ctx is cancelled, even if play itself ignores its context.
func runStage(ctx context.Context, timeout time.Duration, play func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- play(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
