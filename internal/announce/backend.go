package announce

import (
	"context"
	"errors"

	"golang.org/x/text/language"
)

// ErrBackendUnavailable is returned by a Backend that has nothing to play
// on, e.g. no display is connected. The sequence skips the stage.
var ErrBackendUnavailable = errors.New("notification backend unavailable")

// Backend plays the audible parts of an announcement. Calls block until the
// stage finished or failed. Cancel stops whatever is currently playing.
type Backend interface {
	PlayTone(ctx context.Context) error
	Speak(ctx context.Context, text string, locale language.Tag) error
	Cancel()
}

// NopBackend accepts every stage without doing anything.
type NopBackend struct{}

func (NopBackend) PlayTone(context.Context) error                    { return nil }
func (NopBackend) Speak(context.Context, string, language.Tag) error { return nil }
func (NopBackend) Cancel()                                           {}
