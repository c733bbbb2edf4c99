package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type App struct {
	Host        string
	Port        string
	Env         string
	StoreDriver string

	DisplayUser string
	DisplayPass string

	PollInterval  time.Duration
	FetchTimeout  time.Duration
	WindowTimeout time.Duration
	ToneTimeout   time.Duration
	SpeechTimeout time.Duration
	AckTimeout    time.Duration

	PrimaryLocale   language.Tag
	SecondaryLocale language.Tag
	TonePath        string

	Location *time.Location
	OpenAt   string
	CloseAt  string
}

// LoadApp reads the application settings from the environment. Call LoadEnv
// first when a .env file should be honoured.
func LoadApp() (App, error) {
	app := App{
		Host:          GetEnv("APP_HOST", "0.0.0.0"),
		Port:          GetEnv("APP_PORT", "8080"),
		Env:           GetEnv("APP_ENV", "development"),
		StoreDriver:   GetEnv("STORE_DRIVER", DriverMySQL),
		DisplayUser:   GetEnv("DISPLAY_USER", "display"),
		DisplayPass:   GetEnv("DISPLAY_PASS", ""),
		PollInterval:  GetEnvDuration("POLL_INTERVAL", 2*time.Second),
		FetchTimeout:  GetEnvDuration("FETCH_TIMEOUT", 5*time.Second),
		WindowTimeout: GetEnvDuration("WINDOW_TIMEOUT", 3*time.Second),
		ToneTimeout:   GetEnvDuration("TONE_TIMEOUT", 2*time.Second),
		SpeechTimeout: GetEnvDuration("SPEECH_TIMEOUT", 15*time.Second),
		AckTimeout:    GetEnvDuration("DISPLAY_ACK_TIMEOUT", 10*time.Second),
		TonePath:      GetEnv("TONE_PATH", "audio/announcement.mp3"),
		OpenAt:        GetEnv("OPEN_AT", ""),
		CloseAt:       GetEnv("CLOSE_AT", ""),
	}

	if app.StoreDriver != DriverMySQL && app.StoreDriver != DriverMemory {
		return app, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, app.StoreDriver)
	}

	var err error
	if app.PrimaryLocale, err = language.Parse(GetEnv("PRIMARY_LOCALE", "ar-SA")); err != nil {
		return app, fmt.Errorf("PRIMARY_LOCALE: %w", err)
	}
	if app.SecondaryLocale, err = language.Parse(GetEnv("SECONDARY_LOCALE", "en-US")); err != nil {
		return app, fmt.Errorf("SECONDARY_LOCALE: %w", err)
	}
	if app.Location, err = time.LoadLocation(GetEnv("TIMEZONE", "Local")); err != nil {
		return app, fmt.Errorf("TIMEZONE: %w", err)
	}

	return app, nil
}

func (a App) Addr() string {
	return a.Host + ":" + a.Port
}
