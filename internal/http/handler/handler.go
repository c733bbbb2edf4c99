// Package handler exposes the booking, queue, window and display endpoints.
package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"backend-booking/internal/announce"
	"backend-booking/internal/dispatch"
	"backend-booking/internal/http/middleware"
	"backend-booking/internal/poller"
	"backend-booking/internal/realtime"
	"backend-booking/internal/store"
)

const statusFetchTimeout = 5 * time.Second

type Deps struct {
	Bookings    store.BookingStore
	Windows     store.WindowRegistry
	Users       store.UserStore
	Coordinator *dispatch.Coordinator
	Poller      *poller.Poller
	Voice       *announce.Engine
	Display     *realtime.DisplayHub
	Options     store.Options
}

type Handler struct {
	bookings    store.BookingStore
	windows     store.WindowRegistry
	users       store.UserStore
	coordinator *dispatch.Coordinator
	poller      *poller.Poller
	voice       *announce.Engine
	display     *realtime.DisplayHub
	opts        store.Options
	validate    *validator.Validate
	log         zerolog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		bookings:    d.Bookings,
		windows:     d.Windows,
		users:       d.Users,
		coordinator: d.Coordinator,
		poller:      d.Poller,
		voice:       d.Voice,
		display:     d.Display,
		opts:        d.Options.WithDefaults(),
		validate:    newValidator(),
		log:         log.With().Str("component", "queue").Logger(),
	}
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

/*
|--------------------------------------------------------------------------
| Response Helpers
|--------------------------------------------------------------------------
*/

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// storeError maps store and dispatch sentinels to HTTP statuses.
func (h *Handler) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNoWaitingTickets),
		errors.Is(err, store.ErrBookingNotFound),
		errors.Is(err, store.ErrWindowNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrWindowNotAssigned):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotInWaitingState),
		errors.Is(err, store.ErrNotInProgress),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrWindowInactive):
		return fail(c, fiber.StatusConflict, err.Error())
	}

	h.log.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

func (h *Handler) validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "Validation failed",
		"fields":  fields,
	})
}

/*
|--------------------------------------------------------------------------
| Request Helpers
|--------------------------------------------------------------------------
*/

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func staffID(c *fiber.Ctx) (int64, bool) {
	return middleware.UserID(c)
}

// queryDate parses ?<key>=YYYY-MM-DD in the business location. An absent
// value returns nil.
func (h *Handler) queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(store.DateLayout, raw, h.opts.Location)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
