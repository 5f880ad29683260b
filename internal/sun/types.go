package sun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sky-gradient/internal/daytime"

	"github.com/sirupsen/logrus"
)

var (
	ErrMalformedTime   = errors.New("malformed time string")
	ErrMissingField    = errors.New("missing field in solar timings")
	ErrUpstreamStatus  = errors.New("solar timings service returned a failure status")
	ErrEventNotReached = errors.New("solar event does not occur on this date")
)

// Provider produces the solar timings for a calendar date. A zero date
// means "today" for the provider's location.
type Provider interface {
	Name() string
	Get(ctx context.Context, date time.Time) (*Timings, error)
}

// Timings holds the day's solar events as minutes since local midnight.
// Values are expected to satisfy
// FirstLight <= Dawn <= Sunrise <= SolarNoon <= Sunset <= Dusk <= LastLight.
type Timings struct {
	Date       string          `json:"date,omitempty"`
	Source     string          `json:"source"`
	FirstLight daytime.Minutes `json:"first_light"`
	Dawn       daytime.Minutes `json:"dawn"`
	Sunrise    daytime.Minutes `json:"sunrise"`
	SolarNoon  daytime.Minutes `json:"solar_noon"`
	Sunset     daytime.Minutes `json:"sunset"`
	Dusk       daytime.Minutes `json:"dusk"`
	LastLight  daytime.Minutes `json:"last_light"`
}

func (t *Timings) IsDaylight(m daytime.Minutes) bool {
	if t == nil {
		return false
	}
	return m >= t.Sunrise && m < t.Sunset
}

// Result is the outcome of a single fetch attempt.
type Result struct {
	Timings *Timings
	Err     error
}

func (r Result) OK() bool {
	return r.Err == nil && r.Timings != nil
}

// Load fetches timings once. Failures are logged and reported through the
// returned Result; Load never retries.
func Load(ctx context.Context, p Provider, date time.Time, log logrus.FieldLogger) Result {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if p == nil {
		err := errors.New("no solar timings provider configured")
		log.WithError(err).Error("Failed to fetch solar timings")
		return Result{Err: err}
	}

	timings, err := p.Get(ctx, date)
	if err == nil && timings == nil {
		err = fmt.Errorf("%w: provider %s returned no timings", ErrMissingField, p.Name())
	}
	if err != nil {
		log.WithFields(logrus.Fields{
			"provider": p.Name(),
		}).WithError(err).Error("Failed to fetch solar timings")
		return Result{Err: err}
	}

	log.WithFields(logrus.Fields{
		"provider":   p.Name(),
		"date":       timings.Date,
		"sunrise":    timings.Sunrise.String(),
		"sunset":     timings.Sunset.String(),
		"solar_noon": timings.SolarNoon.String(),
	}).Debug("Fetched solar timings")
	return Result{Timings: timings}
}
