package sun

import (
	"context"
	"fmt"
	"time"

	"sky-gradient/internal/daytime"

	"github.com/nathan-osman/go-sunrise"
)

// Sun elevations, in degrees, that mark the twilight events.
const (
	civilTwilight    = -6.0
	nauticalTwilight = -12.0
)

// AstronomyProvider computes timings locally instead of asking a web
// service. Dawn and dusk are civil twilight; first and last light are
// nautical twilight, or civil twilight on dates where the sun never gets
// that low.
type AstronomyProvider struct {
	latitude  float64
	longitude float64
	location  *time.Location
}

func NewAstronomyProvider(latitude, longitude float64, location *time.Location) *AstronomyProvider {
	if location == nil {
		location = time.UTC
	}
	return &AstronomyProvider{
		latitude:  latitude,
		longitude: longitude,
		location:  location,
	}
}

func (p *AstronomyProvider) Name() string {
	return "astronomy"
}

func (p *AstronomyProvider) Get(ctx context.Context, date time.Time) (*Timings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}
	date = date.In(p.location)
	year, month, day := date.Date()

	rise, set := sunrise.SunriseSunset(p.latitude, p.longitude, year, month, day)
	if rise.IsZero() || set.IsZero() {
		return nil, fmt.Errorf("%w: sunrise/sunset on %s", ErrEventNotReached, date.Format("2006-01-02"))
	}
	dawn, dusk := sunrise.TimeOfElevation(p.latitude, p.longitude, civilTwilight, year, month, day)
	if dawn.IsZero() || dusk.IsZero() {
		return nil, fmt.Errorf("%w: civil twilight on %s", ErrEventNotReached, date.Format("2006-01-02"))
	}
	first, last := sunrise.TimeOfElevation(p.latitude, p.longitude, nauticalTwilight, year, month, day)
	if first.IsZero() || last.IsZero() {
		first, last = dawn, dusk
	}
	noon := rise.Add(set.Sub(rise) / 2)

	local := func(t time.Time) daytime.Minutes {
		return daytime.FromTime(t.In(p.location))
	}
	return &Timings{
		Date:       date.Format("2006-01-02"),
		Source:     p.Name(),
		FirstLight: local(first),
		Dawn:       local(dawn),
		Sunrise:    local(rise),
		SolarNoon:  local(noon),
		Sunset:     local(set),
		Dusk:       local(dusk),
		LastLight:  local(last),
	}, nil
}
