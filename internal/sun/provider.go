package sun

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownProvider = errors.New("unknown solar timings provider")

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	Name      string
	BaseURL   string
	Timeout   time.Duration
	Latitude  float64
	Longitude float64
	Location  *time.Location
}

// NewProvider builds the named provider. An empty name selects the
// sunrisesunset.io client.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	timezone := ""
	if cfg.Location != nil {
		timezone = cfg.Location.String()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "sunrisesunset", "sunrisesunset.io":
		return NewSunriseSunsetClient(cfg.BaseURL, cfg.Latitude, cfg.Longitude, timezone, cfg.Timeout), nil
	case "astronomy", "local":
		return NewAstronomyProvider(cfg.Latitude, cfg.Longitude, cfg.Location), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}
