package sun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sky-gradient/internal/daytime"
)

const (
	DefaultSunriseSunsetURL = "https://api.sunrisesunset.io/json"
	defaultTimeout          = 10 * time.Second
)

// SunriseSunsetClient fetches timings from the sunrisesunset.io API.
type SunriseSunsetClient struct {
	baseURL   string
	latitude  float64
	longitude float64
	timezone  string
	client    *http.Client
}

func NewSunriseSunsetClient(baseURL string, latitude, longitude float64, timezone string, timeout time.Duration) *SunriseSunsetClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultSunriseSunsetURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SunriseSunsetClient{
		baseURL:   baseURL,
		latitude:  latitude,
		longitude: longitude,
		timezone:  timezone,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type sunriseSunsetResponse struct {
	Status  string `json:"status"`
	Results struct {
		Date       string `json:"date"`
		Sunrise    string `json:"sunrise"`
		Sunset     string `json:"sunset"`
		FirstLight string `json:"first_light"`
		LastLight  string `json:"last_light"`
		Dawn       string `json:"dawn"`
		Dusk       string `json:"dusk"`
		SolarNoon  string `json:"solar_noon"`
	} `json:"results"`
}

func (c *SunriseSunsetClient) Name() string {
	return "sunrisesunset"
}

func (c *SunriseSunsetClient) Get(ctx context.Context, date time.Time) (*Timings, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.4f", c.latitude))
	query.Set("lng", fmt.Sprintf("%.4f", c.longitude))
	if c.timezone != "" {
		query.Set("timezone", c.timezone)
	}
	if !date.IsZero() {
		query.Set("date", date.Format("2006-01-02"))
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("sunrisesunset url: %w", err)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sunrisesunset request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sunrisesunset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sunrisesunset bad status: %s", resp.Status)
	}

	var payload sunriseSunsetResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("sunrisesunset decode: %w", err)
	}

	if payload.Status != "OK" {
		return nil, fmt.Errorf("%w: %q", ErrUpstreamStatus, payload.Status)
	}

	return payload.timings(c.Name())
}

func (p sunriseSunsetResponse) timings(source string) (*Timings, error) {
	r := p.Results
	t := &Timings{
		Date:   r.Date,
		Source: source,
	}
	fields := []struct {
		name  string
		value string
		dst   *daytime.Minutes
	}{
		{"sunrise", r.Sunrise, &t.Sunrise},
		{"sunset", r.Sunset, &t.Sunset},
		{"first_light", r.FirstLight, &t.FirstLight},
		{"last_light", r.LastLight, &t.LastLight},
		{"dawn", r.Dawn, &t.Dawn},
		{"dusk", r.Dusk, &t.Dusk},
		{"solar_noon", r.SolarNoon, &t.SolarNoon},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
		m, err := ParseTime(f.value)
		if err != nil {
			return nil, fmt.Errorf("sunrisesunset %s: %w", f.name, err)
		}
		*f.dst = m
	}
	return t, nil
}
