package sun

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"sky-gradient/internal/daytime"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want daytime.Minutes
	}{
		{"06:00:00 AM", 360},
		{"06:00:00 PM", 1080},
		{"12:00:00 AM", 0},
		{"12:00:00 PM", 720},
		{"5:48:02 AM", 348},
		{"8:26:59 PM", 1226},
		{"11:59 PM", 1439},
		{"12:30:00 am", 30},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		require.NoError(t, err, "ParseTime(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseTime(%q)", tt.in)
	}
}

func TestParseTimeMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"06:00:00",
		"06:00:00 XM",
		"aa:00:00 AM",
		"13:00:00 PM",
		"06:75:00 AM",
		"06:00:99 AM",
		"06 AM",
		"1:2:3:4 PM",
	} {
		_, err := ParseTime(in)
		assert.ErrorIs(t, err, ErrMalformedTime, "ParseTime(%q)", in)
	}
}

const okBody = `{
  "results": {
    "date": "2024-06-01",
    "sunrise": "5:48:02 AM",
    "sunset": "8:26:38 PM",
    "first_light": "3:56:43 AM",
    "last_light": "10:17:57 PM",
    "dawn": "5:18:33 AM",
    "dusk": "8:56:07 PM",
    "solar_noon": "1:07:20 PM",
    "golden_hour": "7:47:15 PM",
    "day_length": "14:38:36",
    "timezone": "America/Los_Angeles",
    "utc_offset": -420
  },
  "status": "OK"
}`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	seen := url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestSunriseSunsetClientGet(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, okBody)
	c := NewSunriseSunsetClient(srv.URL+"/json", 37.7749, -122.4194, "America/Los_Angeles", time.Second)

	timings, err := c.Get(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	q := *seen
	assert.Equal(t, "37.7749", q.Get("lat"))
	assert.Equal(t, "-122.4194", q.Get("lng"))
	assert.Equal(t, "America/Los_Angeles", q.Get("timezone"))
	assert.Equal(t, "2024-06-01", q.Get("date"))

	assert.Equal(t, &Timings{
		Date:       "2024-06-01",
		Source:     "sunrisesunset",
		FirstLight: 236,
		Dawn:       318,
		Sunrise:    348,
		SolarNoon:  787,
		Sunset:     1226,
		Dusk:       1256,
		LastLight:  1337,
	}, timings)
}

func TestSunriseSunsetClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"non ok status field", http.StatusOK, `{"status":"INVALID_REQUEST","results":{}}`, ErrUpstreamStatus},
		{"missing field", http.StatusOK, `{"status":"OK","results":{"sunrise":"6:00:00 AM"}}`, ErrMissingField},
		{"malformed time", http.StatusOK, `{"status":"OK","results":{"sunrise":"6 AM","sunset":"8:00:00 PM","first_light":"4:00:00 AM","last_light":"10:00:00 PM","dawn":"5:00:00 AM","dusk":"9:00:00 PM","solar_noon":"1:00:00 PM"}}`, ErrMalformedTime},
		{"http error", http.StatusInternalServerError, `oops`, nil},
		{"bad json", http.StatusOK, `{`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := NewSunriseSunsetClient(srv.URL, 1, 2, "UTC", time.Second)
			timings, err := c.Get(context.Background(), time.Time{})
			require.Error(t, err)
			assert.Nil(t, timings)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

type stubProvider struct {
	timings *Timings
	err     error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Get(context.Context, time.Time) (*Timings, error) {
	return s.timings, s.err
}

func TestLoad(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	want := &Timings{Sunrise: 420}
	res := Load(context.Background(), stubProvider{timings: want}, time.Time{}, log)
	assert.True(t, res.OK())
	assert.Same(t, want, res.Timings)

	boom := errors.New("boom")
	res = Load(context.Background(), stubProvider{err: boom}, time.Time{}, log)
	assert.False(t, res.OK())
	assert.Nil(t, res.Timings)
	assert.ErrorIs(t, res.Err, boom)

	res = Load(context.Background(), nil, time.Time{}, log)
	assert.False(t, res.OK())

	res = Load(context.Background(), stubProvider{}, time.Time{}, log)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrMissingField)
}

func TestAstronomyProviderOrdering(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	p := NewAstronomyProvider(37.7749, -122.4194, loc)

	for _, date := range []time.Time{
		time.Date(2024, 3, 20, 12, 0, 0, 0, loc),
		time.Date(2024, 6, 21, 12, 0, 0, 0, loc),
		time.Date(2024, 12, 21, 12, 0, 0, 0, loc),
	} {
		timings, err := p.Get(context.Background(), date)
		require.NoError(t, err)
		ordered := []daytime.Minutes{
			timings.FirstLight, timings.Dawn, timings.Sunrise, timings.SolarNoon,
			timings.Sunset, timings.Dusk, timings.LastLight,
		}
		for i := 1; i < len(ordered); i++ {
			assert.LessOrEqual(t, ordered[i-1], ordered[i], "%s event %d", date.Format("2006-01-02"), i)
		}
		// San Francisco sunrise is always between 05:30 and 07:45 local.
		assert.Greater(t, int(timings.Sunrise), 330)
		assert.Less(t, int(timings.Sunrise), 465)
	}
}

func TestAstronomyProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAstronomyProvider(0, 0, nil).Get(ctx, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsDaylight(t *testing.T) {
	timings := &Timings{Sunrise: 420, Sunset: 1200}
	assert.False(t, timings.IsDaylight(419))
	assert.True(t, timings.IsDaylight(420))
	assert.False(t, timings.IsDaylight(1200))
	var none *Timings
	assert.False(t, none.IsDaylight(600))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Latitude: 37.7749, Longitude: -122.4194})
	require.NoError(t, err)
	assert.Equal(t, "sunrisesunset", p.Name())

	p, err = NewProvider(ProviderConfig{Name: "Astronomy", Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, "astronomy", p.Name())

	_, err = NewProvider(ProviderConfig{Name: "sundial"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
