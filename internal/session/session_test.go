package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"sky-gradient/internal/daytime"
	"sky-gradient/internal/sky"
	"sky-gradient/internal/sun"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimings = &sun.Timings{
	Date:       "2024-06-01",
	FirstLight: 330,
	Dawn:       390,
	Sunrise:    420,
	SolarNoon:  750,
	Sunset:     1080,
	Dusk:       1110,
	LastLight:  1150,
}

type countingProvider struct {
	mu      sync.Mutex
	calls   int
	timings *sun.Timings
	err     error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Get(context.Context, time.Time) (*sun.Timings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.timings, p.err
}

type recorder struct {
	mu      sync.Mutex
	origins []Origin
	last    sky.Gradient
}

func (r *recorder) Render(_ context.Context, g sky.Gradient, origin Origin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = append(r.origins, origin)
	r.last = g
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestSession(t *testing.T, p sun.Provider, follow bool) (*Session, *recorder, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 7, 0, 30, 0, time.UTC)}
	rec := &recorder{}
	s := New(Config{
		Provider:  p,
		Location:  time.UTC,
		Renderers: []Renderer{rec},
		Follow:    follow,
		Logger:    quietLogger(),
		Now:       clock.Now,
	})
	return s, rec, clock
}

func TestInitRendersCurrentTime(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)

	res := s.Init(context.Background())
	require.True(t, res.OK())

	state := s.State()
	assert.Equal(t, daytime.Minutes(420), state.Minutes)
	assert.Equal(t, "07:00", state.Clock)
	assert.True(t, state.Daylight)
	require.NotNil(t, state.Gradient)
	assert.Equal(t, "sunrise", state.Gradient.From)
	assert.Equal(t, []Origin{OriginInit}, rec.origins)
}

func TestInitWithoutTimingsSkipsRendering(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{err: errors.New("offline")}, false)

	res := s.Init(context.Background())
	assert.False(t, res.OK())
	assert.Nil(t, s.Timings())
	assert.Empty(t, rec.origins)

	_, err := s.SetTime(context.Background(), 600)
	assert.ErrorIs(t, err, sky.ErrTimingsUnavailable)
	assert.Empty(t, rec.origins)
	// the slider position still moves
	assert.Equal(t, daytime.Minutes(600), s.State().Minutes)
}

func TestSetTimeWraps(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	s.Init(context.Background())

	g, err := s.SetTime(context.Background(), 1445)
	require.NoError(t, err)
	assert.Equal(t, daytime.Minutes(5), g.Minutes)
	assert.Equal(t, OriginSlider, rec.origins[len(rec.origins)-1])
}

func TestStepWrapsAroundMidnight(t *testing.T) {
	s, _, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	s.Init(context.Background())
	ctx := context.Background()

	_, err := s.SetTime(ctx, 1435)
	require.NoError(t, err)
	g, err := s.Step(ctx, Forward)
	require.NoError(t, err)
	assert.Equal(t, daytime.Minutes(5), g.Minutes)

	g, err = s.Step(ctx, Backward)
	require.NoError(t, err)
	assert.Equal(t, daytime.Minutes(1435), g.Minutes)
}

func TestHandleKey(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	s.Init(context.Background())
	ctx := context.Background()

	for _, key := range []string{"ArrowUp", "ArrowRight", "up", "right"} {
		before := s.State().Minutes
		g, handled, err := s.HandleKey(ctx, key)
		require.NoError(t, err)
		assert.True(t, handled, key)
		assert.Equal(t, before.Add(10), g.Minutes, key)
	}
	for _, key := range []string{"ArrowDown", "ArrowLeft", "down", "left"} {
		before := s.State().Minutes
		g, handled, err := s.HandleKey(ctx, key)
		require.NoError(t, err)
		assert.True(t, handled, key)
		assert.Equal(t, before.Add(-10), g.Minutes, key)
	}

	renders := len(rec.origins)
	_, handled, err := s.HandleKey(ctx, "Enter")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Len(t, rec.origins, renders)
	assert.Equal(t, OriginKeyboard, rec.origins[renders-1])
}

func TestPreviewDoesNotMoveSession(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	s.Init(context.Background())

	g, err := s.Preview(750)
	require.NoError(t, err)
	assert.Equal(t, "solar_noon", g.From)
	assert.Equal(t, daytime.Minutes(420), s.State().Minutes)
	assert.Len(t, rec.origins, 1)
}

func TestRendererErrorsAreNotFatal(t *testing.T) {
	s, rec, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	s.AddRenderer(RendererFunc(func(context.Context, sky.Gradient, Origin) error {
		return errors.New("surface gone")
	}))
	s.Init(context.Background())

	_, err := s.SetTime(context.Background(), 800)
	require.NoError(t, err)
	assert.Len(t, rec.origins, 2)
}

func TestTickFollowsClockAndReloadsOnNewDay(t *testing.T) {
	p := &countingProvider{timings: testTimings}
	s, rec, clock := newTestSession(t, p, true)
	ctx := context.Background()
	s.Init(ctx)
	assert.Equal(t, 1, p.calls)

	clock.Set(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
	s.Tick(ctx)
	assert.Equal(t, daytime.Minutes(750), s.State().Minutes)
	assert.Equal(t, OriginClock, rec.origins[len(rec.origins)-1])
	assert.Equal(t, 1, p.calls, "same day must not refetch")

	clock.Set(time.Date(2024, 6, 2, 0, 10, 0, 0, time.UTC))
	s.Tick(ctx)
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, daytime.Minutes(10), s.State().Minutes)

	// going back to a day already fetched is served from the cache
	clock.Set(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC))
	s.Tick(ctx)
	assert.Equal(t, 2, p.calls)
}

func TestTickWithoutFollowOnlyReloads(t *testing.T) {
	p := &countingProvider{timings: testTimings}
	s, rec, clock := newTestSession(t, p, false)
	ctx := context.Background()
	s.Init(ctx)

	clock.Set(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
	s.Tick(ctx)
	assert.Equal(t, daytime.Minutes(420), s.State().Minutes)
	assert.Len(t, rec.origins, 1)
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New(Config{
		Provider:     &countingProvider{timings: testTimings},
		TickInterval: time.Millisecond,
		Logger:       quietLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestTickDoesNotRetryFailedLoadOnNewDay(t *testing.T) {
	p := &countingProvider{timings: testTimings}
	s, _, clock := newTestSession(t, p, true)
	ctx := context.Background()
	require.True(t, s.Init(ctx).OK())

	p.mu.Lock()
	p.timings, p.err = nil, errors.New("upstream down")
	p.mu.Unlock()

	clock.Set(time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		s.Tick(ctx)
	}

	assert.Equal(t, 2, p.calls, "one attempt for the new date")
	assert.Nil(t, s.Timings(), "yesterday's timings must not be reused")
	state := s.State()
	assert.Equal(t, daytime.Minutes(5), state.Minutes)
	assert.Nil(t, state.Gradient)

	// the next date gets its own single attempt
	clock.Set(time.Date(2024, 6, 3, 0, 5, 0, 0, time.UTC))
	s.Tick(ctx)
	s.Tick(ctx)
	assert.Equal(t, 3, p.calls)
}

func TestConcurrentStepsAreNotLost(t *testing.T) {
	s, _, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	ctx := context.Background()
	s.Init(ctx)
	_, err := s.SetTime(ctx, 0)
	require.NoError(t, err)

	const steps = 100
	var wg sync.WaitGroup
	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Step(ctx, Forward)
		}()
	}
	wg.Wait()

	assert.Equal(t, daytime.Wrap(steps*daytime.Step), s.State().Minutes)
}

func TestStateGradientMatchesMinutes(t *testing.T) {
	s, _, _ := newTestSession(t, &countingProvider{timings: testTimings}, false)
	ctx := context.Background()
	s.Init(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(m int) {
			defer wg.Done()
			_, _ = s.SetTime(ctx, m*17)
		}(i)
		go func() {
			defer wg.Done()
			state := s.State()
			if assert.NotNil(t, state.Gradient) {
				assert.Equal(t, state.Minutes, state.Gradient.Minutes)
			}
		}()
	}
	wg.Wait()
}
