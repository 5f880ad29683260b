package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sky-gradient/internal/daytime"
	"sky-gradient/internal/sky"
	"sky-gradient/internal/sun"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Origin records what caused a render.
type Origin string

const (
	OriginInit     Origin = "init"
	OriginSlider   Origin = "slider"
	OriginKeyboard Origin = "keyboard"
	OriginClock    Origin = "clock"
)

// Direction of a keyboard step.
type Direction int

const (
	None Direction = iota
	Forward
	Backward
)

// Renderer applies a gradient to a display surface.
type Renderer interface {
	Render(ctx context.Context, g sky.Gradient, origin Origin) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, g sky.Gradient, origin Origin) error

func (f RendererFunc) Render(ctx context.Context, g sky.Gradient, origin Origin) error {
	return f(ctx, g, origin)
}

// State is a snapshot of the session.
type State struct {
	Minutes  daytime.Minutes `json:"minutes"`
	Clock    string          `json:"clock"`
	Timings  *sun.Timings    `json:"timings"`
	Gradient *sky.Gradient   `json:"gradient"`
	Daylight bool            `json:"daylight"`
	Updated  time.Time       `json:"updated"`
}

type Config struct {
	Provider     sun.Provider
	Engine       *sky.Engine
	Location     *time.Location
	Renderers    []Renderer
	Follow       bool
	TickInterval time.Duration
	Logger       logrus.FieldLogger
	// Now is used instead of time.Now when set.
	Now func() time.Time
}

// Session owns the timings loaded for the day, the current slider position
// and the last gradient, and forwards every recomputed gradient to its
// renderers. It is safe for concurrent use.
type Session struct {
	provider     sun.Provider
	engine       *sky.Engine
	location     *time.Location
	renderers    []Renderer
	follow       bool
	tickInterval time.Duration
	log          logrus.FieldLogger
	now          func() time.Time
	cache        *cache.Cache

	mu       sync.RWMutex
	timings  *sun.Timings
	date     string
	minutes  daytime.Minutes
	gradient *sky.Gradient
	updated  time.Time
}

func New(cfg Config) *Session {
	s := &Session{
		provider:     cfg.Provider,
		engine:       cfg.Engine,
		location:     cfg.Location,
		renderers:    cfg.Renderers,
		follow:       cfg.Follow,
		tickInterval: cfg.TickInterval,
		log:          cfg.Logger,
		now:          cfg.Now,
		cache:        cache.New(24*time.Hour, time.Hour),
	}
	if s.engine == nil {
		s.engine, _ = sky.NewEngine(sky.BlendRGB)
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.tickInterval <= 0 {
		s.tickInterval = time.Minute
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// AddRenderer registers another display surface.
func (s *Session) AddRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, r)
}

// Init loads the timings once, moves the session to the current local
// time and renders. A failed load leaves the session without timings;
// the returned Result says why.
func (s *Session) Init(ctx context.Context) sun.Result {
	now := s.now().In(s.location)
	res := s.loadTimings(ctx, now)

	s.mu.Lock()
	s.timings = res.Timings
	s.date = now.Format("2006-01-02")
	s.mu.Unlock()

	if _, err := s.moveTo(ctx, to(daytime.FromTime(now)), OriginInit); err != nil && !errors.Is(err, sky.ErrTimingsUnavailable) {
		s.log.WithError(err).Error("Initial render failed")
	}
	return res
}

func (s *Session) loadTimings(ctx context.Context, day time.Time) sun.Result {
	key := day.Format("2006-01-02")
	if cached, ok := s.cache.Get(key); ok {
		return sun.Result{Timings: cached.(*sun.Timings)}
	}
	res := sun.Load(ctx, s.provider, day, s.log)
	if res.OK() {
		s.cache.SetDefault(key, res.Timings)
	}
	return res
}

// SetTime moves the session to m, as the slider does.
func (s *Session) SetTime(ctx context.Context, m int) (sky.Gradient, error) {
	return s.moveTo(ctx, to(daytime.Wrap(m)), OriginSlider)
}

// Step moves the session ten minutes in dir, wrapping around midnight.
func (s *Session) Step(ctx context.Context, dir Direction) (sky.Gradient, error) {
	delta := 0
	switch dir {
	case Forward:
		delta = daytime.Step
	case Backward:
		delta = -daytime.Step
	}
	return s.moveTo(ctx, func(current daytime.Minutes) daytime.Minutes {
		return current.Add(delta)
	}, OriginKeyboard)
}

// KeyDirection maps a key name to a step direction. Both browser key
// names and plain direction words are understood.
func KeyDirection(key string) Direction {
	switch key {
	case "ArrowUp", "ArrowRight", "up", "right":
		return Forward
	case "ArrowDown", "ArrowLeft", "down", "left":
		return Backward
	default:
		return None
	}
}

// HandleKey steps the session for arrow keys. Other keys are ignored and
// report false.
func (s *Session) HandleKey(ctx context.Context, key string) (sky.Gradient, bool, error) {
	dir := KeyDirection(key)
	if dir == None {
		return sky.Gradient{}, false, nil
	}
	g, err := s.Step(ctx, dir)
	return g, true, err
}

// Preview computes the gradient for m without moving the session.
func (s *Session) Preview(m daytime.Minutes) (sky.Gradient, error) {
	s.mu.RLock()
	timings := s.timings
	s.mu.RUnlock()
	return s.engine.ComputeGradient(m, timings)
}

func (s *Session) Timings() *sun.Timings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timings
}

func (s *Session) Engine() *sky.Engine {
	return s.engine
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Minutes:  s.minutes,
		Clock:    s.minutes.String(),
		Timings:  s.timings,
		Gradient: s.gradient,
		Daylight: s.timings.IsDaylight(s.minutes),
		Updated:  s.updated,
	}
}

// to returns a target that ignores the current position.
func to(m daytime.Minutes) func(daytime.Minutes) daytime.Minutes {
	return func(daytime.Minutes) daytime.Minutes { return m }
}

// moveTo resolves the target against the current position, recomputes and
// stores the gradient in one critical section, then renders outside it.
func (s *Session) moveTo(ctx context.Context, target func(current daytime.Minutes) daytime.Minutes, origin Origin) (sky.Gradient, error) {
	s.mu.Lock()
	m := target(s.minutes)
	s.minutes = m
	g, err := s.engine.ComputeGradient(m, s.timings)
	if err == nil {
		s.gradient = &g
	} else {
		s.gradient = nil
	}
	s.updated = s.now()
	renderers := s.renderers
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, sky.ErrTimingsUnavailable) {
			s.log.WithField("minutes", int(m)).Warn("Timings data not available, skipping render")
		}
		return sky.Gradient{}, err
	}

	for _, r := range renderers {
		if err := r.Render(ctx, g, origin); err != nil {
			s.log.WithFields(logrus.Fields{
				"origin":  origin,
				"minutes": int(m),
			}).WithError(err).Warn("Renderer failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"origin": origin,
		"clock":  m.String(),
		"from":   g.From,
		"to":     g.To,
	}).Debug("Rendered sky")
	return g, nil
}

// Start runs the clock loop until ctx is done. Each tick reloads the
// timings when the local date has changed and, in follow mode, moves the
// session to the current local time.
func (s *Session) Start(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"interval": s.tickInterval.String(),
		"follow":   s.follow,
	}).Info("Starting sky clock")

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sky clock stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one iteration of the clock loop.
func (s *Session) Tick(ctx context.Context) {
	now := s.now().In(s.location)
	date := now.Format("2006-01-02")

	s.mu.RLock()
	stale := s.date != date
	s.mu.RUnlock()

	// One attempt per date: a failed load leaves the new day without
	// timings until the next date change.
	if stale {
		res := s.loadTimings(ctx, now)
		s.mu.Lock()
		s.timings = res.Timings
		s.date = date
		s.mu.Unlock()
	}

	if !s.follow {
		return
	}
	if _, err := s.moveTo(ctx, to(daytime.FromTime(now)), OriginClock); err != nil && !errors.Is(err, sky.ErrTimingsUnavailable) {
		s.log.WithError(err).Error("Clock render failed")
	}
}
