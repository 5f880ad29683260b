package sky

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sky-gradient/internal/daytime"
	"sky-gradient/internal/sun"
)

var (
	ErrTimingsUnavailable = errors.New("timings unavailable")
	ErrOutOfRange         = errors.New("time outside the keyframe timeline")
	ErrUnknownBlend       = errors.New("unknown blend mode")
)

// Blend modes.
const (
	BlendRGB = "rgb"
	BlendHCL = "hcl"
)

// Gradient is the sky at one instant: a linear blend from Bottom at the
// horizon to Top overhead.
type Gradient struct {
	Minutes daytime.Minutes `json:"minutes"`
	Top     RGB             `json:"top"`
	Bottom  RGB             `json:"bottom"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Factor  float64         `json:"factor"`
}

// CSS renders the gradient as a CSS background value.
func (g Gradient) CSS() string {
	return fmt.Sprintf("linear-gradient(to top, %s, %s)", g.Bottom.CSS(), g.Top.CSS())
}

func (g Gradient) MarshalJSON() ([]byte, error) {
	type plain Gradient
	return json.Marshal(struct {
		plain
		CSS string `json:"css"`
	}{plain(g), g.CSS()})
}

// Engine maps a time of day and the day's timings to a gradient.
type Engine struct {
	blend func(a, b RGB, factor float64) RGB
	mode  string
}

// NewEngine returns an engine using the named blend mode; an empty mode
// selects BlendRGB.
func NewEngine(mode string) (*Engine, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", BlendRGB:
		return &Engine{blend: Interpolate, mode: BlendRGB}, nil
	case BlendHCL:
		return &Engine{blend: InterpolateHCL, mode: BlendHCL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlend, mode)
	}
}

var defaultEngine = &Engine{blend: Interpolate, mode: BlendRGB}

func (e *Engine) Mode() string {
	return e.mode
}

// ComputeGradient uses the default RGB engine.
func ComputeGradient(m daytime.Minutes, timings *sun.Timings) (Gradient, error) {
	return defaultEngine.ComputeGradient(m, timings)
}

// ComputeGradient returns ErrTimingsUnavailable for nil timings and
// ErrOutOfRange when m is not inside [0, 1440).
func (e *Engine) ComputeGradient(m daytime.Minutes, timings *sun.Timings) (Gradient, error) {
	if timings == nil {
		return Gradient{}, ErrTimingsUnavailable
	}

	kf := BuildKeyframes(timings)
	i, ok := kf.Bracket(int(m))
	if !ok {
		return Gradient{}, fmt.Errorf("%w: %d", ErrOutOfRange, m)
	}
	current, next := kf[i], kf[i+1]

	factor := float64(int(m)-current.Offset) / float64(next.Offset-current.Offset)
	return Gradient{
		Minutes: m,
		Top:     e.blend(current.Top, next.Top, factor),
		Bottom:  e.blend(current.Bottom, next.Bottom, factor),
		From:    current.Name,
		To:      next.Name,
		Factor:  factor,
	}, nil
}
