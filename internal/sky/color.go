package sky

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var ErrInvalidColor = errors.New("invalid color format")

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// RGB is a colour with 8-bit channels. Channels are not clamped.
type RGB struct {
	R, G, B int
}

// ParseColor parses a "#RRGGBB" string.
func ParseColor(s string) (RGB, error) {
	if !hexColorPattern.MatchString(s) {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return RGB{
		R: int(v>>16) & 0xFF,
		G: int(v>>8) & 0xFF,
		B: int(v) & 0xFF,
	}, nil
}

// MustParseColor is ParseColor for the built-in palette.
func MustParseColor(s string) RGB {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Interpolate blends a towards b channel by channel. The factor is not
// clamped; callers keep it within [0, 1].
func Interpolate(a, b RGB, factor float64) RGB {
	lerp := func(x, y int) int {
		return int(math.Round(float64(x) + factor*float64(y-x)))
	}
	return RGB{
		R: lerp(a.R, b.R),
		G: lerp(a.G, b.G),
		B: lerp(a.B, b.B),
	}
}

// InterpolateHCL blends in the HCL colour space; the result is clamped to
// the RGB gamut.
func InterpolateHCL(a, b RGB, factor float64) RGB {
	blended := a.colorful().BlendHcl(b.colorful(), factor).Clamped()
	r, g, bl := blended.RGB255()
	return RGB{R: int(r), G: int(g), B: int(bl)}
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS renders the colour in the rgb() notation used by the page.
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *RGB) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
