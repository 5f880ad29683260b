package sky

import (
	"sky-gradient/internal/daytime"
	"sky-gradient/internal/sun"
)

// Keyframe anchors a pair of sky colours to a point on the day's timeline.
type Keyframe struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Top    RGB    `json:"top"`
	Bottom RGB    `json:"bottom"`
}

type anchor struct {
	name   string
	offset func(t *sun.Timings) int
	top    RGB
	bottom RGB
}

func at(m int) func(*sun.Timings) int {
	return func(*sun.Timings) int { return m }
}

func relative(event func(*sun.Timings) daytime.Minutes, delta int) func(*sun.Timings) int {
	return func(t *sun.Timings) int { return int(event(t)) + delta }
}

func firstLight(t *sun.Timings) daytime.Minutes { return t.FirstLight }
func dawn(t *sun.Timings) daytime.Minutes       { return t.Dawn }
func sunrise(t *sun.Timings) daytime.Minutes    { return t.Sunrise }
func solarNoon(t *sun.Timings) daytime.Minutes  { return t.SolarNoon }
func sunset(t *sun.Timings) daytime.Minutes     { return t.Sunset }
func dusk(t *sun.Timings) daytime.Minutes       { return t.Dusk }
func lastLight(t *sun.Timings) daytime.Minutes  { return t.LastLight }

// template is ordered by time of day. Only the positions depend on the
// timings; the colours are fixed.
var template = []anchor{
	{"midnight", at(0), MustParseColor("#131731"), MustParseColor("#2c407d")},
	{"first_light-30", relative(firstLight, -30), MustParseColor("#1a1f4a"), MustParseColor("#3c518b")},
	{"first_light", relative(firstLight, 0), MustParseColor("#0c2e64"), MustParseColor("#93b1d5")},
	{"dawn", relative(dawn, 0), MustParseColor("#3c518b"), MustParseColor("#ff9a76")},
	{"sunrise", relative(sunrise, 0), MustParseColor("#a8b7cc"), MustParseColor("#ffa300")},
	{"sunrise+30", relative(sunrise, 30), MustParseColor("#4b70a7"), MustParseColor("#e4d4c5")},
	{"sunrise+60", relative(sunrise, 60), MustParseColor("#254a82"), MustParseColor("#8cb3dd")},
	{"solar_noon", relative(solarNoon, 0), MustParseColor("#034c8f"), MustParseColor("#79ace4")},
	{"sunset-60", relative(sunset, -60), MustParseColor("#254a82"), MustParseColor("#8cb3dd")},
	{"sunset-30", relative(sunset, -30), MustParseColor("#4a71a8"), MustParseColor("#e4d4c6")},
	{"sunset", relative(sunset, 0), MustParseColor("#a7b6cb"), MustParseColor("#f3834c")},
	{"dusk", relative(dusk, 0), MustParseColor("#6667a8"), MustParseColor("#fc9179")},
	{"last_light", relative(lastLight, 0), MustParseColor("#213e6e"), MustParseColor("#bf808a")},
	{"last_light+30", relative(lastLight, 30), MustParseColor("#1a204a"), MustParseColor("#3d518b")},
	{"midnight", at(daytime.MinutesPerDay), MustParseColor("#131731"), MustParseColor("#2c407d")},
}

// Keyframes is the day's timeline, ordered by template position.
type Keyframes []Keyframe

// BuildKeyframes places the template on the timeline described by t.
func BuildKeyframes(t *sun.Timings) Keyframes {
	kf := make(Keyframes, len(template))
	for i, a := range template {
		kf[i] = Keyframe{
			Name:   a.name,
			Offset: a.offset(t),
			Top:    a.top,
			Bottom: a.bottom,
		}
	}
	return kf
}

// Bracket returns the index i of the first pair (kf[i], kf[i+1]) with
// kf[i].Offset <= m < kf[i+1].Offset. Pairs of zero or negative width are
// skipped, so a keyframe pushed before midnight by a relative offset never
// matches on its own.
func (kf Keyframes) Bracket(m int) (int, bool) {
	for i := 0; i+1 < len(kf); i++ {
		if kf[i].Offset <= m && m < kf[i+1].Offset {
			return i, true
		}
	}
	return 0, false
}

// Monotonic reports whether the offsets never decrease.
func (kf Keyframes) Monotonic() bool {
	for i := 1; i < len(kf); i++ {
		if kf[i].Offset < kf[i-1].Offset {
			return false
		}
	}
	return true
}
