package storage

import (
	"time"

	"gorm.io/gorm"
)

// GradientSample is one rendered sky gradient.
type GradientSample struct {
	gorm.Model
	RenderedAt time.Time `gorm:"index" json:"rendered_at"`

	Minutes int    `json:"minutes"`
	Clock   string `json:"clock"`

	Top    string `json:"top"`
	Bottom string `json:"bottom"`
	CSS    string `json:"css"`

	// Keyframes bracketing the time, e.g. "dawn" -> "sunrise".
	FromKeyframe string  `json:"from_keyframe"`
	ToKeyframe   string  `json:"to_keyframe"`
	Factor       float64 `json:"factor"`

	// What moved the session: slider, keyboard, clock, init.
	Origin string `json:"origin"`
}
