// Package gesture turns per-frame hand landmarks into the floating-heart
// overlay: a timed marker schedule, a particle system and a heart-shape signal.
package gesture

import "time"

// Landmark indices used by the heart classifier.
const (
	ThumbTip = 4
	IndexTip = 8
)

// Keypoint is one hand landmark, in pixels or normalized to [0,1].
type Keypoint struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Z    float64 `json:"z,omitempty" yaml:"z,omitempty"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// Hand is one detected hand with up to 21 keypoints.
type Hand struct {
	Keypoints  []Keypoint `json:"keypoints" yaml:"keypoints"`
	Handedness string     `json:"handedness,omitempty" yaml:"handedness,omitempty"`
	Score      float64    `json:"score,omitempty" yaml:"score,omitempty"`
}

// Frame is the detector output for one video frame.
type Frame struct {
	Hands  []Hand    `json:"hands"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	At     time.Time `json:"at"`
}

// State is the loop's two-state machine.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Marker is one scheduled heart.
type Marker struct {
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Scale      float64       `json:"scale"`
	Offset     time.Duration `json:"offset_ms"`
	ActivateAt time.Time     `json:"-"`
	Visible    bool          `json:"visible"`
}

// Particle is one sparkle. Opacity equals Life.
type Particle struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	Size float64 `json:"size"`
	Life float64 `json:"life"`
	// Tint holds the green and blue channels chosen at spawn time.
	Tint [2]uint8 `json:"tint"`
}

// HeartSignal is the auxiliary two-hand heart-shape classification.
type HeartSignal struct {
	// Valid is false when keypoints 4 or 8 are missing or not finite.
	Valid         bool    `json:"valid"`
	Detected      bool    `json:"detected"`
	CenterX       float64 `json:"center_x"`
	CenterY       float64 `json:"center_y"`
	Scale         float64 `json:"scale"`
	IndexDistance float64 `json:"index_distance"`
	ThumbDistance float64 `json:"thumb_distance"`
}

// Overlay is what to draw for one frame.
type Overlay struct {
	State     State       `json:"state"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Hearts    []Marker    `json:"hearts"`
	Particles []Particle  `json:"particles"`
	Signal    HeartSignal `json:"signal"`
	At        time.Time   `json:"at"`
}
