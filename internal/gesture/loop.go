package gesture

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultInset is the distance of the corner hearts from the canvas edges.
	DefaultInset = 150.0
	// SpawnInterval is the minimum gap between particle bursts.
	SpawnInterval = 200 * time.Millisecond
	centerScale   = 1.2
)

// ScheduleOffsets are the reveal delays of the five hearts, in reveal order:
// top-right, top-left, bottom-right, bottom-left, center.
var ScheduleOffsets = [5]time.Duration{
	0,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	1500 * time.Millisecond,
	2000 * time.Millisecond,
}

// Option customizes a Loop.
type Option func(*Loop)

// WithInset overrides DefaultInset.
func WithInset(px float64) Option {
	return func(l *Loop) {
		if px >= 0 {
			l.inset = px
		}
	}
}

// WithRand makes particle spawning reproducible.
func WithRand(r *rand.Rand) Option {
	return func(l *Loop) {
		if r != nil {
			l.rng = r
		}
	}
}

// WithThresholds selects the heart classifier limits.
func WithThresholds(th Thresholds) Option {
	return func(l *Loop) { l.thresholds = th }
}

// Loop owns the gesture state for one canvas. It is not safe for concurrent
// use; one goroutine drives it frame by frame.
type Loop struct {
	inset      float64
	thresholds Thresholds
	rng        *rand.Rand

	state     State
	markers   []Marker
	particles []Particle
	lastSpawn time.Time
	frames    uint64
}

func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		inset:      DefaultInset,
		thresholds: LenientThresholds,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports the current state.
func (l *Loop) State() State { return l.state }

// Frames counts processed frames.
func (l *Loop) Frames() uint64 { return l.frames }

// Reset drops the schedule and all particles.
func (l *Loop) Reset() {
	l.state = StateIdle
	l.markers = nil
	l.particles = l.particles[:0]
	l.lastSpawn = time.Time{}
}

// Step advances the loop by one frame and returns what to draw. Anything but
// exactly two hands clears the overlay on the same frame.
func (l *Loop) Step(f Frame) Overlay {
	l.frames++
	now := f.At
	if now.IsZero() {
		now = time.Now()
	}
	out := Overlay{Width: f.Width, Height: f.Height, At: now}

	if len(f.Hands) != 2 {
		l.Reset()
		out.State = StateIdle
		return out
	}

	if l.state == StateIdle {
		l.markers = l.schedule(f.Width, f.Height, now)
		l.state = StateActive
	}

	visible := make([]Marker, 0, len(l.markers))
	for i := range l.markers {
		m := &l.markers[i]
		if !now.Before(m.ActivateAt) {
			m.Visible = true
		}
		if m.Visible {
			visible = append(visible, *m)
		}
	}

	if now.Sub(l.lastSpawn) > SpawnInterval {
		for _, m := range visible {
			l.particles = spawnParticles(l.particles, m.X, m.Y, l.rng)
		}
		l.lastSpawn = now
	}
	l.particles = advanceParticles(l.particles, f.Width, f.Height)

	out.State = StateActive
	out.Hearts = visible
	out.Particles = append([]Particle(nil), l.particles...)
	out.Signal = ClassifyHeart(f.Hands, f.Width, f.Height, l.thresholds)
	return out
}

func (l *Loop) schedule(w, h float64, start time.Time) []Marker {
	p := l.inset
	positions := [5][3]float64{
		{w - p, p, 1},
		{p, p, 1},
		{w - p, h - p, 1},
		{p, h - p, 1},
		{w / 2, h / 2, centerScale},
	}
	markers := make([]Marker, len(positions))
	for i, pos := range positions {
		markers[i] = Marker{
			X:          pos[0],
			Y:          pos[1],
			Scale:      pos[2],
			Offset:     ScheduleOffsets[i],
			ActivateAt: start.Add(ScheduleOffsets[i]),
		}
	}
	return markers
}
