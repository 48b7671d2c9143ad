package gesture

import "math"

// HeartPath is the heart outline in a 100-unit box anchored at (0,0).
const HeartPath = "M0,20 C-20,-10 -50,-10 -50,20 C-50,35 -25,50 0,70 C25,50 50,35 50,20 C50,-10 20,-10 0,20 Z"

// Color is an RGBA color with alpha in [0,1].
type Color struct {
	R, G, B uint8
	A       float64
}

// GradientStop is one stop of a radial gradient.
type GradientStop struct {
	Offset float64
	Color  Color
}

// RadialGradient is centered at (CX, CY) in heart-local units.
type RadialGradient struct {
	CX, CY, R float64
	Stops     []GradientStop
}

// Transform places heart-local units on the canvas.
type Transform struct {
	TX, TY, Scale float64
}

// Glow is a blurred shadow around a shape.
type Glow struct {
	Blur  float64
	Color Color
}

// Renderer draws overlay primitives. Implementations decide the output
// medium; Render only sequences the calls.
type Renderer interface {
	Begin(width, height float64)
	Heart(t Transform, fill Color, opacity float64, glow Glow)
	GradientHeart(t Transform, g RadialGradient)
	Ellipse(t Transform, cx, cy, rx, ry, rotation float64, fill Color)
	Circle(cx, cy, r float64, fill Color)
	End() error
}

const (
	heartBaseSize = 200.0
	glowLayers    = 4
)

var (
	mainGradient = RadialGradient{
		CX: 0, CY: 20, R: 50,
		Stops: []GradientStop{
			{0, Color{255, 20, 147, 1}},
			{0.5, Color{255, 105, 180, 0.9}},
			{1, Color{255, 182, 193, 0.7}},
		},
	}
	highlight = Color{255, 255, 255, 0.6}
)

// Render draws every visible heart and then every particle.
func Render(r Renderer, o Overlay) error {
	r.Begin(o.Width, o.Height)
	for _, m := range o.Hearts {
		drawHeart(r, m)
	}
	for _, p := range o.Particles {
		alpha := math.Max(0, math.Min(1, p.Life))
		r.Circle(p.X, p.Y, p.Size, Color{255, p.Tint[0], p.Tint[1], alpha})
	}
	return r.End()
}

func drawHeart(r Renderer, m Marker) {
	size := heartBaseSize * math.Max(m.Scale, 1)
	t := Transform{TX: m.X, TY: m.Y, Scale: size / 100}

	for i := glowLayers - 1; i >= 0; i-- {
		fi := float64(i)
		alpha := 0.6 - fi*0.15
		glow := Glow{
			Blur:  30 + fi*15,
			Color: Color{255, uint8(20 + i*20), uint8(147 + i*20), alpha},
		}
		fill := Color{255, uint8(105 + i*10), uint8(180 + i*10), 1 - fi*0.15}
		r.Heart(t, fill, alpha, glow)
	}
	r.GradientHeart(t, mainGradient)
	r.Ellipse(t, -15, 5, 8, 12, -0.5, highlight)
	r.Ellipse(t, 15, 5, 8, 12, 0.5, highlight)
}
