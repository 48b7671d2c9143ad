package gesture

import "math/rand/v2"

const (
	particlesPerHeart = 3
	particleJitter    = 50.0
	particleGravity   = 0.05
	particleDecay     = 0.02
)

func spawnParticles(dst []Particle, x, y float64, rng *rand.Rand) []Particle {
	for i := 0; i < particlesPerHeart; i++ {
		dst = append(dst, Particle{
			X:    x + (rng.Float64()-0.5)*particleJitter,
			Y:    y + (rng.Float64()-0.5)*particleJitter,
			VX:   (rng.Float64() - 0.5) * 2,
			VY:   (rng.Float64()-0.5)*2 - 1,
			Size: rng.Float64()*4 + 2,
			Life: 1,
			Tint: [2]uint8{uint8(105 + rng.IntN(51)), uint8(180 + rng.IntN(51))},
		})
	}
	return dst
}

// advanceParticles moves every particle one frame and drops the dead and the
// ones that left the canvas. The slice is filtered in place.
func advanceParticles(ps []Particle, width, height float64) []Particle {
	out := ps[:0]
	for _, p := range ps {
		p.X += p.VX
		p.Y += p.VY
		p.VY += particleGravity
		p.Life -= particleDecay
		if p.Life <= 0 || p.X < 0 || p.X > width || p.Y > height {
			continue
		}
		out = append(out, p)
	}
	return out
}
