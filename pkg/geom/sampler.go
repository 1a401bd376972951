// Package geom holds the spherical geometry used by the coverage globe:
// uniform point sampling on a shell and outward-bulging connector curves.
//
// Points are gonum r3.Vec values centred on the sphere origin.
package geom

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Common errors.
var (
	ErrInvalidRadius     = errors.New("radius must be positive")
	ErrDegenerateSegment = errors.New("segment direction cannot be determined")
)

// Sampler draws points distributed uniformly over the surface of a sphere.
// It is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler seeded with seed. A zero seed uses the clock.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample returns a point on the sphere of the given radius.
//
// phi is drawn as acos(2u-1) rather than uniformly so that area density is
// constant; a uniform phi would crowd points at the poles.
func (s *Sampler) Sample(radius float64) (r3.Vec, error) {
	if !validRadius(radius) {
		return r3.Vec{}, fmt.Errorf("sample at radius %v: %w", radius, ErrInvalidRadius)
	}
	theta := s.rng.Float64() * 2 * math.Pi
	phi := math.Acos(2*s.rng.Float64() - 1)
	return FromSpherical(radius, theta, phi), nil
}

// SampleShell picks a radius uniformly from [minR, maxR) and samples a point
// on it. minR == maxR samples a single shell.
func (s *Sampler) SampleShell(minR, maxR float64) (r3.Vec, error) {
	if !validRadius(minR) || math.IsNaN(maxR) || maxR < minR {
		return r3.Vec{}, fmt.Errorf("sample shell [%v, %v): %w", minR, maxR, ErrInvalidRadius)
	}
	radius := minR
	if maxR > minR {
		radius += s.rng.Float64() * (maxR - minR)
	}
	return s.Sample(radius)
}

// FromSpherical maps (radius, azimuth theta, polar phi) to Cartesian.
func FromSpherical(radius, theta, phi float64) r3.Vec {
	sinPhi := math.Sin(phi)
	return r3.Vec{
		X: radius * sinPhi * math.Cos(theta),
		Y: radius * sinPhi * math.Sin(theta),
		Z: radius * math.Cos(phi),
	}
}

// PolarAngle returns phi in [0, pi] for p. The origin maps to 0.
func PolarAngle(p r3.Vec) float64 {
	n := r3.Norm(p)
	if n == 0 {
		return 0
	}
	return math.Acos(clamp(p.Z/n, -1, 1))
}

func validRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
