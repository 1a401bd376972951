package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Connector defaults.
const (
	DefaultOffset          = 5.0
	DefaultBulge           = 1.5
	DefaultSamples         = 50
	MinSamples             = 30
	DefaultMaxSegmentAngle = 20 * math.Pi / 180
	DefaultAlpha           = 0.5 // centripetal

	maxSubdivisionDepth = 12
	coincidentAngle     = 1e-9
)

// Builder constructs connector paths that arc over the sphere instead of
// cutting a chord through it. The zero value uses the package defaults.
type Builder struct {
	// Offset is the clearance between the sphere surface and the path ends.
	Offset float64
	// Bulge scales Offset for interior control points; values <= 1 use DefaultBulge.
	Bulge float64
	// Samples is the number of points in a built path (at least MinSamples).
	Samples int
	// MaxSegmentAngle bounds the angle between adjacent control points, in radians.
	MaxSegmentAngle float64
	// Alpha is the Catmull-Rom knot exponent: 0 uniform, 0.5 centripetal, 1 chordal.
	Alpha float64
}

// DefaultBuilder returns a Builder with the package defaults filled in.
func DefaultBuilder() Builder {
	return Builder{
		Offset:          DefaultOffset,
		Bulge:           DefaultBulge,
		Samples:         DefaultSamples,
		MaxSegmentAngle: DefaultMaxSegmentAngle,
		Alpha:           DefaultAlpha,
	}
}

func (b Builder) withDefaults() Builder {
	if b.Offset <= 0 {
		b.Offset = DefaultOffset
	}
	if b.Bulge <= 1 {
		b.Bulge = DefaultBulge
	}
	if b.Samples < MinSamples {
		if b.Samples == 0 {
			b.Samples = DefaultSamples
		} else {
			b.Samples = MinSamples
		}
	}
	if b.MaxSegmentAngle <= 0 || b.MaxSegmentAngle > math.Pi/2 {
		b.MaxSegmentAngle = DefaultMaxSegmentAngle
	}
	if b.Alpha < 0 || b.Alpha > 1 {
		b.Alpha = DefaultAlpha
	}
	return b
}

// Build returns the sampled connector from anchor to target around a sphere
// of the given radius. Coincident endpoints yield a single-point path.
func (b Builder) Build(anchor, target r3.Vec, radius float64) ([]r3.Vec, error) {
	if !validRadius(radius) {
		return nil, fmt.Errorf("build connector at radius %v: %w", radius, ErrInvalidRadius)
	}
	b = b.withDefaults()

	ua, ub, err := endpointDirections(anchor, target)
	if err != nil {
		return nil, err
	}

	shell := radius + b.Offset
	if angleBetween(ua, ub) < coincidentAngle {
		return []r3.Vec{r3.Scale(shell, ua)}, nil
	}

	dirs := subdivide(ua, ub, b.segmentLimit(radius))
	bulged := radius + b.Offset*b.Bulge
	controls := make([]r3.Vec, len(dirs))
	for i, d := range dirs {
		r := bulged
		if i == 0 || i == len(dirs)-1 {
			r = shell
		}
		controls[i] = r3.Scale(r, d)
	}

	path := sampleCatmullRom(controls, b.Samples, b.Alpha)
	path[0] = controls[0]
	path[len(path)-1] = controls[len(controls)-1]
	return path, nil
}

// segmentLimit keeps every chord between adjacent control points at least
// Offset/2 above the surface, whatever the radius to offset ratio.
func (b Builder) segmentLimit(radius float64) float64 {
	shell := radius + b.Offset
	sag := 2 * math.Acos((radius+b.Offset/2)/shell)
	return math.Min(b.MaxSegmentAngle, sag)
}

// endpointDirections returns unit directions for both ends. A zero-length end
// borrows the other end's direction.
func endpointDirections(anchor, target r3.Vec) (r3.Vec, r3.Vec, error) {
	na, nt := r3.Norm(anchor), r3.Norm(target)
	switch {
	case na == 0 && nt == 0:
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("both endpoints at the sphere centre: %w", ErrDegenerateSegment)
	case na == 0:
		u := r3.Scale(1/nt, target)
		return u, u, nil
	case nt == 0:
		u := r3.Scale(1/na, anchor)
		return u, u, nil
	}
	return r3.Scale(1/na, anchor), r3.Scale(1/nt, target), nil
}

// subdivide returns unit directions from a to b inclusive. The midpoint is
// always present; halves are split until they fit within maxAngle.
func subdivide(a, b r3.Vec, maxAngle float64) []r3.Vec {
	out := []r3.Vec{a}
	var split func(p, q r3.Vec, depth int)
	split = func(p, q r3.Vec, depth int) {
		if depth > 0 && (depth >= maxSubdivisionDepth || angleBetween(p, q) <= maxAngle) {
			out = append(out, q)
			return
		}
		m := midDirection(p, q)
		split(p, m, depth+1)
		split(m, q, depth+1)
	}
	split(a, b, 0)
	return out
}

// midDirection bisects two unit vectors. Antipodal inputs have no unique
// bisector, so a perpendicular axis is used instead.
func midDirection(a, b r3.Vec) r3.Vec {
	s := r3.Add(a, b)
	if n := r3.Norm(s); n > 1e-12 {
		return r3.Scale(1/n, s)
	}
	return perpendicular(a)
}

// perpendicular returns a unit vector orthogonal to unit vector a, built
// against the world axis least aligned with it.
func perpendicular(a r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	switch ax, ay, az := math.Abs(a.X), math.Abs(a.Y), math.Abs(a.Z); {
	case ay <= ax && ay <= az:
		axis = r3.Vec{Y: 1}
	case az <= ax && az <= ay:
		axis = r3.Vec{Z: 1}
	}
	c := r3.Cross(a, axis)
	return r3.Scale(1/r3.Norm(c), c)
}

func angleBetween(a, b r3.Vec) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}
