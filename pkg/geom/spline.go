package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// minKnotInterval guards against coincident control points collapsing a knot span.
const minKnotInterval = 1e-4

// sampleCatmullRom evaluates a Catmull-Rom spline through controls (at least
// two points) at n evenly spaced parameters. The curve passes through every
// control point; the missing neighbours at either end are extrapolated.
func sampleCatmullRom(controls []r3.Vec, n int, alpha float64) []r3.Vec {
	last := len(controls) - 1
	pts := make([]r3.Vec, 0, len(controls)+2)
	pts = append(pts, r3.Sub(r3.Scale(2, controls[0]), controls[1]))
	pts = append(pts, controls...)
	pts = append(pts, r3.Sub(r3.Scale(2, controls[last]), controls[last-1]))

	segments := last
	out := make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		u := float64(i) / float64(n-1) * float64(segments)
		seg := int(math.Floor(u))
		if seg >= segments {
			seg = segments - 1
		}
		out[i] = catmullRomPoint(pts[seg], pts[seg+1], pts[seg+2], pts[seg+3], u-float64(seg), alpha)
	}
	return out
}

// catmullRomPoint evaluates the segment between p1 and p2 at local parameter
// s in [0,1] using the Barry-Goldman pyramid.
func catmullRomPoint(p0, p1, p2, p3 r3.Vec, s, alpha float64) r3.Vec {
	t0 := 0.0
	t1 := t0 + knot(p0, p1, alpha)
	t2 := t1 + knot(p1, p2, alpha)
	t3 := t2 + knot(p2, p3, alpha)
	t := t1 + s*(t2-t1)

	a1 := lerp(p0, p1, t0, t1, t)
	a2 := lerp(p1, p2, t1, t2, t)
	a3 := lerp(p2, p3, t2, t3, t)
	b1 := lerp(a1, a2, t0, t2, t)
	b2 := lerp(a2, a3, t1, t3, t)
	return lerp(b1, b2, t1, t2, t)
}

func knot(a, b r3.Vec, alpha float64) float64 {
	d := math.Pow(r3.Norm2(r3.Sub(b, a)), alpha/2)
	if d < minKnotInterval {
		return minKnotInterval
	}
	return d
}

// lerp blends a (at ta) and b (at tb) at parameter t.
func lerp(a, b r3.Vec, ta, tb, t float64) r3.Vec {
	w := (t - ta) / (tb - ta)
	return r3.Add(r3.Scale(1-w, a), r3.Scale(w, b))
}
