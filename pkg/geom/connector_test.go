package geom

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"
)

func drawDirection(t *rapid.T, label string) r3.Vec {
	theta := rapid.Float64Range(0, 2*math.Pi).Draw(t, label+"_theta")
	z := rapid.Float64Range(-1, 1).Draw(t, label+"_z")
	return FromSpherical(1, theta, math.Acos(z))
}

func TestBuild_StaysOutsideSphere(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		radius := rapid.Float64Range(1, 10000).Draw(t, "radius")
		a := r3.Scale(radius, drawDirection(t, "anchor"))
		b := r3.Scale(radius, drawDirection(t, "target"))

		path, err := DefaultBuilder().Build(a, b, radius)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		for i, p := range path {
			if n := r3.Norm(p); n < radius {
				t.Fatalf("sample %d has magnitude %v < radius %v", i, n, radius)
			}
		}
	})
}

func TestBuild_AntipodalStaysOutsideSphere(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		radius := rapid.Float64Range(1, 500).Draw(t, "radius")
		d := drawDirection(t, "dir")
		path, err := DefaultBuilder().Build(r3.Scale(radius, d), r3.Scale(-radius, d), radius)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if len(path) != DefaultSamples {
			t.Fatalf("len(path) = %d, want %d", len(path), DefaultSamples)
		}
		for i, p := range path {
			if n := r3.Norm(p); n < radius || math.IsNaN(n) {
				t.Fatalf("sample %d has magnitude %v < radius %v", i, n, radius)
			}
		}
	})
}

func TestBuild_EndpointsOnOffsetShell(t *testing.T) {
	b := DefaultBuilder()
	anchor := r3.Vec{X: 95}
	target := r3.Vec{Y: 107}

	path, err := b.Build(anchor, target, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(path) != DefaultSamples {
		t.Fatalf("len(path) = %d, want %d", len(path), DefaultSamples)
	}

	shell := 100 + b.Offset
	first, last := path[0], path[len(path)-1]
	if d := r3.Norm(r3.Sub(first, r3.Vec{X: shell})); d > 1e-9 {
		t.Errorf("first point = %v, want anchor projected to %v", first, shell)
	}
	if d := r3.Norm(r3.Sub(last, r3.Vec{Y: shell})); d > 1e-9 {
		t.Errorf("last point = %v, want target projected to %v", last, shell)
	}
}

func TestBuild_BulgesOutward(t *testing.T) {
	b := DefaultBuilder()
	path, err := b.Build(r3.Vec{X: 100}, r3.Vec{Y: 100}, 100)
	if err != nil {
		t.Fatal(err)
	}
	mid := path[len(path)/2]
	if n := r3.Norm(mid); n <= 100+b.Offset {
		t.Errorf("midpoint magnitude %v does not exceed endpoint shell %v", n, 100+b.Offset)
	}
}

func TestBuild_IsPure(t *testing.T) {
	b := DefaultBuilder()
	a := r3.Vec{X: 60, Y: -70, Z: 30}
	c := r3.Vec{X: -20, Y: 10, Z: 98}
	p1, err1 := b.Build(a, c, 100)
	p2, err2 := b.Build(a, c, 100)
	if err1 != nil || err2 != nil {
		t.Fatalf("Build errors: %v, %v", err1, err2)
	}
	if len(p1) != len(p2) {
		t.Fatalf("lengths differ: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("point %d differs: %v vs %v", i, p1[i], p2[i])
		}
	}
}

func TestBuild_CoincidentEndpoints(t *testing.T) {
	b := DefaultBuilder()
	p := r3.Vec{X: 3, Y: 4}
	path, err := b.Build(p, r3.Scale(2, p), 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(path) != 1 {
		t.Fatalf("len(path) = %d, want single point", len(path))
	}
	want := r3.Scale(105, r3.Unit(p))
	if d := r3.Norm(r3.Sub(path[0], want)); d > 1e-9 {
		t.Errorf("point = %v, want %v", path[0], want)
	}
}

func TestBuild_CentreEndpointBorrowsDirection(t *testing.T) {
	path, err := DefaultBuilder().Build(r3.Vec{}, r3.Vec{Z: 100}, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(path) != 1 || path[0] != (r3.Vec{Z: 105}) {
		t.Errorf("path = %v, want [{0 0 105}]", path)
	}
}

func TestBuild_BothAtCentre(t *testing.T) {
	_, err := DefaultBuilder().Build(r3.Vec{}, r3.Vec{}, 100)
	if !errors.Is(err, ErrDegenerateSegment) {
		t.Errorf("error = %v, want ErrDegenerateSegment", err)
	}
}

func TestBuild_InvalidRadius(t *testing.T) {
	_, err := DefaultBuilder().Build(r3.Vec{X: 1}, r3.Vec{Y: 1}, 0)
	if !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("error = %v, want ErrInvalidRadius", err)
	}
}

func TestBuilder_Defaults(t *testing.T) {
	tests := []struct {
		name        string
		in          Builder
		wantSamples int
	}{
		{"zero value", Builder{}, DefaultSamples},
		{"too few samples", Builder{Samples: 5}, MinSamples},
		{"explicit", Builder{Samples: 80}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := tt.in.Build(r3.Vec{X: 1}, r3.Vec{Y: 1}, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(path) != tt.wantSamples {
				t.Errorf("len(path) = %d, want %d", len(path), tt.wantSamples)
			}
		})
	}
}

func TestSubdivide_RespectsMaxAngle(t *testing.T) {
	a := r3.Vec{X: 1}
	b := r3.Vec{X: -1}
	maxAngle := 20 * math.Pi / 180
	dirs := subdivide(a, b, maxAngle)
	if dirs[0] != a || dirs[len(dirs)-1] != b {
		t.Fatalf("subdivide must keep endpoints")
	}
	for i := 1; i < len(dirs); i++ {
		if ang := angleBetween(dirs[i-1], dirs[i]); ang > maxAngle+1e-12 {
			t.Errorf("segment %d spans %v rad > %v", i, ang, maxAngle)
		}
	}
}

func TestSubdivide_AlwaysHasMidpoint(t *testing.T) {
	a := r3.Vec{X: 1}
	b := r3.Unit(r3.Vec{X: 1, Y: 0.01})
	if got := len(subdivide(a, b, math.Pi/2)); got != 3 {
		t.Errorf("len(subdivide) = %d, want 3 (ends plus midpoint)", got)
	}
}

func TestPerpendicular(t *testing.T) {
	for _, a := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})} {
		p := perpendicular(a)
		if d := r3.Dot(a, p); math.Abs(d) > 1e-12 {
			t.Errorf("perpendicular(%v) dot = %v", a, d)
		}
		if n := r3.Norm(p); math.Abs(n-1) > 1e-12 {
			t.Errorf("perpendicular(%v) norm = %v", a, n)
		}
	}
}
