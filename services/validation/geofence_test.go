package validation

import (
	"math"
	"testing"
)

func TestDistanceMetersSymmetric(t *testing.T) {
	a := Point{Latitude: 12.9716, Longitude: 77.5946}
	b := Point{Latitude: 12.9720, Longitude: 77.5950}

	d1 := DistanceMeters(a, b)
	d2 := DistanceMeters(b, a)
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", d1, d2)
	}
	if d1 <= 0 {
		t.Fatalf("expected positive distance, got %f", d1)
	}
}

func TestDistanceMetersIdenticalPoints(t *testing.T) {
	p := Point{Latitude: 12.9716, Longitude: 77.5946}
	if d := DistanceMeters(p, p); d != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", d)
	}
	if !WithinRadius(p, p, 0.0001) {
		t.Fatal("identical points should be within any positive radius")
	}
}

func TestWithinRadiusMonotonic(t *testing.T) {
	center := Point{Latitude: 12.9716, Longitude: 77.5946}
	point := Point{Latitude: 12.9720, Longitude: 77.5950}
	d := DistanceMeters(point, center)

	// Increasing the radius never turns a pass into a fail.
	if !WithinRadius(point, center, d+1) {
		t.Fatal("expected pass just outside measured distance")
	}
	if !WithinRadius(point, center, d+100) {
		t.Fatal("expected pass with larger radius")
	}
	if WithinRadius(point, center, d-1) {
		t.Fatal("expected fail just inside measured distance")
	}
}

func TestWithinRadiusFailsClosed(t *testing.T) {
	center := Point{Latitude: 12.9716, Longitude: 77.5946}

	tests := []struct {
		name   string
		point  Point
		center Point
		radius float64
	}{
		{"zero radius", center, center, 0},
		{"negative radius", center, center, -5},
		{"nan radius", center, center, math.NaN()},
		{"nan latitude", Point{Latitude: math.NaN(), Longitude: 77}, center, 50},
		{"latitude out of range", Point{Latitude: 91, Longitude: 77}, center, 50},
		{"longitude out of range", Point{Latitude: 12, Longitude: 181}, center, 50},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if WithinRadius(tc.point, tc.center, tc.radius) {
				t.Fatal("expected fail-closed false")
			}
		})
	}
}

func TestWithinRadiusKnownDistance(t *testing.T) {
	// Roughly 111 km per degree of latitude at the equator.
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 1, Longitude: 0}

	d := DistanceMeters(a, b)
	if d < 110000 || d > 112500 {
		t.Fatalf("one degree latitude distance off: %f", d)
	}
}
