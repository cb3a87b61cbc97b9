package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersFixture(t *testing.T) {
	a := Point{Latitude: 20.006801, Longitude: 73.795663}
	b := Point{Latitude: 20.006805, Longitude: 73.795299}

	// Haversine oracle: 38.035 m
	got := DistanceMeters(a, b)
	if math.Abs(got-38.035) > 0.01 {
		t.Fatalf("expected ~38.035 m, got %.4f", got)
	}
	if got < 36 || got > 40 {
		t.Fatalf("fixture outside ±2 m of 38: %.3f", got)
	}
}

func TestDistanceMetersProperties(t *testing.T) {
	points := []Point{
		{Latitude: 20.006801, Longitude: 73.795663},
		{Latitude: 20.007059, Longitude: 73.795645},
		{Latitude: 0, Longitude: 0},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: 89.9, Longitude: 179.9},
		{Latitude: -89.9, Longitude: -179.9},
	}

	for i, a := range points {
		if d := DistanceMeters(a, a); d != 0 {
			t.Errorf("point %d: distance to itself = %v, want 0", i, d)
		}
		for j, b := range points {
			ab := DistanceMeters(a, b)
			ba := DistanceMeters(b, a)
			if ab < 0 {
				t.Errorf("d(%d,%d) negative: %v", i, j, ab)
			}
			if diff := math.Abs(ab - ba); diff > 1e-6*math.Max(1, ab) {
				t.Errorf("d(%d,%d)=%v but d(%d,%d)=%v", i, j, ab, j, i, ba)
			}
		}
	}
}

func TestDistanceMetersAntipodal(t *testing.T) {
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 0, Longitude: 180}
	want := math.Pi * EarthRadiusMeters
	if got := DistanceMeters(a, b); math.Abs(got-want) > 1 {
		t.Fatalf("expected half circumference %.1f, got %.1f", want, got)
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{20, 73}, true},
		{Point{90, 180}, true},
		{Point{-90.1, 0}, false},
		{Point{0, 180.5}, false},
		{Point{math.NaN(), 0}, false},
		{Point{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestLerp(t *testing.T) {
	a := Point{Latitude: 10, Longitude: 20}
	b := Point{Latitude: 20, Longitude: 40}
	mid := Lerp(a, b, 0.5)
	if mid.Latitude != 15 || mid.Longitude != 30 {
		t.Fatalf("expected (15, 30), got (%v, %v)", mid.Latitude, mid.Longitude)
	}
}
