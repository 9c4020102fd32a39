package notify

import (
	"math"
	"testing"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	if d := DistanceKm(3.1390, 101.6869, 3.1390, 101.6869); d != 0 {
		t.Fatalf("distance between identical points = %v, want 0", d)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	// KL city centre → Petaling Jaya, roughly 9.6 km great-circle.
	d := DistanceKm(3.1390, 101.6869, 3.1073, 101.6067)
	if math.Abs(d-9.58) > 0.5 {
		t.Fatalf("KL→PJ distance = %v km, want ≈9.58", d)
	}

	// Symmetry.
	if back := DistanceKm(3.1073, 101.6067, 3.1390, 101.6869); math.Abs(back-d) > 1e-9 {
		t.Fatalf("asymmetric distance: %v vs %v", d, back)
	}

	// One degree of latitude along a meridian is exactly R·π/180, so the
	// expectation here is derived, not looked up.
	oneDegreeKm := earthRadiusKm * math.Pi / 180
	if d := DistanceKm(0, 101.6869, 1, 101.6869); math.Abs(d-oneDegreeKm) > 1e-6 {
		t.Fatalf("meridian degree = %v km, want %v", d, oneDegreeKm)
	}
}

func TestWithinRadiusBoundaryInclusive(t *testing.T) {
	// Move due north from the equator by the arc that spans exactly 10 km,
	// so the boundary case is exercised without float guesswork.
	const tenKmLatDelta = (10.0 / earthRadiusKm) * (180 / math.Pi)

	d := DistanceKm(0, 101.6869, tenKmLatDelta, 101.6869)
	if math.Abs(d-10.0) > 1e-6 {
		t.Fatalf("constructed boundary distance = %v km, want 10", d)
	}

	if !WithinRadius(0, 101.6869, tenKmLatDelta, 101.6869, d) {
		t.Fatal("distance == radius must match (inclusive boundary)")
	}
	if WithinRadius(0, 101.6869, tenKmLatDelta, 101.6869, d-0.001) {
		t.Fatal("1 m past the radius must not match")
	}
}

func TestWithinRadiusDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	// ~5.5 km apart: inside the 10 km default.
	if !WithinRadius(3.1390, 101.6869, 3.1890, 101.6869, p.RadiusKm) {
		t.Fatal("nearby NGO excluded from default radius")
	}
	// ~22 km apart: outside.
	if WithinRadius(3.1390, 101.6869, 3.3390, 101.6869, p.RadiusKm) {
		t.Fatal("far NGO included in default radius")
	}
}
