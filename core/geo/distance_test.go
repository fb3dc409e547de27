package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helperlink/dispatch/core/model"
)

func TestDistanceKm_Identity(t *testing.T) {
	p := model.Coordinate{Lat: 17.3850, Lng: 78.4867}
	assert.Equal(t, 0.0, DistanceKm(p, p))
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := model.Coordinate{Lat: 17.3850, Lng: 78.4867}
	b := model.Coordinate{Lat: 17.4399, Lng: 78.4983}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Hyderabad city centre to Secunderabad, roughly 6.2 km apart.
	a := model.Coordinate{Lat: 17.3850, Lng: 78.4867}
	b := model.Coordinate{Lat: 17.4399, Lng: 78.4983}
	d := DistanceKm(a, b)
	if d < 5 || d > 8 {
		t.Fatalf("expected ~6km, got %v", d)
	}
}

func TestDistanceKm_Antipodal(t *testing.T) {
	a := model.Coordinate{Lat: 0, Lng: 0}
	b := model.Coordinate{Lat: 0, Lng: 180}
	assert.InDelta(t, math.Pi*earthRadiusKm, DistanceKm(a, b), 1)
}
