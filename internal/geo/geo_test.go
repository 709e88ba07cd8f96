package geo

import (
	"testing"

	"github.com/BearBump/CareTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters_ZeroAndSymmetry(t *testing.T) {
	require.Zero(t, DistanceMeters(37.0, -122.0, 37.0, -122.0))

	ab := DistanceMeters(37.0, -122.0, 37.01, -122.02)
	ba := DistanceMeters(37.01, -122.02, 37.0, -122.0)
	require.InDelta(t, ab, ba, 1e-9)
	require.Greater(t, ab, 0.0)
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// One degree of latitude is ~111.2km.
	d := DistanceMeters(0, 0, 1, 0)
	require.InDelta(t, 111195, d, 100)
}

func TestIsInside(t *testing.T) {
	zone := &models.SafeZone{CenterLatitude: 37.0, CenterLongitude: -122.0, RadiusMeters: 500}

	require.True(t, IsInside(37.0, -122.0, zone))

	// ~600m north of center (> 500m radius).
	require.False(t, IsInside(37.0054, -122.0, zone))

	// ~400m north of center.
	require.True(t, IsInside(37.0036, -122.0, zone))
}

func TestIsInside_BoundaryCountsAsInside(t *testing.T) {
	zone := &models.SafeZone{CenterLatitude: 0, CenterLongitude: 0, RadiusMeters: DistanceMeters(0, 0, 0.001, 0)}
	require.True(t, IsInside(0.001, 0, zone))
}

func TestValidCoordinate(t *testing.T) {
	require.True(t, ValidCoordinate(90, 180))
	require.True(t, ValidCoordinate(-90, -180))
	require.False(t, ValidCoordinate(90.0001, 0))
	require.False(t, ValidCoordinate(0, -180.0001))
}
