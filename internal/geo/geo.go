package geo

import (
	"math"

	"github.com/BearBump/CareTrack/internal/models"
)

const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between two WGS-84
// points (haversine).
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// IsInside reports whether a point falls within the zone. A point exactly
// on the boundary counts as inside.
func IsInside(lat, lon float64, zone *models.SafeZone) bool {
	d := DistanceMeters(lat, lon, zone.CenterLatitude, zone.CenterLongitude)
	return d <= zone.RadiusMeters
}

// ValidCoordinate reports whether lat/lon are in WGS-84 decimal-degree range.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
