package notify

import "math"

// Mean Earth radius, kilometers.
const earthRadiusKm = 6371

// DistanceKm returns the haversine great-circle distance between two
// points given in decimal degrees. Coordinates are not validated here; the
// repository layer owns range checks, and out-of-range values produce a
// well-defined but meaningless number.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether the target lies within radiusKm of the
// source, boundary inclusive.
func WithinRadius(sourceLat, sourceLon, targetLat, targetLon, radiusKm float64) bool {
	return DistanceKm(sourceLat, sourceLon, targetLat, targetLon) <= radiusKm
}

func radians(deg float64) float64 {
	return deg * (math.Pi / 180)
}
