// Package geo provides the spatial bucket key and great-circle distance used
// to shard and gate facility comparisons.
package geo

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000.0
	// MetersPerMile converts haversine meters into statute miles.
	MetersPerMile = 1609.344
	// NoBucket is returned for records that cannot be bucketed.
	NoBucket = ""
	// DefaultPrecision gives roughly 150m cells.
	DefaultPrecision = 7
	// MaxPrecision is the full length produced by the encoder.
	MaxPrecision = 12
)

// Valid reports whether lat/lon form a usable WGS84 coordinate.
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// SpatialBucket returns the geohash prefix of the given precision. Points in
// the same bucket are close; smaller precisions give coarser cells. Missing
// or malformed coordinates yield NoBucket.
func SpatialBucket(lat, lon *float64, precision int) string {
	if lat == nil || lon == nil || !Valid(*lat, *lon) {
		return NoBucket
	}
	if precision <= 0 {
		return NoBucket
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	gh := geohash.Encode(*lat, *lon)
	if len(gh) < precision {
		return gh
	}
	return gh[:precision]
}

// DistanceMeters is the haversine great-circle distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusMeters * c
}

// DistanceMiles is DistanceMeters expressed in statute miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceMeters(lat1, lon1, lat2, lon2) / MetersPerMile
}

// PointDistance returns the distance between two optional points and whether
// both were present.
func PointDistance(lat1, lon1, lat2, lon2 *float64) (float64, bool) {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0, false
	}
	if !Valid(*lat1, *lon1) || !Valid(*lat2, *lon2) {
		return 0, false
	}
	return DistanceMeters(*lat1, *lon1, *lat2, *lon2), true
}
