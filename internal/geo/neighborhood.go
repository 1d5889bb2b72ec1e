package geo

import "math"

// maxIndexedLatitude bounds where a 3x3 cell neighbourhood is trusted to cover
// a search radius; cells narrow towards the poles.
const maxIndexedLatitude = 60.0

// CellSize returns the height and width in degrees of a geohash cell.
func CellSize(precision int) (latDeg, lonDeg float64) {
	bits := 5 * precision
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / math.Pow(2, float64(latBits)), 360 / math.Pow(2, float64(lonBits))
}

// PrecisionForRadius picks the finest precision (capped at DefaultPrecision)
// whose cells are at least radius meters on each side up to
// maxIndexedLatitude. Returns 0 when no precision is coarse enough.
func PrecisionForRadius(radiusMeters float64) int {
	metersPerDeg := EarthRadiusMeters * math.Pi / 180
	for p := DefaultPrecision; p >= 1; p-- {
		latDeg, lonDeg := CellSize(p)
		h := latDeg * metersPerDeg
		w := lonDeg * metersPerDeg * math.Cos(maxIndexedLatitude*math.Pi/180)
		if h >= radiusMeters && w >= radiusMeters {
			return p
		}
	}
	return 0
}

// Neighborhood returns the bucket containing the point plus its eight
// neighbours. A second return of false means the point is outside the range
// where the neighbourhood is reliable and callers should scan everything.
func Neighborhood(lat, lon float64, precision int) ([]string, bool) {
	if !Valid(lat, lon) || precision <= 0 || math.Abs(lat) > maxIndexedLatitude {
		return nil, false
	}
	latDeg, lonDeg := CellSize(precision)
	seen := make(map[string]bool, 9)
	out := make([]string, 0, 9)
	for _, dy := range []float64{0, -1, 1} {
		for _, dx := range []float64{0, -1, 1} {
			y := lat + dy*latDeg
			x := wrapLongitude(lon + dx*lonDeg)
			if y > 90 || y < -90 {
				continue
			}
			b := SpatialBucket(&y, &x, precision)
			if b == NoBucket || seen[b] {
				continue
			}
			seen[b] = true
			out = append(out, b)
		}
	}
	return out, true
}

func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
