package merge

import (
	"sort"

	"github.com/sepa-leadgen/internal/geo"
)

// spatialIndex buckets located candidates so a radius search only inspects
// the 3x3 cell neighbourhood around the query point. The distance gate is
// still applied by the caller.
type spatialIndex struct {
	precision int
	cells     map[string][]int
	located   []int
}

func newSpatialIndex(lats, lons []*float64, radiusMeters float64) *spatialIndex {
	ix := &spatialIndex{
		precision: geo.PrecisionForRadius(radiusMeters),
		cells:     make(map[string][]int),
	}
	for i := range lats {
		if lats[i] == nil || lons[i] == nil || !geo.Valid(*lats[i], *lons[i]) {
			continue
		}
		ix.located = append(ix.located, i)
		if ix.precision > 0 {
			b := geo.SpatialBucket(lats[i], lons[i], ix.precision)
			ix.cells[b] = append(ix.cells[b], i)
		}
	}
	return ix
}

// near returns candidate positions that may lie within the radius of the
// point, in ascending input order.
func (ix *spatialIndex) near(lat, lon float64) []int {
	if ix.precision == 0 {
		return ix.located
	}
	cells, ok := geo.Neighborhood(lat, lon, ix.precision)
	if !ok {
		return ix.located
	}
	var out []int
	for _, c := range cells {
		out = append(out, ix.cells[c]...)
	}
	sort.Ints(out)
	return out
}
