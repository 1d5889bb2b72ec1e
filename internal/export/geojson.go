package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/store"
)

// FeatureCollection is a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON point feature for one lead.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Geometry is a GeoJSON Point. Coordinates are [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureProperties are the popup fields shown on the lead map.
type FeatureProperties struct {
	EntityID      string   `json:"entity_id"`
	FacilityName  string   `json:"facility_name"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Sector        string   `json:"sector"`
	Score         int      `json:"score"`
	Tier          string   `json:"tier"`
	ReasonText    string   `json:"reason_text"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// NewFeatureCollection builds point features for every lead with valid
// coordinates; unlocated leads are skipped.
func NewFeatureCollection(leads []store.Lead) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, l := range leads {
		if !l.Located() || !geo.Valid(*l.Lat, *l.Lon) {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{*l.Lon, *l.Lat},
			},
			Properties: FeatureProperties{
				EntityID:      l.ID,
				FacilityName:  l.Name,
				Address:       l.Address,
				City:          l.City,
				State:         l.State,
				Sector:        string(l.SectorPrimary),
				Score:         l.Score,
				Tier:          string(l.Tier),
				ReasonText:    l.ReasonText,
				DistanceMiles: l.DistanceMiles,
			},
		})
	}
	return fc
}

// WriteGeoJSON encodes leads as an indented FeatureCollection.
func WriteGeoJSON(w io.Writer, leads []store.Lead) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(NewFeatureCollection(leads)), "failed to encode geojson")
}
