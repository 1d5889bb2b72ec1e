package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/store"
)

func f64(v float64) *float64 { return &v }

var asOf = time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)

func sampleLeads() []store.Lead {
	entities := []model.Entity{
		{ID: "E1", Name: "Liberty Fleet Services", City: "Horsham", State: "PA", County: "Montgomery",
			Lat: f64(40.2887), Lon: f64(-75.128), SectorPrimary: model.SectorFleet, SectorConfidence: 100,
			CapacityGal: f64(25000), CapacityBucket: "20K+", DistanceMiles: f64(9.9978)},
		{ID: "E2", Name: "Corner Store, Inc.", SectorPrimary: model.SectorUnknown},
		{ID: "E3", Name: "Unscored"},
	}
	scores := []model.ScoreRecord{
		{EntityID: "E2", Score: 10, Tier: model.TierPark, ReasonCodes: []string{"NEAR"}, ReasonText: "12.0 miles from base"},
		{EntityID: "E1", Score: 100, Tier: model.TierA, ReasonCodes: []string{"D_TANK", "CAP_20K"},
			ReasonText: "Diesel tanks present; Diesel tanks 25,000 gal"},
	}
	return Leads(entities, scores)
}

func TestLeadsJoinsInEntityOrder(t *testing.T) {
	leads := sampleLeads()
	require.Len(t, leads, 2)
	assert.Equal(t, "E1", leads[0].ID)
	assert.Equal(t, 100, leads[0].Score)
	assert.Equal(t, "E2", leads[1].ID)
}

func TestWriteLeadsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeadsCSV(&buf, sampleLeads()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, LeadHeader, rows[0])

	first := map[string]string{}
	for i, h := range LeadHeader {
		first[h] = rows[1][i]
	}
	assert.Equal(t, "E1", first["entity_id"])
	assert.Equal(t, "40.288700", first["latitude"])
	assert.Equal(t, "25000", first["capacity_gal"])
	assert.Equal(t, "10.0", first["distance_mi"])
	assert.Equal(t, "", first["fleet_size"])
	assert.Equal(t, "Tier A", first["band"])
	assert.Equal(t, "D_TANK,CAP_20K", first["reasons_codes"])
	assert.Equal(t, "Diesel tanks present; Diesel tanks 25,000 gal", first["reasons_str"])

	assert.Equal(t, "Corner Store, Inc.", rows[2][1], "commas survive quoting")
	assert.Equal(t, "", rows[2][7])
}

func TestWriteSignalsCSV(t *testing.T) {
	var buf bytes.Buffer
	signals := []model.Signal{model.NewSignal("E1", "sector", "Fleet and Transportation", "naics_local", asOf)}
	require.NoError(t, WriteSignalsCSV(&buf, signals))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		SignalHeader,
		{"E1", "sector", "Fleet and Transportation", "naics_local", "2025-01-15T12:30:00Z"},
	}, rows)
}

func TestGeoJSONSkipsUnlocated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleLeads()))

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, [2]float64{-75.128, 40.2887}, f.Geometry.Coordinates, "GeoJSON is lon, lat")
	assert.Equal(t, "E1", f.Properties.EntityID)
	assert.Equal(t, "Tier A", f.Properties.Tier)
}

func TestGeoJSONEmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, nil))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(dir, asOf, sampleLeads(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "leads_20250115_1230.csv"),
		filepath.Join(dir, "signals_20250115_1230.csv"),
		filepath.Join(dir, "tier_a_20250115_1230.geojson"),
	}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestFilterTier(t *testing.T) {
	leads := sampleLeads()
	assert.Len(t, FilterTier(leads, model.TierA), 1)
	assert.Empty(t, FilterTier(leads, model.TierB))
}
