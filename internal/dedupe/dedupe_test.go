package dedupe

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepa-leadgen/internal/model"
)

func ptr(v float64) *float64 { return &v }

func rec(id, name string, lat, lon *float64) model.RawRecord {
	return model.RawRecord{Source: "pa_tanks", SourceID: id, Name: name, Lat: lat, Lon: lon}
}

func newDeduplicator(t *testing.T) *Deduplicator {
	t.Helper()
	d, err := New(DefaultOptions())
	require.NoError(t, err)
	return d
}

func TestDedupeCollapsesLegalFormVariants(t *testing.T) {
	d := newDeduplicator(t)

	// 50m apart, same precision-7 cell.
	sparse := rec("1", "ACME TRUCKING LLC", ptr(40.1432), ptr(-75.1280))
	rich := rec("2", "ACME TRUCKING", ptr(40.14365), ptr(-75.1280))
	rich.Address = "100 Industrial Way"
	rich.City = "Warminster"
	rich.Zip = "18974"

	res, err := d.Dedupe([]model.RawRecord{sparse, rich})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2", res.Records[0].SourceID, "representative has more populated fields")
	assert.Equal(t, 1, res.Stats.Merged)
}

func TestDedupeRepresentativeTieKeepsFirst(t *testing.T) {
	d := newDeduplicator(t)
	a := rec("1", "ACME TRUCKING", ptr(40.1432), ptr(-75.1280))
	b := rec("2", "ACME TRUCKING INC", ptr(40.1436), ptr(-75.1279))

	res, err := d.Dedupe([]model.RawRecord{a, b})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "1", res.Records[0].SourceID)
}

func TestDedupeBelowThresholdStaysSeparate(t *testing.T) {
	d := newDeduplicator(t)
	a := rec("1", "ACME TRUCKING", ptr(40.1432), ptr(-75.1280))
	b := rec("2", "ZENITH HOSPITAL", ptr(40.1436), ptr(-75.1279))

	res, err := d.Dedupe([]model.RawRecord{a, b})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Stats.Singletons)
}

func TestDedupeShortKeysOneEditApartStaySeparate(t *testing.T) {
	d := newDeduplicator(t)
	// Keys reduce to BOB and BOBS: one edit, similarity 75.
	a := rec("1", "BOB ST INC", ptr(40.1432), ptr(-75.1280))
	b := rec("2", "BOBS ST INC", ptr(40.1433), ptr(-75.1280))

	res, err := d.Dedupe([]model.RawRecord{a, b})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 0, res.Stats.Merged)
}

func TestDedupeDifferentBucketsStaySeparate(t *testing.T) {
	d := newDeduplicator(t)
	a := rec("1", "ACME TRUCKING", ptr(40.1432), ptr(-75.1280))
	b := rec("2", "ACME TRUCKING", ptr(40.2000), ptr(-75.2000))

	res, err := d.Dedupe([]model.RawRecord{a, b})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestDedupeUnlocatedAndUnnamedAreSingletons(t *testing.T) {
	d := newDeduplicator(t)
	records := []model.RawRecord{
		rec("1", "ACME TRUCKING", nil, nil),
		rec("2", "ACME TRUCKING", nil, nil),
		rec("3", "", ptr(40.1432), ptr(-75.1280)),
		rec("4", "", ptr(40.1436), ptr(-75.1279)),
		rec("5", "LLC", ptr(40.1432), ptr(-75.1280)),
		rec("6", "Inc.", ptr(40.1436), ptr(-75.1279)),
	}

	res, err := d.Dedupe(records)
	require.NoError(t, err)
	assert.Len(t, res.Records, 6)
	assert.Equal(t, 2, res.Stats.Unbucketed)
	assert.Equal(t, 6, res.Stats.Singletons)
}

func TestDedupeOrderFollowsFirstMember(t *testing.T) {
	d := newDeduplicator(t)
	records := []model.RawRecord{
		rec("1", "BRAVO FUELS", ptr(40.2000), ptr(-75.2000)),
		rec("2", "ACME TRUCKING", ptr(40.1432), ptr(-75.1280)),
		rec("3", "CHARLIE SCHOOL DISTRICT", nil, nil),
		rec("4", "ACME TRUCKING", ptr(40.1436), ptr(-75.1279)),
	}

	res, err := d.Dedupe(records)
	require.NoError(t, err)
	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.SourceID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestDedupeComparesAgainstFirstClusterMember(t *testing.T) {
	d, err := New(Options{Threshold: 80, Precision: 7})
	require.NoError(t, err)

	// B is within 80 of A, C is within 80 of B but not of A.
	records := []model.RawRecord{
		rec("A", "ABCDEFGHIJ", ptr(40.1432), ptr(-75.1280)),
		rec("B", "ABCDEFGHXY", ptr(40.1432), ptr(-75.1280)),
		rec("C", "ABCDEFWZXY", ptr(40.1432), ptr(-75.1280)),
	}

	res, err := d.Dedupe(records)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "A", res.Records[0].SourceID)
	assert.Equal(t, "C", res.Records[1].SourceID)
}

func TestDedupeDeterministic(t *testing.T) {
	d := newDeduplicator(t)
	records := []model.RawRecord{
		rec("1", "ACME TRUCKING LLC", ptr(40.1432), ptr(-75.1280)),
		rec("2", "ACME TRUCKING", ptr(40.14365), ptr(-75.1280)),
		rec("3", "ZENITH HOSPITAL", ptr(40.1436), ptr(-75.1279)),
	}

	first, err := d.Dedupe(records)
	require.NoError(t, err)
	second, err := d.Dedupe(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDedupeEmptyInput(t *testing.T) {
	d := newDeduplicator(t)
	_, err := d.Dedupe(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInputShape))
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"threshold above range", Options{Threshold: 101, Precision: 7}},
		{"negative threshold", Options{Threshold: -1, Precision: 7}},
		{"zero precision", Options{Threshold: 90, Precision: 0}},
		{"precision too fine", Options{Threshold: 90, Precision: 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrConfiguration))
		})
	}
}
