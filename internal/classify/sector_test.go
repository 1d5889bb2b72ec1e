package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sepa-leadgen/internal/model"
)

func TestNormalizeNAICS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"484110", "484110"},
		{"4841", "004841"},
		{"484", "000484"},
		{"4841-10", "484110"},
		{"4841.10", "484110"},
		{"48411099", "484110"},
		{"", ""},
		{"n/a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeNAICS(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name       string
		code       string
		title      string
		wantSector model.Sector
		wantConf   int
	}{
		{"fleet prefix", "484110", "General Freight Trucking", model.SectorFleet, 100},
		{"healthcare prefix", "622110", "General Medical and Surgical Hospitals", model.SectorHealthcare, 100},
		{"education keyword beats fleet keyword", "", "Third Street School District Bus Depot", model.SectorEducation, 70},
		{"construction prefix", "236220", "Commercial and Institutional Building Construction", model.SectorConstruction, 100},
		{"data center exact", "518210", "Data Processing, Hosting, and Related Services", model.SectorUtilities, 100},
		{"utilities prefix", "221310", "Water Supply", model.SectorUtilities, 100},
		{"manufacturing prefix", "332710", "Machine Shops", model.SectorManufacturing, 100},
		{"public prefix", "921140", "Executive and Legislative Offices", model.SectorPublic, 100},
		{"retail exact", "447110", "Gasoline Stations with Convenience Stores", model.SectorRetail, 100},
		{"retail keyword", "", "Corner Gas Station", model.SectorRetail, 70},
		{"partial data processing", "518290", "Hosted Services", model.SectorUtilities, 50},
		{"unknown", "999999", "Unknown Company", model.SectorUnknown, 0},
		{"empty", "", "", model.SectorUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.code, tt.title)
			assert.Equal(t, tt.wantSector, got.Sector)
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.NotEmpty(t, got.Notes)
		})
	}
}

func TestClassifyKeywordNoteTruncated(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("", "Regional Trucking and Warehousing Services of Southeastern Pennsylvania")
	assert.Equal(t, model.SectorFleet, got.Sector)
	assert.Equal(t, "Title keyword: regional trucking and warehousing services of sout", got.Notes)
}

func TestEntityFlags(t *testing.T) {
	assert.Equal(t, Flags{Hospital: true}, EntityFlags("622110"))
	assert.Equal(t, Flags{School: true}, EntityFlags("611110"))
	assert.Equal(t, Flags{DataCenter: true}, EntityFlags("518210"))
	assert.Equal(t, Flags{}, EntityFlags("518290"))
	assert.Equal(t, Flags{}, EntityFlags(""))

	e := &model.Entity{Hospital: true}
	EntityFlags("611110").Apply(e)
	assert.True(t, e.Hospital)
	assert.True(t, e.School)
	assert.False(t, e.DataCenter)
}
