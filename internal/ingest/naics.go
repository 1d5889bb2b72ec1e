package ingest

import (
	"io"

	"github.com/sepa-leadgen/internal/classify"
	"github.com/sepa-leadgen/internal/merge"
)

// SourceNAICS labels records from the regional NAICS business snapshot.
const SourceNAICS = "naics_local"

var naicsColumns = []Column{
	{Name: "business_name", Variants: []string{"COMPANY NAME", "NAME", "BUSINESS_NAME", "COMPANY"}, Required: true},
	{Name: "address", Variants: []string{"STREET ADDRESS", "ADDRESS", "ADDRESS 1"}, Required: true},
	{Name: "city", Variants: []string{"CITY"}, Required: true},
	{Name: "state", Variants: []string{"STATE"}, Required: true},
	{Name: "zip", Variants: []string{"ZIP CODE", "ZIP", "ZIP_CODE"}},
	{Name: "county", Variants: []string{"COUNTY"}},
	{Name: "naics_code", Variants: []string{"NAICS", "NAICS_CODE"}},
	{Name: "naics_title", Variants: []string{"NAICS DESCRIPTION", "NAICS_TITLE", "TITLE", "DESCRIPTION"}},
	{Name: "latitude", Variants: []string{"LAT", "LATITUDE"}},
	{Name: "longitude", Variants: []string{"LON", "LONG", "LONGITUDE"}},
}

// ReadNAICS reads a NAICS business snapshot and classifies every row into
// a sector candidate.
func ReadNAICS(r io.Reader, c *classify.Classifier) ([]merge.SectorCandidate, Stats, error) {
	var out []merge.SectorCandidate
	stats, err := readCSV(r, SourceNAICS, naicsColumns, LooseHeaderThreshold, func(row *csvRow) bool {
		code := classify.NormalizeNAICS(row.Get("naics_code"))
		cls := c.Classify(code, row.Get("naics_title"))
		lat, lon := row.Coords()

		out = append(out, merge.SectorCandidate{
			Name:       row.Get("business_name"),
			Address:    row.Get("address"),
			Lat:        lat,
			Lon:        lon,
			Sector:     cls.Sector,
			Confidence: cls.Confidence,
			NAICSCode:  code,
			Notes:      cls.Notes,
		})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// ReadNAICSFile is ReadNAICS over a file path.
func ReadNAICSFile(path string, c *classify.Classifier) ([]merge.SectorCandidate, Stats, error) {
	var (
		out   []merge.SectorCandidate
		stats Stats
	)
	err := openFile(path, func(r io.Reader) error {
		var err error
		out, stats, err = ReadNAICS(r, c)
		return err
	})
	return out, stats, err
}
