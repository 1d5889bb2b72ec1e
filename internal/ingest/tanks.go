package ingest

import (
	"io"
	"strings"

	"github.com/sepa-leadgen/internal/model"
)

// SourceTanks labels records from the state storage tank registry.
const SourceTanks = "pa_tanks"

// Attribute keys carried on tank records.
const (
	AttrProductCode = "product_code"
	AttrStatusCode  = "status_code"
	AttrCapacity    = "capacity"
	AttrMailingName = "mailing_name"
)

var tankColumns = []Column{
	{Name: "facility_name", Variants: []string{"PF_NAME"}, Required: true},
	{Name: "facility_id", Variants: []string{"PF_SITE_ID"}},
	{Name: "mailing_name", Variants: []string{"MAILING_NAME"}},
	{Name: "address_1", Variants: []string{"LOCAD_PF_ADDRESS_1"}, Required: true},
	{Name: "address_2", Variants: []string{"LOCAD_PF_ADDRESS_2"}},
	{Name: "city", Variants: []string{"LOCAD_LOCAD_PF_CITY"}, Required: true},
	{Name: "state", Variants: []string{"LOCAD_PF_STATE"}, Required: true},
	{Name: "zip", Variants: []string{"LOCAD_PF_ZIP_CODE"}},
	{Name: "county", Variants: []string{"PF_COUNTY_NAME"}},
	{Name: "product_code", Variants: []string{"SUBSTANCE_CODE"}},
	{Name: "capacity", Variants: []string{"CAPACITY"}},
	{Name: "status_code", Variants: []string{"STATUS_CODE"}},
	{Name: "latitude", Variants: []string{"LATITUDE", "LAT"}},
	{Name: "longitude", Variants: []string{"LONGITUDE", "LON", "LONG"}},
}

// TankOptions filter tank rows.
type TankOptions struct {
	// Counties restricts rows to these county names (case-insensitive).
	// Rows without a county are kept. Empty means no filter.
	Counties []string
}

// ReadTanks reads a storage tank registry export. The facility name falls
// back to the mailing name when blank.
func ReadTanks(r io.Reader, opts TankOptions) ([]model.RawRecord, Stats, error) {
	allowed := make(map[string]bool, len(opts.Counties))
	for _, c := range opts.Counties {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	var out []model.RawRecord
	stats, err := readCSV(r, SourceTanks, tankColumns, DefaultHeaderThreshold, func(row *csvRow) bool {
		county := row.Get("county")
		if len(allowed) > 0 && county != "" && !allowed[strings.ToUpper(county)] {
			return false
		}

		name := row.Get("facility_name")
		if name == "" {
			name = row.Get("mailing_name")
		}
		lat, lon := row.Coords()

		out = append(out, model.RawRecord{
			Source:   SourceTanks,
			SourceID: row.Get("facility_id"),
			Name:     name,
			Address:  row.Get("address_1"),
			Address2: row.Get("address_2"),
			City:     row.Get("city"),
			State:    row.Get("state"),
			Zip:      row.Get("zip"),
			County:   county,
			Lat:      lat,
			Lon:      lon,
			Attrs: map[string]string{
				AttrProductCode: row.Get("product_code"),
				AttrStatusCode:  row.Get("status_code"),
				AttrCapacity:    row.Get("capacity"),
				AttrMailingName: row.Get("mailing_name"),
			},
		})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// ReadTanksFile is ReadTanks over a file path.
func ReadTanksFile(path string, opts TankOptions) ([]model.RawRecord, Stats, error) {
	var (
		out   []model.RawRecord
		stats Stats
	)
	err := openFile(path, func(r io.Reader) error {
		var err error
		out, stats, err = ReadTanks(r, opts)
		return err
	})
	return out, stats, err
}
