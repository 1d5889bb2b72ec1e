package ingest

import (
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/normalize"
)

// SourcePlaces labels listings exported by the maps extractor.
const SourcePlaces = "maps_extractor"

// exactOnly disables the fuzzy header pass; extractor exports use a small
// set of known column names.
const exactOnly = 101.0

var placeColumns = []Column{
	{Name: "name", Variants: []string{"organizationname", "name", "place", "business_name"}},
	{Name: "address", Variants: []string{"organizationaddress", "fulladdress", "address", "full_address"}},
	{Name: "city", Variants: []string{"city", "municipality", "locality"}},
	{Name: "state", Variants: []string{"state", "region", "province"}},
	{Name: "zip", Variants: []string{"zip", "postal_code", "postcode", "zipcode"}},
	{Name: "latitude", Variants: []string{"organizationlatitude", "latitude", "lat"}},
	{Name: "longitude", Variants: []string{"organizationlongitude", "longitude", "lon", "lng"}},
	{Name: "category", Variants: []string{"organizationcategory", "categories", "category"}},
}

var (
	reOrgAddress      = regexp.MustCompile(`^(.+?),\s*([^,]+?),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	reOrgAddressNoZip = regexp.MustCompile(`^(.+?),\s*([^,]+?),\s*([A-Z]{2})$`)
)

// OrgAddress is a one-line listing address split into parts.
type OrgAddress struct {
	Street, City, State, Zip string
}

// ParseOrgAddress splits "Address: 4921 Cottman Ave, Philadelphia, PA 19135"
// style strings. Other comma separated forms go through the address parser;
// anything else comes back whole as the street.
func ParseOrgAddress(s string) OrgAddress {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Address:"))
	if s == "" {
		return OrgAddress{}
	}
	if m := reOrgAddress.FindStringSubmatch(s); m != nil {
		return OrgAddress{Street: strings.TrimSpace(m[1]), City: strings.TrimSpace(m[2]), State: m[3], Zip: m[4]}
	}
	if m := reOrgAddressNoZip.FindStringSubmatch(s); m != nil {
		return OrgAddress{Street: strings.TrimSpace(m[1]), City: strings.TrimSpace(m[2]), State: m[3]}
	}
	if strings.Contains(s, ",") {
		if c := normalize.ParseAddress(s); c.State != "" || c.Postcode != "" {
			return OrgAddress{Street: c.StreetLine(), City: c.City, State: c.State, Zip: c.Postcode}
		}
	}
	return OrgAddress{Street: s}
}

// ReadPlaces reads one maps extractor export.
func ReadPlaces(r io.Reader, sourceFile string) ([]merge.PlaceCandidate, Stats, error) {
	var out []merge.PlaceCandidate
	stats, err := readCSV(r, SourcePlaces, placeColumns, exactOnly, func(row *csvRow) bool {
		name := row.Get("name")
		if name == "" {
			return false
		}
		addr := ParseOrgAddress(row.Get("address"))
		lat, lon := row.Coords()

		out = append(out, merge.PlaceCandidate{
			Name:       name,
			Address:    addr.Street,
			Lat:        lat,
			Lon:        lon,
			Category:   row.Get("category"),
			SourceFile: sourceFile,
		})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// ReadPlacesGlob reads every export matching pattern in sorted file order.
// Unreadable files are logged and skipped.
func ReadPlacesGlob(pattern string) ([]merge.PlaceCandidate, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "bad places pattern %s", pattern)
	}
	sort.Strings(files)

	var out []merge.PlaceCandidate
	for _, path := range files {
		err := openFile(path, func(r io.Reader) error {
			places, _, err := ReadPlaces(r, filepath.Base(path))
			if err != nil {
				return err
			}
			out = append(out, places...)
			return nil
		})
		if err != nil {
			zap.L().Error("failed to read places file", zap.String("file", path), zap.Error(err))
		}
	}
	return out, nil
}
