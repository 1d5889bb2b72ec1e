package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/store"
)

// CoverageHeader is the QA sheet column order. Every section is written in
// long form, one metric per row.
var CoverageHeader = []string{"section", "key", "metric", "value"}

// QA sheet sections.
const (
	SectionCounty  = "county_coverage"
	SectionProduct = "product_code_diesel_like"
	SectionStatus  = "status_code_active_like"
	SectionSector  = "sector_composition"
)

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func coverageRows(cov *store.Coverage) [][]string {
	var rows [][]string
	add := func(section, key, metric, value string) {
		rows = append(rows, []string{section, key, metric, value})
	}
	for _, c := range cov.Counties {
		add(SectionCounty, c.County, "total_sites", strconv.Itoa(c.TotalSites))
		add(SectionCounty, c.County, "diesel_like", strconv.Itoa(c.DieselLike))
		add(SectionCounty, c.County, "diesel_like_pct", pct(c.DieselLikePct))
		add(SectionCounty, c.County, "active_like", strconv.Itoa(c.ActiveLike))
		add(SectionCounty, c.County, "active_like_pct", pct(c.ActiveLikePct))
		add(SectionCounty, c.County, "geocoded", strconv.Itoa(c.Geocoded))
		add(SectionCounty, c.County, "geocode_pct", pct(c.GeocodedPct))
		add(SectionCounty, c.County, "with_sector", strconv.Itoa(c.WithSector))
		add(SectionCounty, c.County, "sector_pct", pct(c.WithSectorPct))
	}
	for _, tab := range []struct {
		section string
		rows    []store.CodeMapping
	}{{SectionProduct, cov.Products}, {SectionStatus, cov.Statuses}} {
		for _, m := range tab.rows {
			add(tab.section, m.Code, "true", strconv.Itoa(m.True))
			add(tab.section, m.Code, "false", strconv.Itoa(m.False))
			add(tab.section, m.Code, "total", strconv.Itoa(m.Total))
		}
	}
	for _, s := range cov.Sectors {
		key := string(s.Sector)
		add(SectionSector, key, "count", strconv.Itoa(s.Count))
		add(SectionSector, key, "pct_of_total", pct(s.PctOfTotal))
		add(SectionSector, key, "avg_score", formatFloat(s.AvgScore, 1))
	}
	return rows
}

// WriteCoverageCSV writes the QA sheet.
func WriteCoverageCSV(w io.Writer, cov *store.Coverage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CoverageHeader); err != nil {
		return eris.Wrap(err, "failed to write header")
	}
	if err := cw.WriteAll(coverageRows(cov)); err != nil {
		return eris.Wrap(err, "failed to write coverage rows")
	}
	return eris.Wrap(cw.Error(), "failed to flush coverage sheet")
}

// WriteCoverage writes qa_report_<stamp>.csv under dir and returns its path.
func WriteCoverage(dir string, at time.Time, cov *store.Coverage) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "failed to create output directory %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("qa_report_%s.csv", Stamp(at)))
	if err := writeFile(path, func(w io.Writer) error { return WriteCoverageCSV(w, cov) }); err != nil {
		return "", err
	}
	zap.L().Info("qa report written", zap.String("path", path), zap.Int("counties", len(cov.Counties)))
	return path, nil
}
