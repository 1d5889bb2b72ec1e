// Package export writes the scored universe as flat files for BI tools: a CSV
// lead sheet, a CSV signal sheet and a GeoJSON layer of located leads.
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

	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/store"
)

// LeadHeader is the lead sheet column order.
var LeadHeader = []string{
	"entity_id", "facility_name", "address", "city", "state", "zip", "county",
	"latitude", "longitude", "sector_primary", "sector_confidence", "naics_code", "maps_category",
	"capacity_gal", "capacity_bucket", "distance_mi", "fleet_size",
	"score", "band", "reasons_codes", "reasons_str",
}

// SignalHeader is the signal sheet column order.
var SignalHeader = []string{"entity_id", "signal_type", "value", "source", "as_of"}

// Leads pairs entities with their scores by entity id, keeping entity order.
// Entities without a score are left out.
func Leads(entities []model.Entity, scores []model.ScoreRecord) []store.Lead {
	byID := make(map[string]model.ScoreRecord, len(scores))
	for _, s := range scores {
		byID[s.EntityID] = s
	}
	out := make([]store.Lead, 0, len(entities))
	for _, e := range entities {
		s, ok := byID[e.ID]
		if !ok {
			continue
		}
		out = append(out, store.Lead{
			Entity:      e,
			Score:       s.Score,
			Tier:        s.Tier,
			ReasonCodes: s.ReasonCodes,
			ReasonText:  s.ReasonText,
		})
	}
	return out
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func leadRow(l store.Lead) []string {
	return []string{
		l.ID, l.Name, l.Address, l.City, l.State, l.Zip, l.County,
		formatFloat(l.Lat, 6), formatFloat(l.Lon, 6),
		string(l.SectorPrimary), strconv.Itoa(l.SectorConfidence), l.NAICSCode, l.MapsCategory,
		formatFloat(l.CapacityGal, 0), l.CapacityBucket, formatFloat(l.DistanceMiles, 1), formatInt(l.FleetSize),
		strconv.Itoa(l.Score), string(l.Tier), l.ScoreRecord().JoinedCodes(), l.ReasonText,
	}
}

// WriteLeadsCSV writes the lead sheet.
func WriteLeadsCSV(w io.Writer, leads []store.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LeadHeader); err != nil {
		return eris.Wrap(err, "failed to write header")
	}
	for _, l := range leads {
		if err := cw.Write(leadRow(l)); err != nil {
			return eris.Wrapf(err, "failed to write lead %s", l.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "failed to flush lead sheet")
}

// WriteSignalsCSV writes the signal sheet.
func WriteSignalsCSV(w io.Writer, signals []model.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SignalHeader); err != nil {
		return eris.Wrap(err, "failed to write header")
	}
	for _, s := range signals {
		row := []string{s.EntityID, s.SignalType, s.SignalValue, s.Source, s.CreatedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "failed to write signal %s", s.SignalID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "failed to flush signal sheet")
}

// Stamp is the file name timestamp for asOf.
func Stamp(asOf time.Time) string {
	return asOf.UTC().Format("20060102_1504")
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "failed to close %s", path)
}

// WriteAll writes leads_<stamp>.csv, signals_<stamp>.csv and
// tier_a_<stamp>.geojson under dir and returns the paths written.
func WriteAll(dir string, asOf time.Time, leads []store.Lead, signals []model.Signal) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "failed to create output directory %s", dir)
	}
	stamp := Stamp(asOf)

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{fmt.Sprintf("leads_%s.csv", stamp), func(w io.Writer) error { return WriteLeadsCSV(w, leads) }},
		{fmt.Sprintf("signals_%s.csv", stamp), func(w io.Writer) error { return WriteSignalsCSV(w, signals) }},
		{fmt.Sprintf("tier_a_%s.geojson", stamp), func(w io.Writer) error {
			return WriteGeoJSON(w, FilterTier(leads, model.TierA))
		}},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	zap.L().Info("export written",
		zap.String("dir", dir),
		zap.Int("leads", len(leads)),
		zap.Int("signals", len(signals)))
	return paths, nil
}

// FilterTier keeps the leads in tier.
func FilterTier(leads []store.Lead, tier model.Tier) []store.Lead {
	out := make([]store.Lead, 0, len(leads))
	for _, l := range leads {
		if l.Tier == tier {
			out = append(out, l)
		}
	}
	return out
}
