package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
)

// Stats counts rows seen by a reader.
type Stats struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
	// BadCoords counts accepted rows whose coordinates were present but
	// unusable; those rows are kept without a location.
	BadCoords int `json:"bad_coords"`
}

// csvRow is one data row handed to a reader callback.
type csvRow struct {
	m      HeaderMap
	fields []string
	line   int
	source string
	stats  *Stats
}

// Get returns the trimmed value of a logical column.
func (r *csvRow) Get(name string) string {
	return r.m.Get(r.fields, name)
}

// Coords returns both coordinates or neither. A non-empty value that does
// not parse, or a pair with only one half, is logged and counted.
func (r *csvRow) Coords() (*float64, *float64) {
	rawLat, rawLon := r.Get("latitude"), r.Get("longitude")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}
	lat, lon, ok := coords(rawLat, rawLon)
	if !ok {
		r.stats.BadCoords++
		zap.L().Debug("unusable coordinates",
			zap.String("source", r.source),
			zap.Int("line", r.line),
			zap.String("latitude", rawLat),
			zap.String("longitude", rawLon))
	}
	return lat, lon
}

// readCSV maps the header row and calls fn for every data row. Malformed
// rows are counted and skipped; a missing required column fails the read.
func readCSV(r io.Reader, source string, columns []Column, threshold float64, fn func(row *csvRow) bool) (Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return stats, eris.Wrapf(model.ErrInputShape, "%s: file is empty", source)
	}
	if err != nil {
		return stats, eris.Wrapf(err, "%s: failed to read header", source)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	m := MapHeaders(columns, header, threshold)
	if missing := m.Missing(columns); len(missing) > 0 {
		return stats, eris.Wrapf(model.ErrInputShape, "%s: missing required headers %v", source, missing)
	}
	zap.L().Debug("header mapping", zap.String("source", source), zap.Any("columns", m))

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		stats.Rows++
		if err != nil {
			zap.L().Warn("skipping malformed row", zap.String("source", source), zap.Error(err))
			stats.Errors++
			continue
		}
		line, _ := reader.FieldPos(0)
		if fn(&csvRow{m: m, fields: row, line: line, source: source, stats: &stats}) {
			stats.Accepted++
		} else {
			stats.Skipped++
		}
	}

	if stats.BadCoords > 0 {
		zap.L().Warn("rows kept without a location",
			zap.String("source", source),
			zap.Int("bad_coords", stats.BadCoords))
	}
	zap.L().Info("ingest complete",
		zap.String("source", source),
		zap.Int("rows", stats.Rows),
		zap.Int("accepted", stats.Accepted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// openFile opens path and passes it to read.
func openFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return read(f)
}

// parseFloat safely converts string to float64 pointer
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// coords returns both coordinates or neither; ok is false when either
// value is missing or unparseable.
func coords(lat, lon string) (*float64, *float64, bool) {
	la, lo := parseFloat(lat), parseFloat(lon)
	if la == nil || lo == nil {
		return nil, nil, false
	}
	return la, lo, true
}
