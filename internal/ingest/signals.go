package ingest

import (
	"io"

	"github.com/sepa-leadgen/internal/model"
)

var signalColumns = []Column{
	{Name: "entity_id", Variants: []string{"entity_id", "facility_id"}, Required: true},
	{Name: "signal_type", Variants: []string{"signal_type", "type"}, Required: true},
	{Name: "signal_value", Variants: []string{"signal_value", "value"}},
	{Name: "source", Variants: []string{"source"}},
}

// ReadSignals reads externally collected facts (fleet size, generator,
// permit and similar) keyed by entity id. CreatedAt is left zero for the
// caller to stamp.
func ReadSignals(r io.Reader) ([]model.Signal, Stats, error) {
	var out []model.Signal
	stats, err := readCSV(r, "signals", signalColumns, DefaultHeaderThreshold, func(row *csvRow) bool {
		id, typ := row.Get("entity_id"), row.Get("signal_type")
		if id == "" || typ == "" {
			return false
		}
		out = append(out, model.Signal{
			SignalID:    model.SignalID(id, typ),
			EntityID:    id,
			SignalType:  typ,
			SignalValue: row.Get("signal_value"),
			Source:      row.Get("source"),
		})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// ReadSignalsFile is ReadSignals over a file path.
func ReadSignalsFile(path string) ([]model.Signal, Stats, error) {
	var (
		out   []model.Signal
		stats Stats
	)
	err := openFile(path, func(r io.Reader) error {
		var err error
		out, stats, err = ReadSignals(r)
		return err
	})
	return out, stats, err
}
