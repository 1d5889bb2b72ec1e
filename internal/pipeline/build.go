package pipeline

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/classify"
	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/ingest"
	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/model"
)

// Tank evidence signal types, written once per built entity.
const (
	SignalDieselLike     = "diesel_like"
	SignalActiveLike     = "active_like"
	SignalCapacityBucket = "capacity_bucket"
)

// buildEntity turns a deduplicated tank record into an entity with its tank
// attributes derived. Sector starts Unknown until the sector merge runs.
func buildEntity(r model.RawRecord) model.Entity {
	product := strings.ToUpper(strings.TrimSpace(r.Attr(ingest.AttrProductCode)))
	status := strings.ToUpper(strings.TrimSpace(r.Attr(ingest.AttrStatusCode)))
	capacity := classify.CleanCapacity(r.Attr(ingest.AttrCapacity))

	return model.Entity{
		ID:             model.EntityID(r),
		Name:           strings.TrimSpace(r.Name),
		Address:        strings.TrimSpace(r.Address),
		Address2:       strings.TrimSpace(r.Address2),
		City:           strings.TrimSpace(r.City),
		State:          strings.TrimSpace(r.State),
		Zip:            strings.TrimSpace(r.Zip),
		County:         strings.TrimSpace(r.County),
		Lat:            r.Lat,
		Lon:            r.Lon,
		Source:         r.Source,
		ProductCode:    product,
		StatusCode:     status,
		CapacityGal:    capacity,
		CapacityBucket: classify.CapacityBucket(capacity),
		DieselLike:     classify.DieselLike(product),
		ActiveLike:     classify.ActiveLike(status),
		SectorPrimary:  model.SectorUnknown,
	}
}

// recordTankSignals upserts the tank registry evidence behind an entity's
// diesel, active and capacity attributes.
func recordTankSignals(e *model.Entity, signals *merge.SignalSet, at time.Time) {
	signals.Upsert(model.NewSignal(e.ID, SignalDieselLike, strconv.FormatBool(e.DieselLike), ingest.SourceTanks, at))
	signals.Upsert(model.NewSignal(e.ID, SignalActiveLike, strconv.FormatBool(e.ActiveLike), ingest.SourceTanks, at))
	if e.CapacityBucket != "" {
		signals.Upsert(model.NewSignal(e.ID, SignalCapacityBucket, e.CapacityBucket, ingest.SourceTanks, at))
	}
}

// buildEntities builds one entity per record and records its tank signals.
// When two records resolve to the same entity ID the first one wins and the
// rest are counted.
func buildEntities(records []model.RawRecord, signals *merge.SignalSet, at time.Time) ([]model.Entity, int) {
	seen := make(map[string]bool, len(records))
	out := make([]model.Entity, 0, len(records))
	dupes := 0
	for _, r := range records {
		e := buildEntity(r)
		if seen[e.ID] {
			dupes++
			zap.L().Debug("duplicate entity id dropped", zap.String("entity_id", e.ID))
			continue
		}
		seen[e.ID] = true
		recordTankSignals(&e, signals, at)
		out = append(out, e)
	}
	if dupes > 0 {
		zap.L().Warn("entity ids collided after dedupe", zap.Int("dropped", dupes))
	}
	return out, dupes
}

// applyDistance sets the distance from the base point in miles for every
// located entity and clears it for the rest.
func applyDistance(entities []model.Entity, baseLat, baseLon float64) {
	for i := range entities {
		e := &entities[i]
		if !e.Located() || !geo.Valid(*e.Lat, *e.Lon) {
			e.DistanceMiles = nil
			continue
		}
		d := geo.DistanceMiles(baseLat, baseLon, *e.Lat, *e.Lon)
		e.DistanceMiles = &d
	}
}

// applySectorFlags ORs the NAICS-derived facility flags into each entity.
func applySectorFlags(entities []model.Entity) {
	for i := range entities {
		classify.EntityFlags(entities[i].NAICSCode).Apply(&entities[i])
	}
}
