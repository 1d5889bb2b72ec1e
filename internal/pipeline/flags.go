package pipeline

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/model"
)

// External signal types understood by applySignals. Aliases map the names
// used by the different upstream collectors onto one entity field.
const (
	SignalFleetSize    = "fleet_size"
	SignalEcho         = "echo"
	SignalEchoFacility = "echo_facility"
	SignalGenerator    = "eia_gen"
	SignalDepot        = "osm_depot"
	SignalBidOpen      = "bid_open"
	SignalPermitRecent = "permit_recent"
	SignalWebIntent    = "web_intent"
	SignalIncumbent    = "incumbent"
	SignalDoNotContact = "dnc"
	SignalHospital     = "hospital"
	SignalSchool       = "school"
	SignalDataCenter   = "data_center"
	SignalMultiSite    = "multi_site"

	SourceExternal = "external"
	SourceResolver = "entity_resolution"

	// reservedPrefix namespaces external rows whose type the pipeline writes
	// itself, so they cannot replace resolver or merge evidence.
	reservedPrefix = "ext_"
)

// reservedTypes are the signal types produced inside the pipeline.
var reservedTypes = map[string]bool{
	SignalDieselLike:     true,
	SignalActiveLike:     true,
	SignalCapacityBucket: true,
	SignalMultiSite:      true,
	merge.SignalSector:   true,
	merge.SignalPlaces:   true,
}

type flagSetter func(e *model.Entity)

var signalAliases = map[string]string{
	"power_units": SignalFleetSize,
	"fmcsa":       SignalFleetSize,
	"generator":   SignalGenerator,
	"depot":       SignalDepot,
	"do_not_call": SignalDoNotContact,
	"is_dnc":      SignalDoNotContact,
}

var boolSignals = map[string]flagSetter{
	SignalEcho:         func(e *model.Entity) { e.Echo = true },
	SignalEchoFacility: func(e *model.Entity) { e.EchoFacility = true },
	SignalGenerator:    func(e *model.Entity) { e.Generator = true },
	SignalDepot:        func(e *model.Entity) { e.Depot = true },
	SignalBidOpen:      func(e *model.Entity) { e.BidOpen = true },
	SignalPermitRecent: func(e *model.Entity) { e.PermitRecent = true },
	SignalWebIntent:    func(e *model.Entity) { e.WebIntent = true },
	SignalIncumbent:    func(e *model.Entity) { e.Incumbent = true },
	SignalDoNotContact: func(e *model.Entity) { e.DoNotContact = true },
	SignalHospital:     func(e *model.Entity) { e.Hospital = true },
	SignalSchool:       func(e *model.Entity) { e.School = true },
	SignalDataCenter:   func(e *model.Entity) { e.DataCenter = true },
}

// canonicalType lowercases a signal type and resolves aliases.
func canonicalType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if c, ok := signalAliases[t]; ok {
		return c
	}
	return t
}

// truthy accepts the usual spreadsheet spellings of yes. An empty value
// counts as true: the presence of the signal row is the fact.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "t", "true", "y", "yes", "x":
		return true
	}
	return false
}

// parseFleetSize reads a power-unit count such as "57" or "1,200".
func parseFleetSize(v string) (int, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f), true
}

// SignalStats counts external signal outcomes.
type SignalStats struct {
	Recorded      int `json:"recorded"`
	UnknownEntity int `json:"unknown_entity"`
	UnknownType   int `json:"unknown_type"`
	BadValue      int `json:"bad_value"`
	Reserved      int `json:"reserved"`
}

// applySignals sets entity fields from externally collected signals and
// records each one in the signal set. Signals for entities outside the
// universe are skipped; unknown types are recorded without touching any
// field. Types the pipeline writes itself are recorded under an ext_ prefix.
func applySignals(entities []model.Entity, external []model.Signal, signals *merge.SignalSet, at time.Time) SignalStats {
	byID := make(map[string]int, len(entities))
	for i := range entities {
		byID[entities[i].ID] = i
	}

	var stats SignalStats
	for _, s := range external {
		idx, ok := byID[strings.TrimSpace(s.EntityID)]
		if !ok {
			stats.UnknownEntity++
			zap.L().Warn("signal for unknown entity skipped",
				zap.String("entity_id", s.EntityID),
				zap.String("signal_type", s.SignalType))
			continue
		}
		e := &entities[idx]
		typ := canonicalType(s.SignalType)

		switch setter, isBool := boolSignals[typ]; {
		case reservedTypes[typ]:
			stats.Reserved++
			zap.L().Warn("external signal uses a reserved type",
				zap.String("entity_id", e.ID),
				zap.String("signal_type", typ))
			typ = reservedPrefix + typ
		case typ == SignalFleetSize:
			n, ok := parseFleetSize(s.SignalValue)
			if !ok {
				stats.BadValue++
				zap.L().Warn("unparseable fleet size",
					zap.String("entity_id", e.ID),
					zap.String("value", s.SignalValue))
				continue
			}
			e.FleetSize = &n
		case isBool:
			if truthy(s.SignalValue) {
				setter(e)
			}
		default:
			stats.UnknownType++
			zap.L().Debug("signal type has no entity field",
				zap.String("entity_id", e.ID),
				zap.String("signal_type", typ))
		}

		created := s.CreatedAt
		if created.IsZero() {
			created = at
		}
		source := strings.TrimSpace(s.Source)
		if source == "" {
			source = SourceExternal
		}
		signals.Upsert(model.NewSignal(e.ID, typ, strings.TrimSpace(s.SignalValue), source, created))
		stats.Recorded++
	}
	return stats
}
