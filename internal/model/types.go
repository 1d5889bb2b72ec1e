package model

import (
	"strings"
	"time"
)

// RawRecord is one ingested row from a single source. It only lives for the
// duration of an ingestion/merge pass.
type RawRecord struct {
	Source   string            `json:"source"`
	SourceID string            `json:"source_id,omitempty"`
	Name     string            `json:"name"`
	Address  string            `json:"address"`
	Address2 string            `json:"address_2,omitempty"`
	City     string            `json:"city"`
	State    string            `json:"state"`
	Zip      string            `json:"zip"`
	County   string            `json:"county"`
	Lat      *float64          `json:"latitude,omitempty"`
	Lon      *float64          `json:"longitude,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Located reports whether both coordinates are present.
func (r RawRecord) Located() bool {
	return r.Lat != nil && r.Lon != nil
}

// PopulatedCount counts non-empty fields, used to pick a cluster representative.
func (r RawRecord) PopulatedCount() int {
	n := 0
	for _, s := range []string{r.Source, r.SourceID, r.Name, r.Address, r.Address2, r.City, r.State, r.Zip, r.County} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if r.Lat != nil {
		n++
	}
	if r.Lon != nil {
		n++
	}
	for _, v := range r.Attrs {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// Attr returns a source attribute or "".
func (r RawRecord) Attr(key string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[key]
}

// Entity is the canonical, deduplicated facility. The merger mutates it in
// place; its ID never changes within a run.
type Entity struct {
	ID       string   `json:"entity_id" db:"entity_id"`
	Name     string   `json:"facility_name" db:"facility_name"`
	Address  string   `json:"address" db:"address"`
	Address2 string   `json:"address_2,omitempty" db:"address_2"`
	City     string   `json:"city" db:"city"`
	State    string   `json:"state" db:"state"`
	Zip      string   `json:"zip" db:"zip"`
	County   string   `json:"county" db:"county"`
	Lat      *float64 `json:"latitude,omitempty" db:"latitude"`
	Lon      *float64 `json:"longitude,omitempty" db:"longitude"`
	Source   string   `json:"source" db:"source"`

	ProductCode    string   `json:"product_code,omitempty" db:"product_code"`
	StatusCode     string   `json:"status_code,omitempty" db:"status_code"`
	CapacityGal    *float64 `json:"capacity_gal,omitempty" db:"capacity_gal"`
	CapacityBucket string   `json:"capacity_bucket" db:"capacity_bucket"`
	DieselLike     bool     `json:"is_diesel_like" db:"is_diesel_like"`
	ActiveLike     bool     `json:"is_active_like" db:"is_active_like"`

	SectorPrimary    Sector `json:"sector_primary" db:"sector_primary"`
	SectorConfidence int    `json:"sector_confidence" db:"sector_confidence"`
	NAICSCode        string `json:"naics_code,omitempty" db:"naics_code"`
	MapsCategory     string `json:"maps_category,omitempty" db:"maps_category"`

	DistanceMiles *float64 `json:"distance_miles,omitempty" db:"distance_miles"`
	FleetSize     *int     `json:"fleet_size,omitempty" db:"fleet_size"`

	Hospital     bool `json:"is_hospital" db:"is_hospital"`
	School       bool `json:"is_school" db:"is_school"`
	DataCenter   bool `json:"is_data_center" db:"is_data_center"`
	Echo         bool `json:"is_echo" db:"is_echo"`
	WebIntent    bool `json:"web_intent" db:"web_intent"`
	Generator    bool `json:"generator_flag" db:"generator_flag"`
	EchoFacility bool `json:"echo_flag" db:"echo_flag"`
	Depot        bool `json:"depot_flag" db:"depot_flag"`
	BidOpen      bool `json:"bid_open" db:"bid_open"`
	PermitRecent bool `json:"permit_recent" db:"permit_recent"`
	MultiSite    bool `json:"multi_site" db:"multi_site"`
	Incumbent    bool `json:"has_incumbent" db:"has_incumbent"`
	DoNotContact bool `json:"is_dnc" db:"is_dnc"`
}

// Located reports whether both coordinates are present.
func (e *Entity) Located() bool {
	return e.Lat != nil && e.Lon != nil
}

// Signal is a typed fact attached to an entity.
type Signal struct {
	SignalID    string    `json:"signal_id" db:"signal_id"`
	EntityID    string    `json:"entity_id" db:"entity_id"`
	SignalType  string    `json:"signal_type" db:"signal_type"`
	SignalValue string    `json:"signal_value" db:"signal_value"`
	Source      string    `json:"source" db:"source"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SignalID derives the upsert key for an entity/type pair.
func SignalID(entityID, signalType string) string {
	return entityID + "_" + signalType
}

// NewSignal builds a signal with its deterministic id.
func NewSignal(entityID, signalType, value, source string, at time.Time) Signal {
	return Signal{
		SignalID:    SignalID(entityID, signalType),
		EntityID:    entityID,
		SignalType:  signalType,
		SignalValue: value,
		Source:      source,
		CreatedAt:   at,
	}
}

// ScoreRecord is the latest score for an entity. It is always recomputed
// wholesale.
type ScoreRecord struct {
	EntityID    string   `json:"entity_id" db:"entity_id"`
	Score       int      `json:"score" db:"score"`
	Tier        Tier     `json:"tier" db:"tier"`
	ReasonCodes []string `json:"reason_codes" db:"-"`
	ReasonText  string   `json:"reason_text" db:"reason_text"`
}

// JoinedCodes renders reason codes the way they are persisted.
func (s ScoreRecord) JoinedCodes() string {
	return strings.Join(s.ReasonCodes, ",")
}

// SplitCodes parses a persisted reason code column.
func SplitCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EntityID returns the source ID when present, else the composite
// "<name>_<address>" with UNKNOWN standing in for blanks.
func EntityID(r RawRecord) string {
	if id := strings.TrimSpace(r.SourceID); id != "" {
		return id
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = "UNKNOWN"
	}
	addr := strings.TrimSpace(r.Address)
	if addr == "" {
		addr = "UNKNOWN"
	}
	return name + "_" + addr
}
