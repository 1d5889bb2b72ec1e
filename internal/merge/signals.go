package merge

import (
	"sort"

	"github.com/sepa-leadgen/internal/model"
)

// Signal types and sources written by the mergers.
const (
	SignalSector = "sector"
	SignalPlaces = "places"
	SourceNAICS  = "naics_local"
	SourcePlaces = "maps_extractor"
)

// SignalSet holds at most one signal per (entity, type). Upserting the same
// key replaces the previous value, so re-running a merge is idempotent.
type SignalSet struct {
	byID map[string]model.Signal
}

// NewSignalSet returns an empty set.
func NewSignalSet() *SignalSet {
	return &SignalSet{byID: make(map[string]model.Signal)}
}

// Upsert inserts or replaces s by its SignalID.
func (s *SignalSet) Upsert(sig model.Signal) {
	if sig.SignalID == "" {
		sig.SignalID = model.SignalID(sig.EntityID, sig.SignalType)
	}
	s.byID[sig.SignalID] = sig
}

// Get returns the signal for an entity/type pair.
func (s *SignalSet) Get(entityID, signalType string) (model.Signal, bool) {
	sig, ok := s.byID[model.SignalID(entityID, signalType)]
	return sig, ok
}

// Len is the number of distinct signals.
func (s *SignalSet) Len() int {
	return len(s.byID)
}

// Sorted returns the signals ordered by SignalID.
func (s *SignalSet) Sorted() []model.Signal {
	out := make([]model.Signal, 0, len(s.byID))
	for _, sig := range s.byID {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalID < out[j].SignalID })
	return out
}
