// Package merge attaches attributes from secondary datasets onto the
// deduplicated entity universe. Each merger gates candidates by distance and
// name, resolves competing candidates deterministically, and upserts one
// signal per matched entity.
package merge

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/normalize"
)

// SectorCandidate is one classified business record from the NAICS dataset.
type SectorCandidate struct {
	Name       string
	Address    string
	Lat        *float64
	Lon        *float64
	Sector     model.Sector
	Confidence int
	NAICSCode  string
	Notes      string
}

// SectorOptions configure the sector merge gates.
type SectorOptions struct {
	RadiusMeters  float64
	MinSimilarity float64
	Workers       int
}

// DefaultSectorOptions returns the 150m / 88 similarity gates.
func DefaultSectorOptions() SectorOptions {
	return SectorOptions{RadiusMeters: 150, MinSimilarity: 88}
}

// Stats counts merge outcomes.
type Stats struct {
	Entities  int `json:"entities"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// SectorMerger assigns each entity the best sector classification found
// nearby under a similar name. Candidates are read-only after construction.
type SectorMerger struct {
	opts       SectorOptions
	candidates []SectorCandidate
	keys       []string
	index      *spatialIndex
}

// NewSectorMerger validates opts and indexes the candidates.
func NewSectorMerger(opts SectorOptions, candidates []SectorCandidate) (*SectorMerger, error) {
	if opts.RadiusMeters <= 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "sector radius %.1f must be positive", opts.RadiusMeters)
	}
	if opts.MinSimilarity < 0 || opts.MinSimilarity > 100 {
		return nil, eris.Wrapf(model.ErrConfiguration, "sector similarity %.1f outside 0-100", opts.MinSimilarity)
	}

	m := &SectorMerger{
		opts:       opts,
		candidates: candidates,
		keys:       make([]string, len(candidates)),
	}
	lats := make([]*float64, len(candidates))
	lons := make([]*float64, len(candidates))
	for i, c := range candidates {
		m.keys[i] = normalize.MatchKey(c.Name)
		lats[i], lons[i] = c.Lat, c.Lon
	}
	m.index = newSpatialIndex(lats, lons, opts.RadiusMeters)
	return m, nil
}

// eligible applies the distance and name gates.
func (m *SectorMerger) eligible(e *model.Entity, entityKey string, ci int) bool {
	c := m.candidates[ci]
	d, ok := geo.PointDistance(e.Lat, e.Lon, c.Lat, c.Lon)
	if !ok || d > m.opts.RadiusMeters {
		return false
	}
	if entityKey == "" || m.keys[ci] == "" {
		return false
	}
	return normalize.Similarity(entityKey, m.keys[ci]) >= m.opts.MinSimilarity
}

// better reports whether candidate a beats the current best b: strictly
// higher confidence first, then the preferred sector.
func better(a, b SectorCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Sector.Rank() < b.Sector.Rank()
}

// best returns the winning candidate position for entity e, or -1.
func (m *SectorMerger) best(e *model.Entity) int {
	if !e.Located() || !geo.Valid(*e.Lat, *e.Lon) {
		return -1
	}
	key := normalize.MatchKey(e.Name)
	if key == "" {
		return -1
	}

	winner := -1
	for _, ci := range m.index.near(*e.Lat, *e.Lon) {
		c := m.candidates[ci]
		if c.Confidence <= 0 || !m.eligible(e, key, ci) {
			continue
		}
		if winner < 0 || better(c, m.candidates[winner]) {
			winner = ci
		}
	}
	return winner
}

// Merge overwrites the sector fields of every matched entity and upserts a
// sector signal for it. Unmatched entities keep their current values; an
// empty sector becomes Unknown.
func (m *SectorMerger) Merge(entities []model.Entity, signals *SignalSet, at time.Time) Stats {
	winners := parallelMap(len(entities), m.opts.Workers, func(i int) int {
		return m.best(&entities[i])
	})

	stats := Stats{Entities: len(entities)}
	for i, w := range winners {
		e := &entities[i]
		if w < 0 {
			if e.SectorPrimary == "" {
				e.SectorPrimary = model.SectorUnknown
			}
			stats.Unmatched++
			continue
		}
		c := m.candidates[w]
		e.SectorPrimary = c.Sector
		e.SectorConfidence = c.Confidence
		e.NAICSCode = c.NAICSCode
		signals.Upsert(model.NewSignal(e.ID, SignalSector, string(c.Sector), SourceNAICS, at))
		stats.Matched++
	}

	zap.L().Info("sector merge complete",
		zap.Int("entities", stats.Entities),
		zap.Int("candidates", len(m.candidates)),
		zap.Int("matched", stats.Matched))
	return stats
}
