package merge

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/normalize"
)

// PlaceCandidate is one place listing exported from a maps extractor.
type PlaceCandidate struct {
	Name       string
	Address    string
	Lat        *float64
	Lon        *float64
	Category   string
	SourceFile string
}

// PlacesOptions configure the places merge gate.
type PlacesOptions struct {
	RadiusMeters float64
	Workers      int
}

// DefaultPlacesOptions returns the 200m radius.
func DefaultPlacesOptions() PlacesOptions {
	return PlacesOptions{RadiusMeters: 200}
}

// PlacesMerger attaches a place category to entities whose match key equals
// a listing's key exactly. Among same-key listings the nearest one wins.
type PlacesMerger struct {
	opts       PlacesOptions
	candidates []PlaceCandidate
	byKey      map[string][]int
}

// NewPlacesMerger validates opts and indexes candidates by match key.
// Listings with an empty key can never match and are not indexed.
func NewPlacesMerger(opts PlacesOptions, candidates []PlaceCandidate) (*PlacesMerger, error) {
	if opts.RadiusMeters <= 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "places radius %.1f must be positive", opts.RadiusMeters)
	}
	m := &PlacesMerger{
		opts:       opts,
		candidates: candidates,
		byKey:      make(map[string][]int),
	}
	for i, c := range candidates {
		if k := normalize.MatchKey(c.Name); k != "" {
			m.byKey[k] = append(m.byKey[k], i)
		}
	}
	return m, nil
}

// best returns the winning listing for e, or -1. A listing with an unknown
// distance (either side unlocated) is held only until a located listing
// within the radius is accepted; after that only a strictly nearer located
// listing replaces the winner.
func (m *PlacesMerger) best(e *model.Entity) int {
	key := normalize.MatchKey(e.Name)
	if key == "" {
		return -1
	}

	winner := -1
	var bestDist float64
	haveDist := false
	for _, ci := range m.byKey[key] {
		c := m.candidates[ci]
		d, located := geo.PointDistance(e.Lat, e.Lon, c.Lat, c.Lon)
		if located && d > m.opts.RadiusMeters {
			continue
		}
		switch {
		case !haveDist && located:
			winner, bestDist, haveDist = ci, d, true
		case !haveDist:
			winner = ci
		case located && d < bestDist:
			winner, bestDist = ci, d
		}
	}
	return winner
}

// Merge overwrites the maps category of every matched entity, backfills
// missing coordinates from the listing, and upserts a places signal.
func (m *PlacesMerger) Merge(entities []model.Entity, signals *SignalSet, at time.Time) Stats {
	winners := parallelMap(len(entities), m.opts.Workers, func(i int) int {
		return m.best(&entities[i])
	})

	stats := Stats{Entities: len(entities)}
	for i, w := range winners {
		if w < 0 {
			stats.Unmatched++
			continue
		}
		e := &entities[i]
		c := m.candidates[w]
		e.MapsCategory = c.Category
		if e.Lat == nil && c.Lat != nil {
			lat := *c.Lat
			e.Lat = &lat
		}
		if e.Lon == nil && c.Lon != nil {
			lon := *c.Lon
			e.Lon = &lon
		}
		signals.Upsert(model.NewSignal(e.ID, SignalPlaces, c.Category, SourcePlaces, at))
		stats.Matched++
	}

	zap.L().Info("places merge complete",
		zap.Int("entities", stats.Entities),
		zap.Int("candidates", len(m.candidates)),
		zap.Int("matched", stats.Matched))
	return stats
}
