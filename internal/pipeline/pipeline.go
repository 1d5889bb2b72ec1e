// Package pipeline runs the lead universe build end to end: deduplicate the
// tank registry, build entities, merge secondary datasets, derive location
// and external flags, then score. Every stage is a pure transformation of
// the previous stage's output, so the same inputs always give the same
// entities, signals and scores.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/config"
	"github.com/sepa-leadgen/internal/dedupe"
	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/score"
)

// Options configure a Pipeline.
type Options struct {
	Dedupe         dedupe.Options
	Sector         merge.SectorOptions
	Places         merge.PlacesOptions
	BaseLat        float64
	BaseLon        float64
	MultiSiteMiles float64
	// Rules replaces the default scoring rule table when set.
	Rules *score.RuleTable
}

// DefaultOptions mirrors config.DefaultSettings.
func DefaultOptions() Options {
	return OptionsFromSettings(config.DefaultSettings(), nil)
}

// OptionsFromSettings maps validated settings onto pipeline options.
func OptionsFromSettings(s *config.Settings, rules *score.RuleTable) Options {
	return Options{
		Dedupe: dedupe.Options{
			Threshold: s.Match.DedupeThreshold,
			Precision: s.Match.BucketPrecision,
		},
		Sector: merge.SectorOptions{
			RadiusMeters:  s.Match.SectorRadiusMeters,
			MinSimilarity: s.Match.SectorMinSimilarity,
			Workers:       s.Match.Workers,
		},
		Places: merge.PlacesOptions{
			RadiusMeters: s.Match.PlacesRadiusMeters,
			Workers:      s.Match.Workers,
		},
		BaseLat:        s.Base.Lat,
		BaseLon:        s.Base.Lon,
		MultiSiteMiles: s.Match.MultiSiteMiles,
		Rules:          rules,
	}
}

// Inputs are the in-memory datasets for one run.
type Inputs struct {
	Tanks   []model.RawRecord
	Sectors []merge.SectorCandidate
	Places  []merge.PlaceCandidate
	Signals []model.Signal
	// AsOf stamps every signal written by the run. Zero means now.
	AsOf time.Time
	// RunID ties the result to an audit record. Empty gets a fresh uuid.
	RunID string
}

// Stats summarises a run.
type Stats struct {
	Dedupe       dedupe.Stats       `json:"dedupe"`
	Entities     int                `json:"entities"`
	DuplicateIDs int                `json:"duplicate_ids"`
	Sector       merge.Stats        `json:"sector"`
	Places       merge.Stats        `json:"places"`
	Located      int                `json:"located"`
	MultiSite    int                `json:"multi_site"`
	Signals      SignalStats        `json:"external_signals"`
	Tiers        map[model.Tier]int `json:"tiers"`
	Duration     time.Duration      `json:"duration"`
}

// Result is the output of a run. Signals are sorted by SignalID and Scores
// follow entity order.
type Result struct {
	RunID    string              `json:"run_id"`
	AsOf     time.Time           `json:"as_of"`
	Entities []model.Entity      `json:"entities"`
	Signals  []model.Signal      `json:"signals"`
	Scores   []model.ScoreRecord `json:"scores"`
	Stats    Stats               `json:"stats"`
}

// Pipeline holds validated options and the scoring engine. It is safe to
// call Run repeatedly; runs share no mutable state.
type Pipeline struct {
	opts    Options
	dedupe  *dedupe.Deduplicator
	engine  *score.Engine
	metrics *Metrics
}

// New validates opts. metrics may be nil.
func New(opts Options, metrics *Metrics) (*Pipeline, error) {
	d, err := dedupe.New(opts.Dedupe)
	if err != nil {
		return nil, err
	}
	if _, err := merge.NewSectorMerger(opts.Sector, nil); err != nil {
		return nil, err
	}
	if _, err := merge.NewPlacesMerger(opts.Places, nil); err != nil {
		return nil, err
	}
	if opts.MultiSiteMiles <= 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "multi-site radius %.1f must be positive", opts.MultiSiteMiles)
	}

	engine := score.NewEngine()
	if opts.Rules != nil {
		if engine, err = score.NewEngineWithRules(opts.Rules); err != nil {
			return nil, err
		}
	}
	return &Pipeline{opts: opts, dedupe: d, engine: engine, metrics: metrics}, nil
}

// Engine returns the scoring engine used by the pipeline.
func (p *Pipeline) Engine() *score.Engine {
	return p.engine
}

// stage times fn and records it under name.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "pipeline cancelled before %s", name)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordStageDuration(name, elapsed.Seconds())
	}
	zap.L().Debug("stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return err
}

// Run executes every stage over in. The context is checked between stages.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, in)
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordRun(status)
	}
	if err != nil {
		return nil, err
	}
	res.Stats.Duration = time.Since(start)
	zap.L().Info("pipeline run complete",
		zap.String("run_id", res.RunID),
		zap.Int("entities", res.Stats.Entities),
		zap.Int("signals", len(res.Signals)),
		zap.Int("tier_a", res.Stats.Tiers[model.TierA]),
		zap.Duration("duration", res.Stats.Duration))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Inputs) (*Result, error) {
	at := in.AsOf
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := &Result{RunID: in.RunID, AsOf: at}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	signals := merge.NewSignalSet()

	var deduped *dedupe.Result
	err := p.stage(ctx, "dedupe", func() error {
		var err error
		deduped, err = p.dedupe.Dedupe(in.Tanks)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "dedupe tank records")
	}
	res.Stats.Dedupe = deduped.Stats

	var entities []model.Entity
	err = p.stage(ctx, "build", func() error {
		entities, res.Stats.DuplicateIDs = buildEntities(deduped.Records, signals, at)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Entities = len(entities)

	err = p.stage(ctx, "sector_merge", func() error {
		m, err := merge.NewSectorMerger(p.opts.Sector, in.Sectors)
		if err != nil {
			return err
		}
		res.Stats.Sector = m.Merge(entities, signals, at)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "sector merge")
	}

	err = p.stage(ctx, "places_merge", func() error {
		m, err := merge.NewPlacesMerger(p.opts.Places, in.Places)
		if err != nil {
			return err
		}
		res.Stats.Places = m.Merge(entities, signals, at)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "places merge")
	}

	// Location-derived attributes run after the places merge because it
	// can fill in missing coordinates.
	err = p.stage(ctx, "derive", func() error {
		applySectorFlags(entities)
		applyDistance(entities, p.opts.BaseLat, p.opts.BaseLon)
		res.Stats.MultiSite = applyMultiSite(entities, p.opts.MultiSiteMiles, signals, at)
		res.Stats.Signals = applySignals(entities, in.Signals, signals, at)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range entities {
		if entities[i].Located() {
			res.Stats.Located++
		}
	}

	var scores []model.ScoreRecord
	err = p.stage(ctx, "score", func() error {
		var err error
		scores, err = p.engine.ScoreAll(entities)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "score entities")
	}

	res.Entities = entities
	res.Signals = signals.Sorted()
	res.Scores = scores
	res.Stats.Tiers = score.TierCounts(scores)

	if p.metrics != nil {
		p.metrics.RecordRecords("input", len(in.Tanks))
		p.metrics.RecordRecords("entities", len(entities))
		p.metrics.RecordRecords("signals", len(res.Signals))
		p.metrics.RecordRecords("scores", len(scores))
		p.metrics.RecordMerge(merge.SignalSector, res.Stats.Sector.Matched, res.Stats.Sector.Unmatched)
		p.metrics.RecordMerge(merge.SignalPlaces, res.Stats.Places.Matched, res.Stats.Places.Unmatched)
		p.metrics.UpdateTiers(res.Stats.Tiers)
	}
	return res, nil
}

// Rescore recomputes scores for already built entities, as loaded from the
// store. Entities are not modified.
func (p *Pipeline) Rescore(ctx context.Context, entities []model.Entity) ([]model.ScoreRecord, error) {
	var scores []model.ScoreRecord
	err := p.stage(ctx, "rescore", func() error {
		var err error
		scores, err = p.engine.ScoreAll(entities)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "rescore entities")
	}
	tiers := score.TierCounts(scores)
	if p.metrics != nil {
		p.metrics.RecordRecords("scores", len(scores))
		p.metrics.UpdateTiers(tiers)
	}
	zap.L().Info("rescore complete",
		zap.Int("entities", len(entities)),
		zap.Int("tier_a", tiers[model.TierA]),
		zap.Int("tier_b", tiers[model.TierB]))
	return scores, nil
}
