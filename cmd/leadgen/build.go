package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/classify"
	"github.com/sepa-leadgen/internal/export"
	"github.com/sepa-leadgen/internal/ingest"
	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/pipeline"
	"github.com/sepa-leadgen/internal/store"
)

type buildFlags struct {
	tanks   string
	naics   string
	places  string
	signals string
	out     string
	persist bool
	asOf    string
}

// asOfLayouts are the accepted --as-of formats.
var asOfLayouts = []string{time.RFC3339, "2006-01-02"}

// resolveAsOf returns the run timestamp: the --as-of value when given,
// otherwise the newest modification time among the input files. Glob
// patterns are expanded. Rebuilding unchanged inputs therefore stamps the
// same as_of on every signal.
func resolveAsOf(flag string, inputs ...string) (time.Time, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		for _, layout := range asOfLayouts {
			if t, err := time.Parse(layout, flag); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, eris.Wrapf(model.ErrConfiguration, "--as-of %q is not RFC3339 or YYYY-MM-DD", flag)
	}

	var newest time.Time
	for _, in := range inputs {
		if in == "" {
			continue
		}
		paths, err := filepath.Glob(in)
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "bad input pattern %s", in)
		}
		for _, p := range paths {
			fi, err := os.Stat(p)
			if err != nil {
				return time.Time{}, eris.Wrapf(err, "failed to stat %s", p)
			}
			if mt := fi.ModTime(); mt.After(newest) {
				newest = mt
			}
		}
	}
	if newest.IsZero() {
		return time.Time{}, eris.Wrap(model.ErrConfiguration, "no input files to take as_of from")
	}
	return newest.UTC().Truncate(time.Second), nil
}

func createBuildCmd() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build, score and export the lead universe",
		Long: `Reads the tank registry and optional NAICS, places and signal files, resolves
them into entities, scores every entity and writes the lead, signal and Tier A
files. With --persist the results are also upserted into Postgres.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.tanks, "tanks", "", "Storage tank registry CSV")
	cmd.Flags().StringVar(&f.naics, "naics", "", "NAICS business listing CSV")
	cmd.Flags().StringVar(&f.places, "places", "", "Places extract CSV or glob, e.g. 'data/places/*.csv'")
	cmd.Flags().StringVar(&f.signals, "signals", "", "External signals CSV (entity_id, signal_type, signal_value, source)")
	cmd.Flags().StringVar(&f.out, "out", "out", "Output directory for exports")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "Upsert entities, signals and scores into Postgres")
	cmd.Flags().StringVar(&f.asOf, "as-of", "", "Run timestamp (RFC3339 or YYYY-MM-DD); defaults to the newest input file's modification time")
	_ = cmd.MarkFlagRequired("tanks")
	return cmd
}

func loadInputs(f buildFlags) (pipeline.Inputs, error) {
	var in pipeline.Inputs
	var err error

	var stats ingest.Stats
	in.Tanks, stats, err = ingest.ReadTanksFile(f.tanks, ingest.TankOptions{Counties: settings.Counties})
	if err != nil {
		return in, err
	}
	zap.L().Info("tanks loaded", zap.String("file", f.tanks), zap.Int("rows", stats.Rows), zap.Int("accepted", stats.Accepted), zap.Int("skipped", stats.Skipped))

	if f.naics != "" {
		var sectors []merge.SectorCandidate
		sectors, stats, err = ingest.ReadNAICSFile(f.naics, classify.NewClassifier())
		if err != nil {
			return in, err
		}
		in.Sectors = sectors
		zap.L().Info("naics loaded", zap.String("file", f.naics), zap.Int("candidates", len(sectors)))
	}

	if f.places != "" {
		if in.Places, err = ingest.ReadPlacesGlob(f.places); err != nil {
			return in, err
		}
		zap.L().Info("places loaded", zap.String("pattern", f.places), zap.Int("candidates", len(in.Places)))
	}

	if f.signals != "" {
		if in.Signals, stats, err = ingest.ReadSignalsFile(f.signals); err != nil {
			return in, err
		}
		zap.L().Info("signals loaded", zap.String("file", f.signals), zap.Int("signals", len(in.Signals)))
	}
	return in, nil
}

func runBuild(ctx context.Context, f buildFlags) error {
	in, err := loadInputs(f)
	if err != nil {
		return err
	}
	if in.AsOf, err = resolveAsOf(f.asOf, f.tanks, f.naics, f.places, f.signals); err != nil {
		return err
	}
	zap.L().Info("as_of resolved", zap.Time("as_of", in.AsOf), zap.Bool("from_flag", f.asOf != ""))

	metrics, err := pipeline.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	p, err := newPipeline(metrics)
	if err != nil {
		return err
	}

	var s *store.Store
	if f.persist {
		if s, err = openStore(ctx); err != nil {
			return err
		}
		defer s.Close()
		if in.RunID, err = s.StartRun(ctx, "", store.RunBuild, in.AsOf); err != nil {
			return err
		}
	}

	res, err := p.Run(ctx, in)
	if err == nil && s != nil {
		err = persist(ctx, s, res)
	}
	if s != nil {
		var stats interface{}
		if res != nil {
			stats = res.Stats
		}
		// The audit row is closed even when the run was cancelled.
		if ferr := s.FinishRun(context.WithoutCancel(ctx), in.RunID, stats, err); ferr != nil {
			zap.L().Warn("failed to close run record", zap.Error(ferr))
		}
	}
	if err != nil {
		return err
	}

	leads := export.Leads(res.Entities, res.Scores)
	paths, err := export.WriteAll(f.out, res.AsOf, leads, res.Signals)
	if err != nil {
		return err
	}

	printSummary(res, paths)
	return nil
}

func persist(ctx context.Context, s *store.Store, res *pipeline.Result) error {
	if err := s.UpsertEntities(ctx, res.Entities); err != nil {
		return err
	}
	if err := s.UpsertSignals(ctx, res.Signals); err != nil {
		return err
	}
	return s.ReplaceScores(ctx, res.Scores)
}

func printSummary(res *pipeline.Result, paths []string) {
	st := res.Stats
	fmt.Printf("Run %s\n", res.RunID)
	fmt.Printf("  Tank records:  %d in, %d entities (%d duplicates merged)\n",
		st.Dedupe.Input, st.Entities, st.Dedupe.Input-st.Dedupe.Output)
	fmt.Printf("  Sector merge:  %d matched, %d unmatched\n", st.Sector.Matched, st.Sector.Unmatched)
	fmt.Printf("  Places merge:  %d matched, %d unmatched\n", st.Places.Matched, st.Places.Unmatched)
	fmt.Printf("  Located:       %d\n", st.Located)
	fmt.Printf("  Multi-site:    %d\n", st.MultiSite)
	fmt.Printf("  Signals:       %d\n", len(res.Signals))
	for _, t := range []model.Tier{model.TierA, model.TierB, model.TierC, model.TierPark} {
		fmt.Printf("  %-14s %d\n", string(t)+":", st.Tiers[t])
	}
	for _, p := range paths {
		fmt.Printf("  wrote %s\n", filepath.Clean(p))
	}
}
