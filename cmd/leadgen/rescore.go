package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/pipeline"
	"github.com/sepa-leadgen/internal/score"
	"github.com/sepa-leadgen/internal/store"
)

// rescoreStats is the audit payload of a rescore run.
type rescoreStats struct {
	Entities int                `json:"entities"`
	Tiers    map[model.Tier]int `json:"tiers"`
}

func createRescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recompute scores for stored entities with the active rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			metrics, err := pipeline.NewMetrics(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			p, err := newPipeline(metrics)
			if err != nil {
				return err
			}
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			runID, err := s.StartRun(ctx, "", store.RunRescore, time.Now().UTC())
			if err != nil {
				return err
			}
			stats, err := rescore(ctx, p, s)
			var payload interface{}
			if stats != nil {
				payload = stats
			}
			if ferr := s.FinishRun(context.WithoutCancel(ctx), runID, payload, err); ferr != nil && err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}

			fmt.Printf("Rescored %d entities\n", stats.Entities)
			for _, t := range []model.Tier{model.TierA, model.TierB, model.TierC, model.TierPark} {
				fmt.Printf("  %-7s %d\n", string(t)+":", stats.Tiers[t])
			}
			return nil
		},
	}
}

func rescore(ctx context.Context, p *pipeline.Pipeline, s *store.Store) (*rescoreStats, error) {
	entities, err := s.LoadEntities(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := p.Rescore(ctx, entities)
	if err != nil {
		return nil, err
	}
	if err := s.ReplaceScores(ctx, scores); err != nil {
		return nil, err
	}
	return &rescoreStats{Entities: len(entities), Tiers: score.TierCounts(scores)}, nil
}
