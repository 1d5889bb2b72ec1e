package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sepa-leadgen/internal/score"
)

func createExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [entity_id]",
		Short: "Score one stored entity with rule-by-rule debug output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rules, err := loadRules()
			if err != nil {
				return err
			}
			engine := score.NewEngine()
			if rules != nil {
				if engine, err = score.NewEngineWithRules(rules); err != nil {
					return err
				}
			}

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			lead, err := s.GetLead(ctx, args[0])
			if err != nil {
				return err
			}
			rec := engine.CalculateDebug(true, &lead.Entity)

			fmt.Printf("%s  %s\n", lead.ID, lead.Name)
			fmt.Printf("  stored:  %d (%s)\n", lead.Score, lead.Tier)
			fmt.Printf("  current: %d (%s)\n", rec.Score, rec.Tier)
			fmt.Printf("  codes:   %s\n", strings.Join(rec.ReasonCodes, ", "))
			fmt.Printf("  reasons: %s\n", rec.ReasonText)

			signals, err := s.SignalsFor(ctx, lead.ID)
			if err != nil {
				return err
			}
			for _, sig := range signals {
				fmt.Printf("  signal %-14s %-30s %s\n", sig.SignalType, sig.SignalValue, sig.Source)
			}
			return nil
		},
	}
}
