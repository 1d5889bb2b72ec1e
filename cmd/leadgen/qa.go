package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sepa-leadgen/internal/export"
	"github.com/sepa-leadgen/internal/store"
)

func createQACmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Report coverage, tank code mapping and sector mix of the stored universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			cov, err := s.Coverage(ctx)
			if err != nil {
				return err
			}
			printCoverage(os.Stdout, cov)

			if out == "" {
				return nil
			}
			// The sheet carries the stamp of the run it describes.
			at := time.Now().UTC()
			run, err := s.LastRun(ctx)
			if err != nil {
				return err
			}
			if run != nil {
				at = run.AsOf
			}
			path, err := export.WriteCoverage(out, at, cov)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Also write qa_report_<stamp>.csv to this directory")
	return cmd
}

func printCoverage(w io.Writer, cov *store.Coverage) {
	fmt.Fprintln(w, "County coverage")
	fmt.Fprintf(w, "  %-16s %6s %14s %14s %14s %14s\n", "county", "sites", "diesel", "active", "geocoded", "sector")
	for _, c := range cov.Counties {
		fmt.Fprintf(w, "  %-16s %6d %6d %6.1f%% %6d %6.1f%% %6d %6.1f%% %6d %6.1f%%\n",
			c.County, c.TotalSites,
			c.DieselLike, c.DieselLikePct, c.ActiveLike, c.ActiveLikePct,
			c.Geocoded, c.GeocodedPct, c.WithSector, c.WithSectorPct)
	}

	for _, tab := range []struct {
		title string
		rows  []store.CodeMapping
	}{
		{"Product code -> diesel_like", cov.Products},
		{"Status code -> active_like", cov.Statuses},
	} {
		fmt.Fprintf(w, "\n%s\n  %-10s %6s %6s %6s\n", tab.title, "code", "true", "false", "total")
		for _, m := range tab.rows {
			code := m.Code
			if code == "" {
				code = "(blank)"
			}
			fmt.Fprintf(w, "  %-10s %6d %6d %6d\n", code, m.True, m.False, m.Total)
		}
	}

	fmt.Fprintf(w, "\nSector composition\n  %-32s %6s %7s %9s\n", "sector", "count", "pct", "avg_score")
	for _, sc := range cov.Sectors {
		avg := "-"
		if sc.AvgScore != nil {
			avg = fmt.Sprintf("%.1f", *sc.AvgScore)
		}
		fmt.Fprintf(w, "  %-32s %6d %6.1f%% %9s\n", sc.Sector, sc.Count, sc.PctOfTotal, avg)
	}
}
