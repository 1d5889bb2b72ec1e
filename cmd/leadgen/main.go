package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/config"
	"github.com/sepa-leadgen/internal/logging"
	"github.com/sepa-leadgen/internal/pipeline"
	"github.com/sepa-leadgen/internal/score"
	"github.com/sepa-leadgen/internal/store"
)

var (
	envFile  string
	settings *config.Settings
	closeLog = func() {}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "leadgen",
		Short:         "Lead universe builder for south-eastern Pennsylvania fuel prospects",
		Long:          `Resolves storage tank, NAICS and places data into scored business entities`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to a .env file (defaults to ./.env when present)")

	rootCmd.AddCommand(createBuildCmd())
	rootCmd.AddCommand(createRescoreCmd())
	rootCmd.AddCommand(createMigrateCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())
	rootCmd.AddCommand(createScoreRulesCmd())
	rootCmd.AddCommand(createExplainCmd())
	rootCmd.AddCommand(createQACmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.String("error", eris.ToString(err, true)))
		closeLog()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the environment, validates settings and installs the logger.
func setup() error {
	var err error
	if envFile != "" {
		err = config.LoadEnvFile(envFile)
	} else {
		err = config.LoadEnv()
	}
	if err != nil {
		return err
	}

	if settings, err = config.LoadSettings(); err != nil {
		return err
	}
	closeLog, err = logging.Setup(logging.Options{
		Level:      settings.Log.Level,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
	})
	return err
}

// loadRules returns the configured rule table, or nil for the defaults.
func loadRules() (*score.RuleTable, error) {
	if settings.RulesFile == "" {
		return nil, nil
	}
	return score.LoadRuleTable(settings.RulesFile)
}

func newPipeline(metrics *pipeline.Metrics) (*pipeline.Pipeline, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.OptionsFromSettings(settings, rules), metrics)
}

func openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, settings.Database)
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Println("Database connection successful!")
			sum, err := s.Stats(cmd.Context())
			if err != nil {
				zap.L().Warn("schema not ready, run `leadgen migrate up`", zap.Error(err))
				return nil
			}
			fmt.Printf("Entities: %d (located %d)\n", sum.Entities, sum.Located)
			fmt.Printf("Signals:  %d\n", sum.Signals)
			fmt.Printf("Scored:   %d\n", sum.Scored)
			return nil
		},
	}
}

func createMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(store.Up), string(store.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return store.Migrate(settings.Database.URL(), store.Direction(args[0]))
		},
	}
}

func createScoreRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score-rules",
		Short: "Print the active scoring rule table as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules()
			if err != nil {
				return err
			}
			if rules == nil {
				rules = score.DefaultRuleTable()
			}
			out, err := rules.YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}
