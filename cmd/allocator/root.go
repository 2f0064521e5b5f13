package main

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/config"
	"TrancheAllocator/internal/observability"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Global flags.
type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "allocator",
		Short: "Allocate wallet balances to investment tranches",
		Long: `TrancheAllocator distributes wallet balances across tranches in rounds
until nothing more can move, recording every transfer in a balanced ledger.

Examples:
  allocator run --wallets wallets.csv --tranches tranches.csv
  allocator run --strategy naive --format json
  allocator plan --no-cap
  allocator worker --config allocator.yaml`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json|console)")

	cmd.AddCommand(newRunCmd(opts), newPlanCmd(opts), newWorkerCmd(opts))
	return cmd
}

// load reads the config and applies the global flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile, o.envFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// allocationFlags are shared by run and plan.
type allocationFlags struct {
	wallets   string
	tranches  string
	strategy  string
	noCap     bool
	maxRounds int
	format    string
	output    string
}

func (f *allocationFlags) register(cmd *cobra.Command, withRounds bool) {
	cmd.Flags().StringVar(&f.wallets, "wallets", "", "wallets CSV file")
	cmd.Flags().StringVar(&f.tranches, "tranches", "", "tranches CSV file")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "allocation strategy (proportional|naive)")
	cmd.Flags().BoolVar(&f.noCap, "no-cap", false, "disable the per-tranche cap")
	cmd.Flags().StringVar(&f.format, "format", "", "output format (csv|json)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	if withRounds {
		cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 0, "round limit before giving up")
	}
}

// apply overrides cfg with the flags the user actually set.
func (f *allocationFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.wallets != "" {
		cfg.Input.WalletsFile = f.wallets
	}
	if f.tranches != "" {
		cfg.Input.TranchesFile = f.tranches
	}
	if f.strategy != "" {
		cfg.Allocation.Strategy = f.strategy
	}
	if cmd.Flags().Changed("no-cap") {
		applyCap := !f.noCap
		cfg.Allocation.ApplyCap = &applyCap
	}
	if f.maxRounds > 0 {
		cfg.Allocation.MaxRounds = f.maxRounds
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
}

func newLogger(cfg *config.Config, component string) zerolog.Logger {
	return observability.NewLoggerWithFormat(os.Stderr, component, observability.ParseLogLevel(cfg.Log.Level), cfg.Log.Format)
}

func buildStrategy(cfg *config.Config) (allocation.Strategy, error) {
	s, err := allocation.NewStrategy(cfg.Allocation.Strategy, *cfg.Allocation.ApplyCap)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	return s, nil
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (*os.File, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
