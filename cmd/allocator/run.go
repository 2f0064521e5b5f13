package main

import (
	"TrancheAllocator/internal/core"
	"TrancheAllocator/internal/ingestion"
	"TrancheAllocator/internal/report"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	flags := &allocationFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run allocation rounds until nothing more moves",
		Long: `Loads wallets and tranches from CSV, runs allocation rounds to completion
and writes the aggregated allocations. Exits non-zero when the run does not
converge; the partial result is still written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg, "allocator")

			wallets, err := ingestion.LoadWallets(cfg.Input.WalletsFile)
			if err != nil {
				return err
			}
			tranches, err := ingestion.LoadTranches(cfg.Input.TranchesFile)
			if err != nil {
				return err
			}

			strategy, err := buildStrategy(cfg)
			if err != nil {
				return err
			}
			engine := core.NewEngine(strategy,
				core.WithMaxRounds(cfg.Allocation.MaxRounds),
				core.WithLogger(logger),
				core.WithStrategyName(cfg.Allocation.Strategy),
			)

			res, runErr := engine.Run(cmd.Context(), wallets, tranches)
			if res == nil {
				return runErr
			}

			out, closeOut, err := openOutput(flags.output)
			if err != nil {
				return err
			}

			switch cfg.Output.Format {
			case report.FormatJSON:
				err = report.WriteJSON(out, report.FromResult(cfg.Allocation.Strategy, res, runErr))
			default:
				err = report.WriteCSV(out, res.Allocations)
			}
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			logger.Info().
				Str("termination", string(res.Termination)).
				Int("rounds", len(res.Rounds)).
				Int("allocations", len(res.Allocations)).
				Str("moved", res.Moved().String()).
				Msg("allocation finished")

			if runErr != nil {
				return fmt.Errorf("allocation incomplete: %w", runErr)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}
