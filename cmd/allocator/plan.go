package main

import (
	"TrancheAllocator/internal/core"
	"TrancheAllocator/internal/ingestion"
	"TrancheAllocator/internal/report"

	"github.com/spf13/cobra"
)

func newPlanCmd(root *rootOptions) *cobra.Command {
	flags := &allocationFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the allocations a single strategy call proposes",
		Long: `Calls the strategy once on the loaded wallets and tranches and writes the
proposed records without investing anything.`,
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
			proposed, err := core.NewEngine(strategy).Plan(wallets, tranches)
			if err != nil {
				return err
			}

			out, closeOut, err := openOutput(flags.output)
			if err != nil {
				return err
			}

			switch cfg.Output.Format {
			case report.FormatJSON:
				rep := report.FromResult(cfg.Allocation.Strategy, nil, nil)
				rep.Allocations = append(rep.Allocations, proposed...)
				err = report.WriteJSON(out, rep)
			default:
				err = report.WriteCSV(out, proposed)
			}
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}

	flags.register(cmd, false)
	return cmd
}
