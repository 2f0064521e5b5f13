package report

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/core"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// RoundSummary is the wire form of core.RoundReport.
type RoundSummary struct {
	Round     int    `json:"round"`
	Proposed  int    `json:"proposed"`
	Applied   int    `json:"applied"`
	Skipped   int    `json:"skipped"`
	Moved     string `json:"moved"`
	StateHash string `json:"state_hash"`
}

// RunReport is the JSON document describing one run. It is also what the
// worker publishes.
type RunReport struct {
	RunID              string                  `json:"run_id,omitempty"`
	RequestID          string                  `json:"request_id,omitempty"`
	Strategy           string                  `json:"strategy"`
	Termination        string                  `json:"termination,omitempty"`
	Rounds             []RoundSummary          `json:"rounds"`
	Allocations        []allocation.Allocation `json:"allocations"`
	UnallocatedWallets []core.Remainder        `json:"unallocated_wallets"`
	UnfundedTranches   []core.Remainder        `json:"unfunded_tranches"`
	StateHash          string                  `json:"state_hash,omitempty"`
	Error              string                  `json:"error,omitempty"`
}

// FromResult builds a report. res may be nil when the run never started;
// runErr, when set, lands in Error.
func FromResult(strategy string, res *core.Result, runErr error) RunReport {
	rep := RunReport{
		Strategy:           strategy,
		Rounds:             []RoundSummary{},
		Allocations:        []allocation.Allocation{},
		UnallocatedWallets: []core.Remainder{},
		UnfundedTranches:   []core.Remainder{},
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	if res == nil {
		return rep
	}

	rep.RunID = res.RunID.String()
	rep.Termination = string(res.Termination)
	rep.StateHash = core.HashString(res.StateHash)

	for _, r := range res.Rounds {
		rep.Rounds = append(rep.Rounds, RoundSummary{
			Round:     r.Round,
			Proposed:  r.Proposed,
			Applied:   r.Applied,
			Skipped:   r.Skipped,
			Moved:     r.Moved.String(),
			StateHash: core.HashString(r.StateHash),
		})
	}
	rep.Allocations = append(rep.Allocations, res.Allocations...)
	rep.UnallocatedWallets = append(rep.UnallocatedWallets, res.UnallocatedWallets...)
	rep.UnfundedTranches = append(rep.UnfundedTranches, res.UnfundedTranches...)

	return rep
}

// Marshal renders the report as compact JSON.
func (r RunReport) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteCSV writes one wallet,tranche,amount line per record, amounts in pounds.
func WriteCSV(w io.Writer, allocations []allocation.Allocation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"wallet", "tranche", "amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range allocations {
		if err := cw.Write([]string{a.Wallet, a.Tranche, a.Amount.String()}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
