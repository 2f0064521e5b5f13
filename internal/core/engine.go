package core

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/ledger"
	"TrancheAllocator/internal/money"
	"TrancheAllocator/internal/observability"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxRounds bounds a run when no explicit limit is configured.
const DefaultMaxRounds = 100

var (
	// ErrNotConverged is returned with the partial Result when a run hits
	// the round bound or reaches a state where no money moves.
	ErrNotConverged = errors.New("allocation did not converge")
	// ErrDuplicateID rejects entity sets that reuse a wallet or tranche id.
	ErrDuplicateID = errors.New("duplicate id")
)

// Skip reasons, used as metric labels.
const (
	skipUnknownID    = "unknown_id"
	skipInvestFailed = "invest_failed"
)

// Engine drives a strategy to a fixed point: allocate, invest, repeat.
// An Engine holds no per-run state, but a Run mutates the entities it is
// given, so concurrent runs must not share wallets or tranches.
type Engine struct {
	strategy  allocation.Strategy
	name      string
	maxRounds int
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRounds overrides DefaultMaxRounds. Values below 1 are ignored.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStrategyName labels logs and metrics.
func WithStrategyName(name string) Option {
	return func(e *Engine) { e.name = name }
}

func NewEngine(strategy allocation.Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategy:  strategy,
		name:      "custom",
		maxRounds: DefaultMaxRounds,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan runs the strategy once without investing anything.
func (e *Engine) Plan(wallets []*allocation.Wallet, tranches []*allocation.Tranche) ([]allocation.Allocation, error) {
	if err := allocation.Sum.Bounded(wallets, tranches); err != nil {
		return nil, err
	}
	return e.strategy.Allocate(wallets, tranches), nil
}

// run carries the state of one Run call.
type run struct {
	id          uuid.UUID
	wallets     []*allocation.Wallet
	tranches    []*allocation.Tranche
	walletByID  map[string]*allocation.Wallet
	trancheByID map[string]*allocation.Tranche
	opening     map[string]int64

	tracker   *ledger.BalanceTracker
	validator *ledger.InvariantValidator
	journals  *ledger.JournalGenerator
	hasher    *RoundHasher
	logger    zerolog.Logger
}

// Run repeats allocate-then-invest rounds until no records are proposed,
// every wallet is empty, or every tranche is funded. On ErrNotConverged or
// context cancellation the partial Result is returned with the error.
func (e *Engine) Run(ctx context.Context, wallets []*allocation.Wallet, tranches []*allocation.Tranche) (*Result, error) {
	r, err := e.newRun(wallets, tranches)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{RunID: r.id}
	agg := newAggregator()

	if batch := r.journals.GenerateOpening(wallets); batch != nil {
		r.apply(batch)
		result.Journals += len(batch.Journals)
		e.countJournals(ledger.JournalTypeOpening, len(batch.Journals))
	}
	r.hasher.Chain(0, r.tracker)

	r.logger.Info().
		Int("wallets", len(wallets)).
		Int("tranches", len(tranches)).
		Str("wallet_total", allocation.Sum.OfWallets(wallets).String()).
		Str("tranche_total", allocation.Sum.OfTranches(tranches).String()).
		Msg("run started")

	var runErr error
	for round := 1; ; round++ {
		if round > e.maxRounds {
			result.Termination = TerminationNotConverged
			runErr = fmt.Errorf("%w: exceeded %d rounds", ErrNotConverged, e.maxRounds)
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		report, applied, done := e.runRound(r, round, result)
		if done {
			result.Termination = TerminationNoAllocations
			break
		}
		result.Rounds = append(result.Rounds, report)
		agg.add(applied)

		if allocation.Sum.OfWallets(wallets).IsZero() {
			result.Termination = TerminationWalletsExhausted
			break
		}
		if allFunded(tranches) {
			result.Termination = TerminationTranchesFunded
			break
		}
		if report.Moved.IsZero() {
			result.Termination = TerminationNotConverged
			runErr = fmt.Errorf("%w: round %d moved nothing from %d records", ErrNotConverged, round, report.Proposed)
			break
		}
	}

	e.finish(r, result, agg, time.Since(start), runErr)
	return result, runErr
}

func (e *Engine) newRun(wallets []*allocation.Wallet, tranches []*allocation.Tranche) (*run, error) {
	if err := allocation.Sum.Bounded(wallets, tranches); err != nil {
		return nil, err
	}

	walletByID := make(map[string]*allocation.Wallet, len(wallets))
	for _, w := range wallets {
		if _, dup := walletByID[w.ID()]; dup {
			return nil, fmt.Errorf("%w: wallet %s", ErrDuplicateID, w.ID())
		}
		walletByID[w.ID()] = w
	}

	trancheByID := make(map[string]*allocation.Tranche, len(tranches))
	opening := make(map[string]int64, len(tranches))
	for _, t := range tranches {
		if _, dup := trancheByID[t.ID()]; dup {
			return nil, fmt.Errorf("%w: tranche %s", ErrDuplicateID, t.ID())
		}
		trancheByID[t.ID()] = t
		opening[t.ID()] = t.Available().Amount()
	}

	id := uuid.New()
	tracker := ledger.NewBalanceTracker()
	logger := e.logger.With().
		Str("run_id", id.String()).
		Str("strategy", e.name).
		Logger()

	return &run{
		id:          id,
		wallets:     wallets,
		tranches:    tranches,
		walletByID:  walletByID,
		trancheByID: trancheByID,
		opening:     opening,
		tracker:     tracker,
		validator:   ledger.NewInvariantValidator(tracker),
		journals:    ledger.NewJournalGenerator(id.String()),
		hasher:      NewRoundHasher(),
		logger:      logger,
	}, nil
}

// runRound reports done when the strategy proposed nothing.
func (e *Engine) runRound(r *run, round int, result *Result) (RoundReport, []allocation.Allocation, bool) {
	start := time.Now()
	records := e.strategy.Allocate(r.wallets, r.tranches)

	report := RoundReport{Round: round, Proposed: len(records), Moved: money.Zero}
	if e.metrics != nil {
		e.metrics.RecordsProposed.Add(float64(len(records)))
	}
	if len(records) == 0 {
		return report, nil, true
	}

	applied := make([]allocation.Allocation, 0, len(records))
	for _, rec := range records {
		if !rec.Amount.IsPositive() {
			continue
		}

		w, okW := r.walletByID[rec.Wallet]
		t, okT := r.trancheByID[rec.Tranche]
		if !okW || !okT {
			report.Skipped++
			e.countSkip(skipUnknownID)
			r.logger.Warn().
				Int("round", round).
				Str("wallet", rec.Wallet).
				Str("tranche", rec.Tranche).
				Msg("allocation references unknown entity, skipped")
			continue
		}

		if err := w.Invest(t, rec.Amount); err != nil {
			report.Skipped++
			e.countSkip(skipInvestFailed)
			r.logger.Warn().
				Err(err).
				Int("round", round).
				Str("wallet", rec.Wallet).
				Str("tranche", rec.Tranche).
				Str("amount", rec.Amount.String()).
				Msg("investment rejected, skipped")
			continue
		}

		applied = append(applied, rec)
		report.Moved = report.Moved.Add(rec.Amount)
	}
	report.Applied = len(applied)

	batch, err := r.journals.GenerateInvestments(round, applied)
	if err != nil {
		panic(fmt.Sprintf("FATAL: journal generation failed in round %d: %v", round, err))
	}
	if batch != nil {
		r.apply(batch)
		result.Journals += len(batch.Journals)
		e.countJournals(ledger.JournalTypeInvestment, len(batch.Journals))
	}

	if err := r.postCheckInvariants(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated after round %d: %v", round, err))
	}

	report.StateHash = r.hasher.Chain(round, r.tracker)

	if e.metrics != nil {
		e.metrics.RoundsTotal.WithLabelValues(e.name).Inc()
		e.metrics.RoundDuration.Observe(time.Since(start).Seconds())
		e.metrics.RecordsApplied.Add(float64(report.Applied))
		e.metrics.MinorUnitsMoved.Add(float64(report.Moved.Amount()))
	}

	r.logger.Debug().
		Int("round", round).
		Int("proposed", report.Proposed).
		Int("applied", report.Applied).
		Int("skipped", report.Skipped).
		Str("moved", report.Moved.String()).
		Str("state_hash", HashString(report.StateHash)).
		Msg("round complete")

	return report, applied, false
}

func (r *run) apply(batch *ledger.Batch) {
	if err := r.validator.ValidateBatchBalance(batch); err != nil {
		panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
	}
	if err := r.tracker.ApplyBatch(batch); err != nil {
		panic(fmt.Sprintf("FATAL: apply batch failed: %v", err))
	}
}

// postCheckInvariants cross-checks the ledger against the entities.
func (r *run) postCheckInvariants() error {
	if err := r.validator.ValidateGlobalBalance(); err != nil {
		return err
	}
	if err := r.validator.ValidateConservation(); err != nil {
		return err
	}
	if err := r.validator.ValidateWallets(r.wallets); err != nil {
		return err
	}
	return r.validator.ValidateTranches(r.tranches, r.opening)
}

func (e *Engine) finish(r *run, result *Result, agg *aggregator, elapsed time.Duration, runErr error) {
	result.Allocations = agg.out
	result.StateHash = r.hasher.Tip()
	result.RemainingWallets = allocation.Sum.OfWallets(r.wallets)
	result.RemainingTranches = allocation.Sum.OfTranches(r.tranches)

	for _, w := range r.wallets {
		if w.Balance().IsPositive() {
			result.UnallocatedWallets = append(result.UnallocatedWallets, Remainder{ID: w.ID(), Amount: w.Balance()})
		}
	}
	for _, t := range r.tranches {
		if !t.IsFunded() {
			result.UnfundedTranches = append(result.UnfundedTranches, Remainder{ID: t.ID(), Amount: t.Available()})
		}
	}

	termination := string(result.Termination)
	if termination == "" {
		termination = "cancelled"
	}

	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues(e.name, termination).Inc()
		e.metrics.RunDuration.WithLabelValues(e.name).Observe(elapsed.Seconds())
		e.metrics.RemainingWallets.Set(float64(result.RemainingWallets.Amount()))
		e.metrics.RemainingTranche.Set(float64(result.RemainingTranches.Amount()))
	}

	evt := r.logger.Info()
	if runErr != nil {
		evt = r.logger.Error().Err(runErr)
	}
	evt.
		Str("termination", termination).
		Int("rounds", len(result.Rounds)).
		Str("moved", result.Moved().String()).
		Str("remaining_wallets", result.RemainingWallets.String()).
		Str("remaining_tranches", result.RemainingTranches.String()).
		Str("state_hash", HashString(result.StateHash)).
		Dur("elapsed", elapsed).
		Msg("run finished")
}

func (e *Engine) countSkip(reason string) {
	if e.metrics != nil {
		e.metrics.RecordsSkipped.WithLabelValues(reason).Inc()
	}
}

func (e *Engine) countJournals(t ledger.JournalType, n int) {
	if e.metrics != nil {
		e.metrics.JournalsTotal.WithLabelValues(t.String()).Add(float64(n))
	}
}

func allFunded(tranches []*allocation.Tranche) bool {
	for _, t := range tranches {
		if !t.IsFunded() {
			return false
		}
	}
	return true
}
