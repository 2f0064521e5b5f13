package ingestion

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/core"
	"TrancheAllocator/internal/observability"
	"TrancheAllocator/internal/report"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Defaults fill in request fields left empty by the producer.
type Defaults struct {
	Strategy  string
	ApplyCap  bool
	MaxRounds int

	// NaiveMaxPence bounds the pence a naive request may move. Zero or
	// less refuses naive requests outright.
	NaiveMaxPence int64
}

// Worker runs one allocation per request message and publishes its report.
// Messages are handled one at a time, each on its own entity set.
type Worker struct {
	publisher    ReportPublisher
	defaults     Defaults
	resultPrefix string
	cache        *ReportCache
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// Message outcomes, used as metric labels.
const (
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
	outcomeMalformed = "malformed"
	outcomeDuplicate = "duplicate"
	outcomeRetry     = "retry"
)

func NewWorker(publisher ReportPublisher, defaults Defaults, resultPrefix string, cacheSize int, logger zerolog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		publisher:    publisher,
		defaults:     defaults,
		resultPrefix: resultPrefix,
		cache:        NewReportCache(cacheSize),
		logger:       logger,
		metrics:      metrics,
	}
}

// Run handles requests until ctx is done or in is closed.
func (w *Worker) Run(ctx context.Context, in <-chan RawRequest) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-in:
			if !ok {
				return nil
			}
			w.Handle(ctx, raw)
		}
	}
}

// Handle processes one message and acks or naks it:
//   - malformed request: error report, ack
//   - run finished (converged or not): report, ack
//   - publish failed or ctx cancelled mid-run: nak for redelivery
func (w *Worker) Handle(ctx context.Context, raw RawRequest) {
	start := time.Now()
	outcome := w.handle(ctx, raw)

	switch outcome {
	case outcomeRetry:
		raw.NakFunc()
	default:
		raw.AckFunc()
	}

	if w.metrics != nil {
		w.metrics.WorkerMessages.WithLabelValues(outcome).Inc()
		w.metrics.WorkerDuration.Observe(time.Since(start).Seconds())
	}
}

func (w *Worker) handle(ctx context.Context, raw RawRequest) string {
	logger := w.logger.With().Str("subject", raw.Subject).Logger()

	req, err := ParseRequest(raw.Data)
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting malformed request")
		return w.publishError(ctx, "", w.defaults.Strategy, err, outcomeMalformed)
	}
	logger = logger.With().Str("request_id", req.RequestID).Logger()

	if req.RequestID != "" {
		if subject, data, ok := w.cache.Get(req.RequestID); ok {
			logger.Info().Msg("duplicate request, republishing cached report")
			if err := w.publish(ctx, subject, data); err != nil {
				logger.Error().Err(err).Msg("republish failed")
				return outcomeRetry
			}
			return outcomeDuplicate
		}
	}

	name := req.Strategy
	if name == "" {
		name = w.defaults.Strategy
	}
	applyCap := w.defaults.ApplyCap
	if req.ApplyCap != nil {
		applyCap = *req.ApplyCap
	}
	maxRounds := w.defaults.MaxRounds
	if req.MaxRounds > 0 {
		maxRounds = req.MaxRounds
	}

	strategy, err := allocation.NewStrategy(name, applyCap)
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting request with unknown strategy")
		return w.publishError(ctx, req.RequestID, name, fmt.Errorf("%w: %v", ErrMalformedRequest, err), outcomeMalformed)
	}
	if name == allocation.StrategyNaive {
		if err := w.checkNaiveBound(req); err != nil {
			logger.Warn().Err(err).Msg("rejecting naive request")
			return w.publishError(ctx, req.RequestID, name, fmt.Errorf("%w: %v", ErrMalformedRequest, err), outcomeMalformed)
		}
	}

	engine := core.NewEngine(strategy,
		core.WithMaxRounds(maxRounds),
		core.WithLogger(logger),
		core.WithMetrics(w.metrics),
		core.WithStrategyName(name),
	)

	res, runErr := engine.Run(ctx, req.Wallets, req.Tranches)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return outcomeRetry
	}
	if res == nil {
		logger.Warn().Err(runErr).Msg("rejecting request")
		return w.publishError(ctx, req.RequestID, name, fmt.Errorf("%w: %v", ErrMalformedRequest, runErr), outcomeMalformed)
	}

	rep := report.FromResult(name, res, runErr)
	rep.RequestID = req.RequestID
	data, err := rep.Marshal()
	if err != nil {
		logger.Error().Err(err).Msg("report encoding failed")
		return outcomeFailed
	}

	subject := fmt.Sprintf("%s.%s", w.resultPrefix, rep.RunID)
	if err := w.publish(ctx, subject, data); err != nil {
		logger.Error().Err(err).Str("result_subject", subject).Msg("publish failed, requesting redelivery")
		return outcomeRetry
	}
	if req.RequestID != "" {
		w.cache.Put(req.RequestID, subject, data)
	}

	if runErr != nil {
		return outcomeFailed
	}
	return outcomeProcessed
}

// checkNaiveBound refuses naive runs whose work would exceed the configured
// number of pence. The naive strategy moves one penny per step, so the pence
// that can move (the smaller of the two totals) is its cost.
func (w *Worker) checkNaiveBound(req *Request) error {
	if w.defaults.NaiveMaxPence <= 0 {
		return errors.New("naive strategy is disabled for remote requests")
	}
	if err := allocation.Sum.Bounded(req.Wallets, req.Tranches); err != nil {
		return err
	}
	movable := allocation.Sum.OfWallets(req.Wallets)
	if tranches := allocation.Sum.OfTranches(req.Tranches); tranches.LessThan(movable) {
		movable = tranches
	}
	if movable.Amount() > w.defaults.NaiveMaxPence {
		return fmt.Errorf("naive strategy would move %d pence, limit is %d", movable.Amount(), w.defaults.NaiveMaxPence)
	}
	return nil
}

// publishError answers a request that produced no run on <prefix>.errors.
func (w *Worker) publishError(ctx context.Context, requestID, strategy string, cause error, outcome string) string {
	rep := report.FromResult(strategy, nil, cause)
	rep.RequestID = requestID

	data, err := rep.Marshal()
	if err != nil {
		w.logger.Error().Err(err).Msg("error report encoding failed")
		return outcome
	}

	subject := w.resultPrefix + ".errors"
	if err := w.publish(ctx, subject, data); err != nil {
		w.logger.Error().Err(err).Str("result_subject", subject).Msg("error report publish failed, requesting redelivery")
		return outcomeRetry
	}
	return outcome
}

func (w *Worker) publish(ctx context.Context, subject string, data []byte) error {
	err := w.publisher.PublishReport(ctx, subject, data)
	if w.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		w.metrics.WorkerPublishes.WithLabelValues(status).Inc()
	}
	return err
}
