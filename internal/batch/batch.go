package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/nao1215/failsight/internal/report"
)

// DefaultConcurrency is the number of predictions in flight at once.
const DefaultConcurrency = 4

// Predictor submits a single prediction. *predict.Client implements it.
type Predictor interface {
	SubmitSingle(ctx context.Context, name model.ModelName, features model.FeatureVector) (*predict.SingleResponse, error)
}

// Processor runs predictions for many readings concurrently.
type Processor struct {
	predictor   Predictor
	model       model.ModelName
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent predictions.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor that predicts with the named model.
func NewProcessor(predictor Predictor, name model.ModelName, opts ...Option) *Processor {
	p := &Processor{
		predictor:   predictor,
		model:       name,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Process predicts every reading and returns one entry per reading in input
// order. A failed prediction is recorded in its entry and does not stop the
// others. The error is non-nil only when ctx is cancelled, in which case the
// entries not yet predicted carry the context error.
func (p *Processor) Process(ctx context.Context, readings []Reading) ([]report.BatchEntry, error) {
	entries := make([]report.BatchEntry, len(readings))
	err := p.ProcessWithCallback(ctx, readings, func(entry report.BatchEntry, index int) {
		entries[index] = entry
	})
	return entries, err
}

// ProcessWithCallback predicts every reading and calls callback with each
// entry and the index of its reading. The callback runs on the worker
// goroutine, so it must be safe for concurrent use unless it only touches
// index-specific state.
func (p *Processor) ProcessWithCallback(
	ctx context.Context,
	readings []Reading,
	callback func(entry report.BatchEntry, index int),
) error {
	p.logger.Info("starting batch prediction",
		"total", len(readings),
		"model", p.model.String(),
		"concurrency", p.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, reading := range readings {
		g.Go(func() error {
			entry := report.BatchEntry{Label: reading.Label}

			// Check for cancellation before starting
			if err := ctx.Err(); err != nil {
				entry.Err = err
				callback(entry, i)
				return err
			}

			resp, err := p.predictor.SubmitSingle(ctx, p.model, reading.Features)
			if err != nil {
				p.logger.Warn("prediction failed",
					"label", reading.Label,
					"line", reading.Line,
					"error", err,
				)
				entry.Err = err
				callback(entry, i)
				// Keep going with the other readings.
				return nil
			}
			if err := resp.Result.Validate(); err != nil {
				entry.Err = err
				callback(entry, i)
				return nil
			}

			entry.Result = resp.Result
			callback(entry, i)
			return nil
		})
	}

	err := g.Wait()

	p.logger.Info("batch prediction complete",
		"total", len(readings),
		"elapsed", time.Since(startTime),
	)
	return err
}
