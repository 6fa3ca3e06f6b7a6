package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/metrics"
)

// Collector produces one decoded collector response per call.
type Collector interface {
	Collect(ctx context.Context) (*collector.Response, error)
	DefaultCooldown() time.Duration
}

// Poller runs the collector, applies what it returns and sleeps for the
// cooldown the collector asked for. It implements suture.Service.
type Poller struct {
	collector   Collector
	ingester    *Ingester
	minCooldown time.Duration
	logger      *slog.Logger

	// cycleDone, when set, is called after every cycle with the wait that follows.
	cycleDone func(wait time.Duration)
}

// NewPoller returns a Poller that never waits less than minCooldown between runs.
func NewPoller(c Collector, ingester *Ingester, minCooldown time.Duration) *Poller {
	return &Poller{
		collector:   c,
		ingester:    ingester,
		minCooldown: minCooldown,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Poller. By default, all logs are discarded.
func (p *Poller) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Serve polls until ctx is done.
func (p *Poller) Serve(ctx context.Context) error {
	for {
		wait := p.Cycle(ctx)
		if p.cycleDone != nil {
			p.cycleDone(wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Cycle runs the collector once, applies its payload and returns how long
// to wait before the next run.
func (p *Poller) Cycle(ctx context.Context) time.Duration {
	logger := p.logger.With(slog.String("cycle_id", uuid.NewString()))
	logger.DebugContext(ctx, "Running collector")

	start := time.Now()
	resp, err := p.collector.Collect(ctx)
	metrics.CollectorDuration.Observe(time.Since(start).Seconds())

	wait := p.collector.DefaultCooldown()
	if resp != nil {
		wait = resp.Cooldown
	}
	if wait < p.minCooldown {
		wait = p.minCooldown
	}
	metrics.CollectorCooldown.Set(wait.Seconds())

	switch {
	case err != nil:
		metrics.IngestCycles.WithLabelValues(metrics.CycleCollector).Inc()
		attrs := []any{slog.Any("error", err), slog.Duration("retry_in", wait)}
		if resp != nil {
			attrs = append(attrs, slog.Int("status", resp.Status), slog.String("content_type", resp.ContentType))
		}
		if errors.Is(err, context.Canceled) {
			logger.DebugContext(ctx, "Collector run canceled", attrs...)
		} else {
			logger.ErrorContext(ctx, "Collector run failed", attrs...)
		}
	case resp.Kind == collector.KindUnsupported:
		metrics.IngestCycles.WithLabelValues(metrics.CycleUnsupported).Inc()
		logger.WarnContext(ctx, "Ignoring unsupported collector response",
			slog.String("content_type", resp.ContentType),
			slog.Duration("retry_in", wait),
		)
	default:
		res, err := p.ingester.Apply(ctx, resp.Nicknames)
		if err != nil {
			metrics.IngestCycles.WithLabelValues(metrics.CycleStore).Inc()
			logger.ErrorContext(ctx, "Some champions could not be updated",
				slog.Int("failed", res.Failed),
				slog.Any("error", err),
			)
		} else {
			metrics.IngestCycles.WithLabelValues(metrics.CycleOK).Inc()
		}
		logger.InfoContext(ctx, "Collector cycle done",
			slog.Int("champions", res.Champions),
			slog.Int("fed", res.Fed),
			slog.Duration("next_run_in", wait),
		)
	}
	return wait
}

// String implements fmt.Stringer for suture's logs.
func (p *Poller) String() string {
	return "collector-poller"
}
