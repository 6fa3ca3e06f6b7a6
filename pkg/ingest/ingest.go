// Package ingest applies collected nickname payloads to the stored champions
// and drives the collector on a schedule.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/metrics"
)

// Updater is the subset of registry.Registry used to apply payloads.
type Updater interface {
	Update(ctx context.Context, id uint32, fn func(c *champion.Champion) error) error
}

// Result summarizes one applied payload.
type Result struct {
	Champions int `json:"champions"` // Champions stored successfully.
	Fed       int `json:"fed"`       // Nicknames that changed a table.
	Skipped   int `json:"skipped"`   // Nicknames the table already reproduced.
	Rejected  int `json:"rejected"`  // Empty nicknames.
	Failed    int `json:"failed"`    // Champions whose update failed.
}

func (r *Result) add(o Result) {
	r.Champions += o.Champions
	r.Fed += o.Fed
	r.Skipped += o.Skipped
	r.Rejected += o.Rejected
	r.Failed += o.Failed
}

// Ingester feeds payloads into champions through an Updater.
type Ingester struct {
	updater     Updater
	concurrency int
	logger      *slog.Logger
}

// NewIngester returns an Ingester that updates at most concurrency champions
// at once. A concurrency below one means no limit.
func NewIngester(updater Updater, concurrency int) *Ingester {
	return &Ingester{
		updater:     updater,
		concurrency: concurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Ingester. By default, all logs are discarded.
func (in *Ingester) SetLogger(logger *slog.Logger) {
	if logger != nil {
		in.logger = logger
	}
}

// Apply feeds every nickname of payload into its champion, in list order,
// and stores each champion once. Champions are processed in parallel; a
// failure for one id does not stop the others. The returned error joins the
// per-id failures.
func (in *Ingester) Apply(ctx context.Context, payload collector.Payload) (Result, error) {
	var (
		mu    sync.Mutex
		total Result
		errs  []error
	)

	g, gctx := errgroup.WithContext(ctx)
	if in.concurrency > 0 {
		g.SetLimit(in.concurrency)
	}

	for _, id := range slices.Sorted(maps.Keys(payload)) {
		nicknames := payload[id]
		g.Go(func() error {
			res, err := in.applyOne(gctx, id, nicknames)
			mu.Lock()
			defer mu.Unlock()
			total.add(res)
			if err != nil {
				errs = append(errs, fmt.Errorf("champion %d: %w", id, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	in.logger.InfoContext(ctx, "Applied nickname payload",
		slog.Int("champions", total.Champions),
		slog.Int("fed", total.Fed),
		slog.Int("skipped", total.Skipped),
		slog.Int("rejected", total.Rejected),
		slog.Int("failed", total.Failed),
	)
	return total, errors.Join(errs...)
}

func (in *Ingester) applyOne(ctx context.Context, id uint32, nicknames []string) (Result, error) {
	// Nothing to learn; storing would create an empty champion.
	if len(nicknames) == 0 {
		return Result{}, nil
	}

	var res Result
	err := in.updater.Update(ctx, id, func(c *champion.Champion) error {
		res = Result{}
		for _, nickname := range nicknames {
			learned, err := c.Feed(nickname)
			switch {
			case errors.Is(err, champion.ErrEmptyInput):
				res.Rejected++
			case err != nil:
				return err
			case learned:
				res.Fed++
			default:
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		in.logger.ErrorContext(ctx, "Failed to update champion",
			slog.Uint64("champion_id", uint64(id)),
			slog.Any("error", err),
		)
		return Result{Failed: 1}, err
	}
	res.Champions = 1
	metrics.ChampionsUpdated.Inc()
	metrics.RecordFeed(metrics.FeedLearned, res.Fed)
	metrics.RecordFeed(metrics.FeedSkipped, res.Skipped)
	metrics.RecordFeed(metrics.FeedRejected, res.Rejected)
	return res, nil
}
