package fetch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/pulse/internal/ingest"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/store"
)

// maxConcurrentFeeds bounds in-flight feed requests; the limiter still
// paces them.
const maxConcurrentFeeds = 4

// Acquirer fetches subreddits, keeps only posts whose id was never seen,
// records them in the store and appends them to the line-delimited dataset.
type Acquirer struct {
	fetcher *Fetcher
	store   *store.Store
	jsonl   string
	metrics *metrics.Metrics
	events  *otel.Logger
}

// NewAcquirer returns an Acquirer. jsonl may be empty to skip the dataset
// append; m and events may be nil.
func NewAcquirer(f *Fetcher, st *store.Store, jsonl string, m *metrics.Metrics, events *otel.Logger) *Acquirer {
	return &Acquirer{fetcher: f, store: st, jsonl: jsonl, metrics: m, events: events}
}

// Acquire fetches up to limit newest posts per subreddit and returns the new
// ones, grouped by subreddit in request order. A subreddit that fails is
// skipped; its error is joined into the returned error alongside the posts
// the other subreddits produced.
func (a *Acquirer) Acquire(ctx context.Context, subreddits []string, limit int) ([]model.Post, error) {
	fetched := make([][]model.Post, len(subreddits))
	errs := make([]error, len(subreddits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for i, sub := range subreddits {
		g.Go(func() error {
			posts, err := a.fetcher.Fetch(gctx, sub, limit)
			if err != nil {
				errs[i] = err
				return nil
			}
			fetched[i] = posts
			return nil
		})
	}
	_ = g.Wait()

	var all []model.Post
	for i, sub := range subreddits {
		if errs[i] != nil {
			logging.Warn("Subreddit fetch failed", "subreddit", sub, "err", errs[i])
			a.events.Fetch(sub, 0, errs[i])
			continue
		}

		fresh, err := a.record(ctx, sub, fetched[i])
		if err != nil {
			errs[i] = err
			logging.Warn("Recording fetched posts failed", "subreddit", sub, "err", err)
			a.events.Fetch(sub, 0, err)
			continue
		}

		a.metrics.ObserveFetch(sub, len(fresh))
		a.events.Fetch(sub, len(fresh), nil)
		logging.Info("Fetched subreddit", "subreddit", sub, "fetched", len(fetched[i]), "new", len(fresh))
		all = append(all, fresh...)
	}
	return all, errors.Join(errs...)
}

// record dedupes posts against the store and appends the new ones to the
// dataset file.
func (a *Acquirer) record(ctx context.Context, sub string, posts []model.Post) ([]model.Post, error) {
	fresh, err := a.store.SavePosts(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("save r/%s: %w", sub, err)
	}
	if a.jsonl != "" {
		if err := ingest.AppendJSONL(a.jsonl, fresh); err != nil {
			return nil, fmt.Errorf("append r/%s: %w", sub, err)
		}
	}
	return fresh, nil
}
