package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abelbrown/pulse/internal/ingest"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/prep"
)

// reloadDelay coalesces the burst of writes an append produces.
const reloadDelay = 250 * time.Millisecond

// Dataset serves the preprocessed collection loaded from one path. Reloads
// build a new collection and swap it in; readers holding the previous one
// keep a consistent view.
type Dataset struct {
	path    string
	current atomic.Pointer[model.Collection]
	metrics *metrics.Metrics
	events  *otel.Logger
}

// LoadDataset loads and preprocesses path. m and events may be nil.
func LoadDataset(ctx context.Context, path string, m *metrics.Metrics, events *otel.Logger) (*Dataset, error) {
	d := &Dataset{path: path, metrics: m, events: events}
	c, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	d.current.Store(c)
	m.SetPostsLoaded(c.Len())
	return d, nil
}

// Collection returns the collection currently served.
func (d *Dataset) Collection() *model.Collection {
	return d.current.Load()
}

// Path returns the dataset location.
func (d *Dataset) Path() string { return d.path }

// Reload rebuilds the collection. On failure the previous collection stays
// in place.
func (d *Dataset) Reload(ctx context.Context) error {
	start := time.Now()
	c, err := d.load(ctx)
	d.metrics.ObserveReload(err)
	if err != nil {
		logging.Warn("Dataset reload failed, keeping previous collection", "path", d.path, "err", err)
		d.events.Reload(d.path, 0, 0, err)
		return err
	}

	d.current.Store(c)
	d.metrics.SetPostsLoaded(c.Len())
	logging.Info("Dataset reloaded", "path", d.path, "rows", c.Len())
	d.events.Reload(d.path, c.Len(), time.Since(start), nil)
	return nil
}

func (d *Dataset) load(ctx context.Context) (*model.Collection, error) {
	raw, err := ingest.Load(ctx, d.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.path, err)
	}
	return prep.Preprocess(raw)
}

// Watch reloads the dataset whenever its file changes, until ctx is done.
// The parent directory is watched so replacements by rename are seen.
func (d *Dataset) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(d.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Info("Watching dataset", "path", d.path)

	target := filepath.Clean(d.path)
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Dataset watcher error", "err", err)

		case <-timer.C:
			_ = d.Reload(ctx)
		}
	}
}
