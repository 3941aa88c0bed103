// Package refresh decides when the catalog re-reads backing storage: a
// mandatory full scan on start, an incremental delta after every
// upload/delete notification, and an optional periodic rescan as a safety
// net against out-of-band filesystem changes. Refreshes are serialized
// against each other; catalog queries are never blocked by one.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/distfile"
	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/hook"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/store"
)

// Action tags a mutation notification from the upload/delete transport.
type Action string

// Notification actions.
const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Options configure a Refresher.
type Options struct {
	// Interval between periodic safety-net rescans; <= 0 disables them.
	Interval time.Duration
	// ManifestPath persists the last listing between runs; empty disables.
	ManifestPath string
}

// Refresher coordinates catalog updates from storage. All mutations funnel
// through its writer lock, keeping the single-writer discipline the
// catalog snapshots rely on.
type Refresher struct {
	catalog *catalog.Catalog
	storage store.Storage
	hooks   hook.Manager
	opts    Options

	mu       sync.Mutex // serializes refreshes and notifications
	listing  []model.FileInfo
	inFlight atomic.Bool
}

// New creates a Refresher. hooks may be nil when no scripts are configured.
func New(cat *catalog.Catalog, storage store.Storage, hooks hook.Manager, opts Options) *Refresher {
	return &Refresher{
		catalog: cat,
		storage: storage,
		hooks:   hooks,
		opts:    opts,
	}
}

// Bootstrap performs the mandatory cold-start full scan. When a manifest
// from an earlier run is available it is used to report how much changed
// while the server was down.
func (r *Refresher) Bootstrap(ctx context.Context) error {
	if r.opts.ManifestPath != "" {
		if m, err := store.LoadManifest(r.opts.ManifestPath); err == nil {
			r.mu.Lock()
			r.listing = m.Files
			r.mu.Unlock()
			logger.Info("loaded scan manifest", logrus.Fields{
				"files":      len(m.Files),
				"scanned_at": m.ScannedAt.Format(time.RFC3339),
			})
		} else if !errors.Is(err, errors.ErrFileNotFound) {
			logger.Warn("discarding unusable scan manifest", logrus.Fields{"error": err})
		}
	}
	return r.fullScan(ctx)
}

// RefreshIfNeeded triggers a full rescan unless one is already running, in
// which case the request coalesces into the in-flight one and returns
// immediately.
func (r *Refresher) RefreshIfNeeded(ctx context.Context) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		logger.Debug("refresh already in progress, coalescing")
		return nil
	}
	defer r.inFlight.Store(false)
	return r.fullScan(ctx)
}

// Run starts the periodic rescan loop; it returns when ctx is cancelled.
// With no interval configured it just waits for cancellation.
func (r *Refresher) Run(ctx context.Context) error {
	if r.opts.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshIfNeeded(ctx); err != nil {
				logger.Error("periodic refresh failed", logrus.Fields{"error": err})
			}
		}
	}
}

// Notify applies an incremental delta after the transport finished an
// upload or delete of filename. A file that vanished before the added
// notification could be processed is treated as removed.
func (r *Refresher) Notify(ctx context.Context, filename string, action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch action {
	case ActionAdded:
		fi, err := r.storage.Stat(ctx, filename)
		if err != nil {
			logger.Warn("notified file vanished, treating as removed", logrus.Fields{
				"filename": filename, "error": err,
			})
			return r.removeLocked(filename)
		}
		rec := distfile.ParseFile(fi)
		gen, err := r.catalog.ApplyDelta([]*model.PackageRecord{rec}, nil)
		if err != nil {
			return err
		}
		r.updateListingLocked(store.Delta{Added: []model.FileInfo{fi}})
		r.saveManifestLocked()
		r.fireHook(hook.PackageAdded, rec, gen)
		return nil
	case ActionRemoved:
		return r.removeLocked(filename)
	}
	return errors.Wrapf(errors.ErrInvalidPath, "unknown action %q", action)
}

func (r *Refresher) removeLocked(filename string) error {
	rec, _ := r.catalog.Lookup(filename)
	gen, err := r.catalog.ApplyDelta(nil, []string{filename})
	if err != nil {
		return err
	}
	r.updateListingLocked(store.Delta{Removed: []string{filename}})
	r.saveManifestLocked()
	if rec == nil {
		rec = &model.PackageRecord{RawFilename: filename}
	}
	r.fireHook(hook.PackageRemoved, rec, gen)
	return nil
}

func (r *Refresher) fullScan(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	files, err := r.storage.List(ctx)
	if err != nil {
		return errors.Wrap(err, "full scan failed")
	}

	delta := store.Diff(r.listing, files)
	records := make([]*model.PackageRecord, 0, len(files))
	for _, fi := range files {
		records = append(records, distfile.ParseFile(fi))
	}
	gen := r.catalog.ApplyFullScan(records)

	r.listing = files
	r.saveManifestLocked()

	logger.Info("catalog refreshed", logrus.Fields{
		"generation": gen,
		"files":      len(files),
		"added":      len(delta.Added),
		"removed":    len(delta.Removed),
		"modified":   len(delta.Modified),
		"elapsed":    time.Since(start).Round(time.Millisecond).String(),
	})
	r.fireHook(hook.IndexRefreshed, &model.PackageRecord{}, gen)
	return nil
}

// updateListingLocked folds a delta into the remembered listing so the
// next diff is computed against what was actually published.
func (r *Refresher) updateListingLocked(delta store.Delta) {
	byName := make(map[string]model.FileInfo, len(r.listing))
	for _, fi := range r.listing {
		byName[fi.Name] = fi
	}
	for _, name := range delta.Removed {
		delete(byName, name)
	}
	for _, fi := range delta.Added {
		byName[fi.Name] = fi
	}
	for _, fi := range delta.Modified {
		byName[fi.Name] = fi
	}
	listing := make([]model.FileInfo, 0, len(byName))
	for _, fi := range byName {
		listing = append(listing, fi)
	}
	r.listing = listing
}

func (r *Refresher) saveManifestLocked() {
	if r.opts.ManifestPath == "" {
		return
	}
	if err := store.SaveManifest(r.opts.ManifestPath, r.listing); err != nil {
		logger.Warn("failed to save scan manifest", logrus.Fields{"error": err})
	}
}

// fireHook runs the script for an event; script failures are logged and
// never propagated into the serving path.
func (r *Refresher) fireHook(event hook.Event, rec *model.PackageRecord, generation uint64) {
	if r.hooks == nil {
		return
	}
	err := r.hooks.Execute(event, hook.Context{
		Filename:    rec.RawFilename,
		PackageName: rec.PackageName,
		Version:     rec.Version.String(),
		Generation:  generation,
	})
	if err != nil {
		logger.Error("hook failed", logrus.Fields{"event": string(event), "error": err})
	}
}
