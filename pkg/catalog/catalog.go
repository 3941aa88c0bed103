// Package catalog maintains the queryable package index. The only shared
// mutable state is the current-snapshot pointer, swapped atomically:
// readers never block on writers and always see a fully-consistent view.
package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/model"
)

// Catalog owns the current snapshot reference and exclusively controls its
// replacement. Mutations are serialized by a single-writer lock; queries
// are lock-free.
type Catalog struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// New creates an empty, uninitialized catalog. Queries fail with
// ErrNotInitialized until the first ApplyFullScan publishes a snapshot.
func New() *Catalog {
	return &Catalog{}
}

// Current returns the published snapshot, for callers that need one
// consistent view across several reads (e.g. rendering one HTTP response).
func (c *Catalog) Current() (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, errors.ErrNotInitialized
	}
	return snap, nil
}

// Query returns the release records for a project name (any spelling) in
// ascending version order. An absent project yields an empty result, not
// an error.
func (c *Catalog) Query(name string) ([]*model.PackageRecord, error) {
	snap, err := c.Current()
	if err != nil {
		return nil, err
	}
	return snap.Project(name), nil
}

// ListNames returns the sorted set of normalized project names.
func (c *Catalog) ListNames() ([]string, error) {
	snap, err := c.Current()
	if err != nil {
		return nil, err
	}
	return snap.Names(), nil
}

// Latest resolves the version-maximal release record for a project.
func (c *Catalog) Latest(name string) (*model.PackageRecord, error) {
	snap, err := c.Current()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Latest(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrProjectNotFound, "%s", name)
	}
	return rec, nil
}

// Lookup resolves a single file by raw filename.
func (c *Catalog) Lookup(filename string) (*model.PackageRecord, error) {
	snap, err := c.Current()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Lookup(filename)
	if !ok {
		return nil, errors.Wrapf(errors.ErrFileNotFound, "%s", filename)
	}
	return rec, nil
}

// CurrentGeneration returns the published snapshot's generation, or 0 when
// the catalog has never been initialized.
func (c *Catalog) CurrentGeneration() uint64 {
	if snap := c.current.Load(); snap != nil {
		return snap.Generation()
	}
	return 0
}

// ApplyFullScan replaces the current snapshot wholesale with one built
// from records. Duplicate raw filenames within the batch resolve last
// write wins. Returns the new generation.
func (c *Catalog) ApplyFullScan(records []*model.PackageRecord) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	files := make(map[string]*model.PackageRecord, len(records))
	for _, rec := range records {
		files[rec.RawFilename] = rec
	}
	snap := buildSnapshot(c.nextGeneration(), files)
	c.current.Store(snap)
	return snap.generation
}

// ApplyDelta publishes a new snapshot with added records inserted and
// removed filenames dropped, sharing everything untouched with the
// previous snapshot. It requires an initialized catalog.
func (c *Catalog) ApplyDelta(added []*model.PackageRecord, removed []string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	if prev == nil {
		return 0, errors.ErrNotInitialized
	}
	snap := prev.applyDelta(c.nextGeneration(), added, removed)
	c.current.Store(snap)
	return snap.generation, nil
}

// nextGeneration must be called with mu held.
func (c *Catalog) nextGeneration() uint64 {
	if prev := c.current.Load(); prev != nil {
		return prev.generation + 1
	}
	return 1
}
