package catalog

import (
	"sort"

	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/pep503"
)

// Snapshot is an immutable point-in-time view of the catalog. Once built it
// is never mutated; readers hold one snapshot for the duration of a query
// and can never observe a half-updated index.
type Snapshot struct {
	generation uint64
	files      map[string]*model.PackageRecord
	byName     map[string][]*model.PackageRecord
	names      []string
}

// Generation identifies this snapshot; it increases monotonically with
// every published update.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Names returns the sorted normalized project names. The returned slice is
// shared and must not be modified.
func (s *Snapshot) Names() []string { return s.names }

// Project returns the release records for a project name (any spelling),
// in ascending version order. The returned slice is shared and must not be
// modified; nil means the project is absent.
func (s *Snapshot) Project(name string) []*model.PackageRecord {
	return s.byName[pep503.Normalize(name)]
}

// Lookup resolves a single file by its raw filename.
func (s *Snapshot) Lookup(filename string) (*model.PackageRecord, bool) {
	rec, ok := s.files[filename]
	return rec, ok
}

// Files returns every record, including unparsable ones, sorted by raw
// filename.
func (s *Snapshot) Files() []*model.PackageRecord {
	out := make([]*model.PackageRecord, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawFilename < out[j].RawFilename })
	return out
}

// Latest returns the version-maximal record for a project under the
// documented order (ties broken by lexically greatest raw filename).
func (s *Snapshot) Latest(name string) (*model.PackageRecord, bool) {
	bucket := s.byName[pep503.Normalize(name)]
	if len(bucket) == 0 {
		return nil, false
	}
	return bucket[len(bucket)-1], true
}

// buildSnapshot constructs a fresh snapshot from a complete file set.
// Records are shared with the caller, never copied.
func buildSnapshot(generation uint64, files map[string]*model.PackageRecord) *Snapshot {
	byName := make(map[string][]*model.PackageRecord)
	for _, rec := range files {
		if rec.Indexed() {
			byName[rec.NormalizedName] = append(byName[rec.NormalizedName], rec)
		}
	}
	names := make([]string, 0, len(byName))
	for name, bucket := range byName {
		sortBucket(bucket)
		names = append(names, name)
	}
	sort.Strings(names)
	return &Snapshot{
		generation: generation,
		files:      files,
		byName:     byName,
		names:      names,
	}
}

// applyDelta derives the next snapshot, rebuilding only the buckets touched
// by the delta and sharing every other bucket and record with prev.
func (s *Snapshot) applyDelta(generation uint64, added []*model.PackageRecord, removed []string) *Snapshot {
	files := make(map[string]*model.PackageRecord, len(s.files)+len(added))
	for name, rec := range s.files {
		files[name] = rec
	}

	touched := make(map[string]struct{})
	for _, filename := range removed {
		if old, ok := files[filename]; ok {
			if old.Indexed() {
				touched[old.NormalizedName] = struct{}{}
			}
			delete(files, filename)
		}
	}
	// last write wins within one batch
	for _, rec := range added {
		if old, ok := files[rec.RawFilename]; ok && old.Indexed() {
			touched[old.NormalizedName] = struct{}{}
		}
		files[rec.RawFilename] = rec
		if rec.Indexed() {
			touched[rec.NormalizedName] = struct{}{}
		}
	}

	byName := make(map[string][]*model.PackageRecord, len(s.byName))
	for name, bucket := range s.byName {
		if _, ok := touched[name]; !ok {
			byName[name] = bucket
		}
	}
	for name := range touched {
		var bucket []*model.PackageRecord
		for _, rec := range files {
			if rec.Indexed() && rec.NormalizedName == name {
				bucket = append(bucket, rec)
			}
		}
		if len(bucket) > 0 {
			sortBucket(bucket)
			byName[name] = bucket
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Snapshot{
		generation: generation,
		files:      files,
		byName:     byName,
		names:      names,
	}
}

func sortBucket(bucket []*model.PackageRecord) {
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].Compare(bucket[j]) < 0 })
}
