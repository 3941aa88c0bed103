package store

import "github.com/glorpus-work/pindex/pkg/model"

// Delta is the difference between two storage listings, keyed by filename.
// A file whose size or mtime changed shows up in Modified.
type Delta struct {
	Added    []model.FileInfo
	Removed  []string
	Modified []model.FileInfo
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Diff computes the delta from prev to cur. It is stateless: callers keep
// the previous listing themselves.
func Diff(prev, cur []model.FileInfo) Delta {
	prevByName := make(map[string]model.FileInfo, len(prev))
	for _, fi := range prev {
		prevByName[fi.Name] = fi
	}

	var delta Delta
	seen := make(map[string]struct{}, len(cur))
	for _, fi := range cur {
		seen[fi.Name] = struct{}{}
		old, ok := prevByName[fi.Name]
		switch {
		case !ok:
			delta.Added = append(delta.Added, fi)
		case old.Size != fi.Size || !old.ModTime.Equal(fi.ModTime):
			delta.Modified = append(delta.Modified, fi)
		}
	}
	for _, fi := range prev {
		if _, ok := seen[fi.Name]; !ok {
			delta.Removed = append(delta.Removed, fi.Name)
		}
	}
	return delta
}
