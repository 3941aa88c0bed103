package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/glorpus-work/pindex/pkg/model"
)

func fileInfo(name string, size int64, mtime time.Time) model.FileInfo {
	return model.FileInfo{Name: name, Path: name, Size: size, ModTime: mtime}
}

func TestDiff(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	prev := []model.FileInfo{
		fileInfo("demo-1.0.tar.gz", 100, base),
		fileInfo("demo-1.1.tar.gz", 200, base),
		fileInfo("gone-0.1.zip", 50, base),
	}
	cur := []model.FileInfo{
		fileInfo("demo-1.0.tar.gz", 100, base),
		fileInfo("demo-1.1.tar.gz", 200, base.Add(time.Minute)),
		fileInfo("new-2.0.tar.gz", 300, base),
	}

	delta := Diff(prev, cur)
	assert.Len(t, delta.Added, 1)
	assert.Equal(t, "new-2.0.tar.gz", delta.Added[0].Name)
	assert.Equal(t, []string{"gone-0.1.zip"}, delta.Removed)
	assert.Len(t, delta.Modified, 1)
	assert.Equal(t, "demo-1.1.tar.gz", delta.Modified[0].Name)
	assert.False(t, delta.Empty())
}

func TestDiffNoChange(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	listing := []model.FileInfo{fileInfo("demo-1.0.tar.gz", 100, base)}
	assert.True(t, Diff(listing, listing).Empty())
}

func TestDiffFromEmpty(t *testing.T) {
	base := time.Now()
	cur := []model.FileInfo{fileInfo("demo-1.0.tar.gz", 100, base)}

	delta := Diff(nil, cur)
	assert.Len(t, delta.Added, 1)
	assert.Empty(t, delta.Removed)

	delta = Diff(cur, nil)
	assert.Empty(t, delta.Added)
	assert.Equal(t, []string{"demo-1.0.tar.gz"}, delta.Removed)
}
