package refresh

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/hook"
	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/store"
	"github.com/glorpus-work/pindex/pkg/store/mocks"
)

func listing(names ...string) []model.FileInfo {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	files := make([]model.FileInfo, 0, len(names))
	for i, name := range names {
		files = append(files, model.FileInfo{
			Name:    name,
			Path:    name,
			Size:    int64(100 + i),
			ModTime: base,
		})
	}
	return files
}

func TestBootstrapFullScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz", "demo-1.1.tar.gz"), nil)

	cat := catalog.New()
	r := New(cat, storage, nil, Options{})

	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Equal(t, uint64(1), cat.CurrentGeneration())

	names, err := cat.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)
}

func TestBootstrapScanFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(nil, errors.ErrStorageRoot)

	r := New(catalog.New(), storage, nil, Options{})
	assert.ErrorIs(t, r.Bootstrap(context.Background()), errors.ErrStorageRoot)
}

func TestNotifyAddedAndRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz"), nil)
	storage.EXPECT().Stat(gomock.Any(), "demo-1.1.tar.gz").
		Return(listing("demo-1.1.tar.gz")[0], nil)

	cat := catalog.New()
	r := New(cat, storage, nil, Options{})
	require.NoError(t, r.Bootstrap(context.Background()))
	gen := cat.CurrentGeneration()

	require.NoError(t, r.Notify(context.Background(), "demo-1.1.tar.gz", ActionAdded))
	assert.Greater(t, cat.CurrentGeneration(), gen)

	releases, err := cat.Query("demo")
	require.NoError(t, err)
	assert.Len(t, releases, 2)

	require.NoError(t, r.Notify(context.Background(), "demo-1.1.tar.gz", ActionRemoved))
	releases, err = cat.Query("demo")
	require.NoError(t, err)
	assert.Len(t, releases, 1)
	assert.Equal(t, "demo-1.0.tar.gz", releases[0].RawFilename)
}

func TestNotifyAddedVanishedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz"), nil)
	storage.EXPECT().Stat(gomock.Any(), "demo-1.0.tar.gz").
		Return(model.FileInfo{}, errors.ErrFileNotFound)

	cat := catalog.New()
	r := New(cat, storage, nil, Options{})
	require.NoError(t, r.Bootstrap(context.Background()))

	// the add notification races a deletion: resolved as removal
	require.NoError(t, r.Notify(context.Background(), "demo-1.0.tar.gz", ActionAdded))
	releases, err := cat.Query("demo")
	require.NoError(t, err)
	assert.Empty(t, releases)
}

func TestNotifyUnknownAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(nil, nil)

	r := New(catalog.New(), storage, nil, Options{})
	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Error(t, r.Notify(context.Background(), "x.tar.gz", "renamed"))
}

func TestRefreshIfNeededCoalesces(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)

	release := make(chan struct{})
	started := make(chan struct{})
	first := storage.EXPECT().List(gomock.Any()).DoAndReturn(
		func(context.Context) ([]model.FileInfo, error) {
			close(started)
			<-release
			return listing("demo-1.0.tar.gz"), nil
		})
	storage.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz"), nil).After(first)

	cat := catalog.New()
	r := New(cat, storage, nil, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, r.RefreshIfNeeded(context.Background()))
	}()

	<-started
	// a second request while the first is mid-scan coalesces: no extra List
	assert.NoError(t, r.RefreshIfNeeded(context.Background()))
	close(release)
	wg.Wait()

	// once idle again, a new request scans again
	assert.NoError(t, r.RefreshIfNeeded(context.Background()))
	assert.Equal(t, uint64(2), cat.CurrentGeneration())
}

func TestManifestPersistence(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "state", "manifest.json")

	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz"), nil)

	r := New(catalog.New(), storage, nil, Options{ManifestPath: manifestPath})
	require.NoError(t, r.Bootstrap(context.Background()))

	m, err := store.LoadManifest(manifestPath)
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "demo-1.0.tar.gz", m.Files[0].Name)

	// a second run picks the manifest back up as its previous listing
	storage2 := mocks.NewMockStorage(ctrl)
	storage2.EXPECT().List(gomock.Any()).Return(listing("demo-1.0.tar.gz", "demo-1.1.tar.gz"), nil)
	r2 := New(catalog.New(), storage2, nil, Options{ManifestPath: manifestPath})
	require.NoError(t, r2.Bootstrap(context.Background()))
}

func TestBootstrapWithRealStorage(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"demo-1.0.tar.gz", "demo-1.1.tar.gz", "demo-2.0a1-py3-none-any.whl"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("pkg"), 0o644))
	}

	cat := catalog.New()
	r := New(cat, store.NewDir(root, false), nil, Options{})
	require.NoError(t, r.Bootstrap(context.Background()))

	names, err := cat.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)

	latest, err := cat.Latest("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo-2.0a1-py3-none-any.whl", latest.RawFilename)
}

func TestHooksFired(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().List(gomock.Any()).Return(nil, nil)
	storage.EXPECT().Stat(gomock.Any(), "demo-1.0.tar.gz").
		Return(listing("demo-1.0.tar.gz")[0], nil)

	marker := filepath.Join(t.TempDir(), "fired")
	hooks := hook.NewManager()
	require.NoError(t, hooks.AddHook(hook.Hook{
		Event:   hook.PackageAdded,
		Content: `os := import("os"); f := os.create("` + filepath.ToSlash(marker) + `"); f.close()`,
	}))

	cat := catalog.New()
	r := New(cat, storage, hooks, Options{})
	require.NoError(t, r.Bootstrap(context.Background()))
	require.NoError(t, r.Notify(context.Background(), "demo-1.0.tar.gz", ActionAdded))

	_, err := os.Stat(marker)
	assert.NoError(t, err, "package-added hook should have created the marker file")
}
