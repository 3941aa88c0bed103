package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// idempotent
	assert.NoError(t, EnsureDir(dir))
	assert.Error(t, EnsureDir(""))
}

func TestAtomicWrite(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "pkgs", "demo-1.0.tar.gz")

	n, err := AtomicWrite(dst, strings.NewReader("archive bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// overwrite replaces content wholesale
	_, err = AtomicWrite(dst, strings.NewReader("v2"))
	require.NoError(t, err)
	data, _ = os.ReadFile(dst)
	assert.Equal(t, "v2", string(data))
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	got, err := SafeJoin(root, "demo-1.0.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "demo-1.0.tar.gz"), got)

	got, err = SafeJoin(root, "sub/demo-1.0.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "demo-1.0.tar.gz"), got)

	for _, bad := range []string{"", "../escape.tar.gz", "sub/../../escape"} {
		_, err := SafeJoin(root, bad)
		assert.Error(t, err, "name %q", bad)
	}
}
