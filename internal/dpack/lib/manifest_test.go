package lib

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

func TestBuildManifestOrderIsStable(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b/two.txt":   "2",
		"a/one.txt":   "1",
		"c/three.txt": "3",
		"zzz.txt":     "z",
	})
	rules := CompileRules(root, false, nil)

	first, err := BuildManifest(root, rules)
	require.NoError(t, err)
	second, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, []string{"a/one.txt", "b/two.txt", "c/three.txt", "zzz.txt"}, first.Files)
}

func TestBuildManifestRegularFilesOnly(t *testing.T) {
	root := writeTree(t, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty-dir"), 0755))

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"real.txt"}, manifest.Files)
}

func TestBuildManifestMissingRoot(t *testing.T) {
	rules := CompileRules("/nonexistent", false, nil)
	_, err := BuildManifest("/nonexistent/definitely/missing", rules)

	var fsErr *types.FilesystemError
	require.ErrorAs(t, err, &fsErr)
}

func TestBuildManifestRootIsFile(t *testing.T) {
	root := writeTree(t, map[string]string{"file.txt": "x"})
	target := filepath.Join(root, "file.txt")

	_, err := BuildManifest(target, CompileRules(target, false, nil))

	var fsErr *types.FilesystemError
	require.ErrorAs(t, err, &fsErr)
}

func TestBuildManifestSkipsUnreadableSubtree(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := writeTree(t, map[string]string{
		"open/a.txt":   "a",
		"locked/b.txt": "b",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err, "unreadable subtree must be a soft failure")

	assert.Equal(t, []string{"open/a.txt"}, manifest.Files)
}

func TestManifestCompleteness(t *testing.T) {
	// Every non-excluded file appears exactly once; no omissions.
	files := map[string]string{
		"a.txt":         "a",
		"d1/b.txt":      "b",
		"d1/d2/c.txt":   "c",
		"d1/d2/d3/.env": "secret",
		".git/config":   "vcs",
	}
	root := writeTree(t, files)
	rules := CompileRules(root, false, nil)

	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, f := range manifest.Files {
		seen[f]++
		assert.Equal(t, 1, seen[f], "duplicate manifest entry %s", f)
		_, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		assert.NoError(t, statErr, "manifest entry %s does not exist", f)
	}
	assert.ElementsMatch(t, []string{"a.txt", "d1/b.txt", "d1/d2/c.txt"}, manifest.Files)
}

func TestFilesystemErrorUnwraps(t *testing.T) {
	_, err := BuildManifest("/nonexistent/slot", CompileRules("/nonexistent/slot", false, nil))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
