package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

func TestPartitionsAtDepthOne(t *testing.T) {
	root := writeTree(t, map[string]string{
		"alpha/a.txt":       "a",
		"beta/b.txt":        "b",
		"beta/nested/c.txt": "c",
		"top.txt":           "top",
	})
	rules := CompileRules(root, false, nil)

	partitions, err := Partitions(root, 1, rules)
	require.NoError(t, err)

	require.Len(t, partitions, 2)
	assert.Equal(t, "alpha", partitions[0].Label)
	assert.Equal(t, "beta", partitions[1].Label)
}

func TestPartitionsAtDepthTwoOnly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/x/1.txt":   "1",
		"a/y/2.txt":   "2",
		"b/z/3.txt":   "3",
		"b/z/w/4.txt": "4", // depth 3, must not appear
		"shallow.txt": "s", // depth 0 file
	})
	rules := CompileRules(root, false, nil)

	partitions, err := Partitions(root, 2, rules)
	require.NoError(t, err)

	labels := make([]string, len(partitions))
	for i, p := range partitions {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"a_x", "a_y", "b_z"}, labels)
}

func TestPartitionsSkipExcludedDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/main.go":       "m",
		"node_modules/x.js": "x",
		".git/HEAD":         "h",
	})
	rules := CompileRules(root, false, nil)

	partitions, err := Partitions(root, 1, rules)
	require.NoError(t, err)

	require.Len(t, partitions, 1)
	assert.Equal(t, "src", partitions[0].Label)
}

func TestPartitionManifestsAreDisjointAndComplete(t *testing.T) {
	// The union of per-partition manifests equals the whole-subtree
	// manifest below the partition depth: no overlap, no gaps.
	root := writeTree(t, map[string]string{
		"p1/a.txt":       "a",
		"p1/sub/b.txt":   "b",
		"p2/c.txt":       "c",
		"p3/deep/d.txt":  "d",
		"root-level.txt": "r", // above depth, not covered by partitions
	})
	rules := CompileRules(root, false, nil)

	partitions, err := Partitions(root, 1, rules)
	require.NoError(t, err)
	require.Len(t, partitions, 3)

	seen := make(map[string]bool)
	for _, partition := range partitions {
		manifest, err := BuildManifest(partition.Dir, rules)
		require.NoError(t, err)
		for _, f := range manifest.Files {
			full := partition.Label + "/" + f
			assert.False(t, seen[full], "file %s archived twice", full)
			seen[full] = true
		}
	}
	assert.Equal(t, map[string]bool{
		"p1/a.txt":      true,
		"p1/sub/b.txt":  true,
		"p2/c.txt":      true,
		"p3/deep/d.txt": true,
	}, seen)
}

func TestPartitionsInvalidDepth(t *testing.T) {
	root := t.TempDir()
	rules := CompileRules(root, false, nil)

	var cfgErr *types.ConfigError
	_, err := Partitions(root, 0, rules)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPartitionsMissingRoot(t *testing.T) {
	rules := CompileRules("/nonexistent", false, nil)

	var fsErr *types.FilesystemError
	_, err := Partitions("/nonexistent/tree", 1, rules)
	assert.ErrorAs(t, err, &fsErr)
}

func TestPartitionLabelNormalizesSeparators(t *testing.T) {
	assert.Equal(t, "a_b_c", PartitionLabel("/root", "/root/a/b/c"))
}
