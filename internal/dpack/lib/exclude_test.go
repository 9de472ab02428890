package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates the given files (with parent directories) beneath a
// fresh temp root and returns the root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestDefaultExclusions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.py":          "print('a')",
		"node_modules/x.js": "x",
		".env":              "SECRET=1",
		".git/HEAD":         "ref: refs/heads/main",
	})

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.py"}, manifest.Files)
}

func TestIncludeDotenv(t *testing.T) {
	root := writeTree(t, map[string]string{
		".env":     "SECRET=1",
		"main.go":  "package main",
		".env.dev": "SECRET=2",
	})

	rules := CompileRules(root, true, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{".env", ".env.dev", "main.go"}, manifest.Files)
}

func TestIgnoreFilePatterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.txt":      "keep",
		"skip.log":      "skip",
		"logs/deep.log": "skip",
		"tmp/cache.dat": "skip",
	})
	ignoreFile := "# comment line\n\n*.log\ntmp/\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFilename), []byte(ignoreFile), 0644))

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.txt"}, manifest.Files)
}

func TestIgnoreFileItselfExcluded(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFilename), []byte("*.log\n"), 0644))

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, manifest.Files)
}

func TestExtraPatterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt": "a",
		"b.md":  "b",
	})

	rules := CompileRules(root, false, []string{"*.md"})
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, manifest.Files)
}

func TestDuplicatePatternsAreNoOps(t *testing.T) {
	root := t.TempDir()
	rules := CompileRules(root, false, []string{"*.md", "*.md", ".git"})

	patterns := rules.Patterns()
	counts := make(map[string]int)
	for _, p := range patterns {
		counts[p]++
	}
	for pattern, count := range counts {
		assert.Equal(t, 1, count, "pattern %q appears %d times", pattern, count)
	}
}

func TestNegationLinesDropped(t *testing.T) {
	root := writeTree(t, map[string]string{"important.log": "keep me"})
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFilename), []byte("*.log\n!important.log\n"), 0644))

	rules := CompileRules(root, false, nil)
	manifest, err := BuildManifest(root, rules)
	require.NoError(t, err)

	// Negation is unsupported: the ignore still applies.
	assert.Empty(t, manifest.Files)
	assert.NotContains(t, rules.Patterns(), "!important.log")
}

func TestPatternsPreserveSourceOrder(t *testing.T) {
	root := t.TempDir()
	rules := CompileRules(root, false, []string{"zzz", "aaa"})

	patterns := rules.Patterns()
	require.GreaterOrEqual(t, len(patterns), 2)
	// Built-in defaults come first, user patterns last, in given order.
	assert.Equal(t, ".git", patterns[0])
	assert.Equal(t, "aaa", patterns[len(patterns)-1])
	assert.Equal(t, "zzz", patterns[len(patterns)-2])
}
