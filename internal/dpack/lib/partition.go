package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// Partitions enumerates the directories at exactly depth beneath root
// (not shallower, not deeper) and returns one partition per directory,
// in lexical order. Excluded directories are not descended into, so
// partitions never reach inside an excluded subtree. Partitions at the
// same depth are disjoint: each file belongs to at most one partition's
// subtree.
func Partitions(root string, depth int, rules *RuleSet) ([]types.Partition, error) {
	if depth < 1 {
		return nil, &types.ConfigError{Field: "sub-depth", Reason: "depth must be at least 1"}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &types.FilesystemError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &types.FilesystemError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	var partitions []types.Partition
	var walk func(dir string, remaining int) error
	walk = func(dir string, remaining int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return &types.FilesystemError{Path: dir, Err: err}
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if rules.Excluded(path) {
				continue
			}
			if remaining == 1 {
				partitions = append(partitions, types.Partition{
					Dir:   path,
					Depth: depth,
					Label: PartitionLabel(root, path),
				})
				continue
			}
			if err := walk(path, remaining-1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, depth); err != nil {
		return nil, err
	}
	return partitions, nil
}

// PartitionLabel derives the archive name stem for a partition from its
// path relative to the root, with path separators normalized to
// underscores so the label is safe in a filename.
func PartitionLabel(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = filepath.Base(dir)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}
