package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// BuildManifest walks the tree rooted at root and returns the ordered
// list of regular files that match none of the exclusion rules. Paths
// in the manifest are relative to root with forward slashes; the order
// is WalkDir's lexical traversal order, so an unchanged tree always
// yields the same manifest.
//
// A missing or non-directory root is a fatal FilesystemError. A
// permission-denied subtree encountered mid-walk is skipped and the
// walk continues.
func BuildManifest(root string, rules *RuleSet) (*types.Manifest, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &types.FilesystemError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &types.FilesystemError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	manifest := &types.Manifest{Root: root}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				// Unreadable subtree: soft failure, keep walking.
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}
		if rules.Excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			manifest.Files = append(manifest.Files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, &types.FilesystemError{Path: root, Err: err}
	}
	return manifest, nil
}
