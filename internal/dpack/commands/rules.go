package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dpack-io/dpack/internal/dpack/lib"
	"github.com/dpack-io/dpack/internal/dpack/types"
)

// Rules prints the compiled exclusion rule set for a directory in
// source order: built-in defaults first, then the ignore file, then
// user-supplied patterns. Useful for checking why a file was excluded.
func Rules(dir string, includeDotenv bool, extra []string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return &types.FilesystemError{Path: dir, Err: err}
	}
	if info, err := os.Stat(root); err != nil {
		return &types.FilesystemError{Path: root, Err: err}
	} else if !info.IsDir() {
		return &types.FilesystemError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	rules := lib.CompileRules(root, includeDotenv, extra)
	for _, pattern := range rules.Patterns() {
		fmt.Println(pattern)
	}
	return nil
}
