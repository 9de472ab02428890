// Package lib contains the core, reusable services for the dpack
// application: exclusion rule compilation, manifest building, the
// archive pipelines, splitting and partitioning.
package lib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/denormal/go-gitignore"
)

// IgnoreFilename is the name of the per-tree file holding user-defined
// exclusion patterns.
const IgnoreFilename = ".dpackignore"

// defaultPatterns are the exclusions applied to every run: version
// control metadata, dependency and package directories across common
// ecosystems, build output, and OS-generated metadata files. Bare names
// match files and directories at any depth.
var defaultPatterns = []string{
	// Version control.
	".git",
	".hg",
	".svn",
	// Dependency / package / cache directories.
	"node_modules",
	"vendor",
	".venv",
	"venv",
	"__pycache__",
	".tox",
	".mypy_cache",
	".pytest_cache",
	// Build output.
	"target",
	"dist",
	"build",
	// OS metadata.
	".DS_Store",
	"Thumbs.db",
	// The tool's own files.
	IgnoreFilename,
	ConfigFilename,
}

// dotenvPatterns exclude environment files holding secrets. Applied
// unless the operator opts in with --include-dotenv.
var dotenvPatterns = []string{
	".env",
	".env.*",
}

// RuleSet is the compiled, immutable exclusion rule set for one run.
// Patterns are deduplicated but their source order is preserved so
// diagnostics can show where a rule came from. Any match excludes.
type RuleSet struct {
	root     string
	patterns []string
	matcher  gitignore.GitIgnore
}

// CompileRules builds the rule set for root from the built-in defaults,
// the ignore file in root (if present), and extra user-supplied
// patterns, in that order. An absent ignore file is not an error.
//
// Patterns use gitignore glob syntax with one documented limitation:
// negation ("!pattern") is not supported and such lines are dropped.
func CompileRules(root string, includeDotenv bool, extra []string) *RuleSet {
	raw := make([]string, 0, len(defaultPatterns)+len(extra)+8)
	raw = append(raw, defaultPatterns...)
	if !includeDotenv {
		raw = append(raw, dotenvPatterns...)
	}

	if content, err := os.ReadFile(filepath.Join(root, IgnoreFilename)); err == nil {
		raw = append(raw, strings.Split(string(content), "\n")...)
	}
	raw = append(raw, extra...)

	seen := make(map[string]bool, len(raw))
	var patterns []string
	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		// Negation is unsupported: dropping the line is safer than
		// treating it as a literal pattern.
		if strings.HasPrefix(trimmed, "!") {
			continue
		}
		trimmed = strings.ReplaceAll(trimmed, "\\", "/")
		// Directory patterns become globs so the matcher excludes the
		// whole subtree, not just the directory entry.
		if strings.HasSuffix(trimmed, "/") && !strings.HasSuffix(trimmed, "**/") {
			trimmed += "**"
		}
		if seen[trimmed] {
			// Duplicate patterns are no-ops.
			continue
		}
		seen[trimmed] = true
		patterns = append(patterns, trimmed)
	}

	matcher := gitignore.New(
		strings.NewReader(strings.Join(patterns, "\n")),
		root,
		func(err gitignore.Error) bool { return false },
	)
	if matcher == nil {
		matcher = gitignore.New(strings.NewReader(""), root, nil)
	}

	return &RuleSet{root: root, patterns: patterns, matcher: matcher}
}

// Patterns returns the compiled patterns in source order.
func (r *RuleSet) Patterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Root returns the tree root the rules were compiled for.
func (r *RuleSet) Root() string { return r.root }

// Excluded reports whether the absolute path should be excluded from
// the archive. The matcher expects forward-slash relative paths; if the
// relative form fails to match, the absolute path is tried as well.
func (r *RuleSet) Excluded(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		// If the path cannot be made relative it is safest to keep it.
		return false
	}
	match := r.matcher.Match(filepath.ToSlash(rel))
	if match == nil {
		match = r.matcher.Match(path)
	}
	if match == nil {
		return false
	}
	return match.Ignore()
}
