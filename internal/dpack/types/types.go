// Package types defines the data model shared by the dpack packages:
// archive formats, compression levels, the run configuration, and the
// job/plan structures handed between the pipeline stages.
package types

import "fmt"

// Format identifies the archive container a job produces.
type Format int

const (
	// FormatTarGz is a tar stream compressed with gzip (.tar.gz).
	FormatTarGz Format = iota
	// FormatTarZst is a tar stream compressed with zstandard (.tar.zst).
	FormatTarZst
	// FormatZip is a zip archive with deflate-compressed entries (.zip).
	FormatZip
	// Format7z is a 7-Zip archive produced by the external 7z tool (.7z).
	Format7z
)

// String returns the canonical name of a format.
func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "targz"
	case FormatTarZst:
		return "tarzst"
	case FormatZip:
		return "zip"
	case Format7z:
		return "7z"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Extension returns the destination filename extension for a format,
// including the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatTarZst:
		return ".tar.zst"
	case FormatZip:
		return ".zip"
	case Format7z:
		return ".7z"
	default:
		return ".tar.gz"
	}
}

// Tar reports whether the format is a tar-based stream. Tar-based
// formats take the standalone encryption stage; zip and 7z use the
// archiver's native password support instead.
func (f Format) Tar() bool {
	return f == FormatTarGz || f == FormatTarZst
}

// ParseFormat parses a format name as accepted on the command line.
// "gzip" is an alias for targz: a bare gzip stream cannot hold a
// multi-file manifest, so both names build the same pipeline.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "targz", "tar.gz", "tgz", "gzip", "gz":
		return FormatTarGz, nil
	case "tarzst", "tar.zst", "zstd", "zst":
		return FormatTarZst, nil
	case "zip":
		return FormatZip, nil
	case "7z", "7zip":
		return Format7z, nil
	default:
		return 0, &ConfigError{Field: "format", Reason: fmt.Sprintf("unknown format %q", name)}
	}
}

// Level is the requested compression effort.
type Level int

const (
	LevelNone Level = iota
	LevelMin
	LevelNormal
	LevelMax
)

// String returns the name of a compression level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelMin:
		return "min"
	case LevelNormal:
		return "normal"
	case LevelMax:
		return "max"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// Numeric maps the level onto the 0/1/6/9 scale understood by gzip,
// deflate and 7z.
func (l Level) Numeric() int {
	switch l {
	case LevelNone:
		return 0
	case LevelMin:
		return 1
	case LevelMax:
		return 9
	default:
		return 6
	}
}

// ParseLevel parses a compression level name.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "none", "store":
		return LevelNone, nil
	case "min", "fast":
		return LevelMin, nil
	case "normal", "default":
		return LevelNormal, nil
	case "max", "maximum", "best":
		return LevelMax, nil
	default:
		return 0, &ConfigError{Field: "level", Reason: fmt.Sprintf("unknown compression level %q", name)}
	}
}

// Config is the full, immutable configuration for one run. It is built
// once by the CLI layer (flags merged over the optional .dpack.yaml
// defaults) and threaded explicitly through every component.
type Config struct {
	// Root is the directory to archive.
	Root string
	// OutputDir receives the archive file(s). Empty means the current
	// working directory.
	OutputDir string
	// Prefix is the archive name prefix for whole-tree mode. Empty
	// means the default prefix; "@root" means the root's base name.
	Prefix string

	Format Format
	Level  Level

	// Encrypt enables the encryption stage. Off by default; the
	// operator is prompted for a password (with confirmation) before
	// any pipeline is constructed.
	Encrypt bool
	// IncludeDotenv keeps .env files in the manifest instead of
	// excluding them by default.
	IncludeDotenv bool
	// Exclude holds extra user-supplied exclusion patterns.
	Exclude []string

	// SplitSize, when > 0, splits the finished archive into chunks of
	// at most this many bytes. Mutually exclusive with SplitParts.
	SplitSize int64
	// SplitParts, when > 0, splits the finished archive into this many
	// chunks of size ceil(total/parts).
	SplitParts int
	// SubDepth, when > 0, archives each subdirectory found at exactly
	// this depth below the root instead of the whole tree.
	SubDepth int

	// DryRun reports what would be executed without touching the
	// filesystem.
	DryRun bool
}

// Manifest is the ordered list of files selected for one archive. Paths
// are relative to Root and use forward slashes. The order is the
// traversal order and is stable for an unchanged tree, which keeps
// generated archives reproducible.
type Manifest struct {
	Root  string
	Files []string
}

// Empty reports whether the manifest selected no files.
func (m *Manifest) Empty() bool { return len(m.Files) == 0 }

// Job describes one archive to produce: the manifest, where it goes,
// and how it is compressed and encrypted. A job owns its manifest and
// destination exclusively until it completes or fails.
type Job struct {
	Root   string
	Format Format
	Level  Level
	// Manifest is consumed exactly once by the pipeline.
	Manifest *Manifest
	// Dest is the destination archive path, unique per run.
	Dest string
	// Password enables encryption when non-empty. Tar-based formats
	// get a standalone cipher stage; zip and 7z use native entry
	// encryption.
	Password string
	// Label names the job in logs and errors: the prefix in whole-tree
	// mode, the partition label in sub-archive mode.
	Label string
}

// SplitPlan describes the post-processing split of a completed archive.
type SplitPlan struct {
	// Archive is the path of the completed, non-empty archive.
	Archive string
	// ChunkSize is the maximum chunk size in bytes. When the plan was
	// requested as a part count the size is ceil(total/parts).
	ChunkSize int64
}

// Partition is one subdirectory-scoped archive target in sub-archive
// mode. Partitions at the same depth are disjoint.
type Partition struct {
	// Dir is the absolute path of the subdirectory.
	Dir string
	// Depth is the configured enumeration depth.
	Depth int
	// Label is the archive name stem, derived from the subdirectory's
	// relative path with separators normalized to underscores.
	Label string
}
