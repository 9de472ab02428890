package lib

import (
	"archive/tar"
	stdzip "archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	yekazip "github.com/yeka/zip"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// StampLayout is the timestamp embedded in archive names.
const StampLayout = "20060102_150405"

// DefaultPrefix is the archive name prefix when the operator supplies
// none.
const DefaultPrefix = "dpack"

// ArchiveName builds the destination filename for a job:
// <stem>_<timestamp><ext>.
func ArchiveName(stem, stamp string, format types.Format) string {
	return stem + "_" + stamp + format.Extension()
}

// Pipeline is a constructed, not-yet-executed archive-creation plan.
// Construction never touches the filesystem; Run performs all I/O, so
// dry-run mode can describe a pipeline without side effects.
type Pipeline interface {
	// Name is the stage name reported in execution errors.
	Name() string
	// Describe returns one line per stage for dry-run output.
	Describe() []string
	// Run executes the pipeline and writes the destination archive.
	// A partial destination file is removed on failure.
	Run() error
}

// NewPipeline maps a job's format onto the concrete pipeline. Unknown
// formats cannot reach this point: format strings are validated at the
// CLI boundary.
func NewPipeline(job *types.Job) Pipeline {
	switch job.Format {
	case types.FormatZip:
		return &zipPipeline{job: job}
	case types.Format7z:
		return &sevenZipPipeline{job: job}
	default:
		return &tarPipeline{job: job}
	}
}

// tarPipeline streams the manifested files into a single tar stream,
// compressed at the requested level, with an optional standalone age
// encryption stage between the compressor and the destination file.
type tarPipeline struct {
	job *types.Job
}

func (p *tarPipeline) Name() string {
	if p.job.Format == types.FormatTarZst {
		return "tar+zstd"
	}
	return "tar+gzip"
}

func (p *tarPipeline) Describe() []string {
	lines := []string{
		fmt.Sprintf("manifest: %d files from %s", len(p.job.Manifest.Files), p.job.Root),
		"stage: tar stream",
		fmt.Sprintf("stage: %s level %s", compressorName(p.job.Format), p.job.Level),
	}
	if p.job.Password != "" {
		lines = append(lines, "stage: age scrypt encryption")
	}
	return append(lines, "write: "+p.job.Dest)
}

func (p *tarPipeline) Run() error {
	if err := os.MkdirAll(filepath.Dir(p.job.Dest), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.Create(p.job.Dest)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	err = p.write(out)
	if err != nil {
		out.Close()
		os.Remove(p.job.Dest)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(p.job.Dest)
		return fmt.Errorf("syncing archive file: %w", err)
	}
	return out.Close()
}

// write chains the stages onto dst and streams every manifest entry
// through them. Close order is the reverse of construction so each
// stage can flush into the next.
func (p *tarPipeline) write(dst io.Writer) error {
	var encrypter io.WriteCloser
	if p.job.Password != "" {
		var err error
		encrypter, err = EncryptWriter(dst, p.job.Password)
		if err != nil {
			return err
		}
		dst = encrypter
	}

	compressor, err := newCompressor(dst, p.job.Format, p.job.Level)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(compressor)
	for _, rel := range p.job.Manifest.Files {
		if err := addTarEntry(tw, p.job.Root, rel); err != nil {
			tw.Close()
			compressor.Close()
			if encrypter != nil {
				encrypter.Close()
			}
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finalizing %s stream: %w", compressorName(p.job.Format), err)
	}
	if encrypter != nil {
		if err := encrypter.Close(); err != nil {
			return fmt.Errorf("finalizing encryption: %w", err)
		}
	}
	return nil
}

func addTarEntry(tw *tar.Writer, root, rel string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", rel, err)
	}
	header.Name = rel

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("writing tar header for %s: %w", rel, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	_, err = io.Copy(tw, file)
	file.Close()
	if err != nil {
		return fmt.Errorf("archiving %s: %w", rel, err)
	}
	return nil
}

func compressorName(format types.Format) string {
	if format == types.FormatTarZst {
		return "zstd"
	}
	return "gzip"
}

// zipPipeline writes the manifested files into a zip archive. When a
// password is set, entries are encrypted with the archiver's native
// AES-256 support: the native path removes the standalone cipher
// stage, which is the intended asymmetry with tar-based formats.
//
// Plain zips are written with the standard library writer so the
// compression level can be honored via a per-writer deflate
// registration. The encrypted path uses the yeka/zip fork, whose
// writer has no per-writer compressor hook and always deflates
// encrypted entries at the library's default level.
type zipPipeline struct {
	job *types.Job
}

func (p *zipPipeline) Name() string { return "zip" }

func (p *zipPipeline) Describe() []string {
	var stage string
	switch {
	case p.job.Password != "":
		stage = "stage: zip AES-256 entries (deflate, fixed level)"
	case p.job.Level == types.LevelNone:
		stage = "stage: zip store"
	default:
		stage = fmt.Sprintf("stage: zip deflate level %s", p.job.Level)
	}
	return []string{
		fmt.Sprintf("manifest: %d files from %s", len(p.job.Manifest.Files), p.job.Root),
		stage,
		"write: " + p.job.Dest,
	}
}

func (p *zipPipeline) Run() error {
	if err := os.MkdirAll(filepath.Dir(p.job.Dest), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.Create(p.job.Dest)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	err = p.write(out)
	if err != nil {
		out.Close()
		os.Remove(p.job.Dest)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(p.job.Dest)
		return fmt.Errorf("syncing archive file: %w", err)
	}
	return out.Close()
}

func (p *zipPipeline) write(out io.Writer) error {
	if p.job.Password != "" {
		return p.writeEncrypted(out)
	}
	return p.writePlain(out)
}

func (p *zipPipeline) writePlain(out io.Writer) error {
	zw := stdzip.NewWriter(out)
	if p.job.Level != types.LevelNone {
		level := p.job.Level.Numeric()
		zw.RegisterCompressor(stdzip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		})
	}

	method := uint16(stdzip.Deflate)
	if p.job.Level == types.LevelNone {
		method = stdzip.Store
	}
	for _, rel := range p.job.Manifest.Files {
		path := filepath.Join(p.job.Root, filepath.FromSlash(rel))
		file, err := os.Open(path)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", rel, err)
		}
		header := &stdzip.FileHeader{Name: rel, Method: method}
		if info, statErr := file.Stat(); statErr == nil {
			header.Modified = info.ModTime()
		}
		entry, err := zw.CreateHeader(header)
		if err == nil {
			_, err = io.Copy(entry, file)
		}
		file.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("zip entry for %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing zip archive: %w", err)
	}
	return nil
}

func (p *zipPipeline) writeEncrypted(out io.Writer) error {
	zw := yekazip.NewWriter(out)
	for _, rel := range p.job.Manifest.Files {
		path := filepath.Join(p.job.Root, filepath.FromSlash(rel))
		file, err := os.Open(path)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", rel, err)
		}
		entry, err := zw.Encrypt(rel, p.job.Password, yekazip.AES256Encryption)
		if err == nil {
			_, err = io.Copy(entry, file)
		}
		file.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("zip entry for %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing zip archive: %w", err)
	}
	return nil
}

// sevenZipPipeline shells out to the external 7z tool with an
// archive-from-filelist invocation. It sits behind the same Pipeline
// interface as the native writers, so swapping in a native library
// later does not change the dispatcher.
type sevenZipPipeline struct {
	job *types.Job
}

func (p *sevenZipPipeline) Name() string { return "7z" }

func (p *sevenZipPipeline) args(listfile string) []string {
	args := []string{"a", "-t7z", fmt.Sprintf("-mx=%d", p.job.Level.Numeric()), "-y"}
	if p.job.Password != "" {
		args = append(args, "-p"+p.job.Password, "-mhe=on")
	}
	return append(args, p.job.Dest, "@"+listfile)
}

func (p *sevenZipPipeline) Describe() []string {
	// Render the command with placeholders: the listfile does not
	// exist yet and the password must not be shown.
	shown := p.args("<filelist>")
	for i, a := range shown {
		if strings.HasPrefix(a, "-p") && len(a) > 2 {
			shown[i] = "-p<password>"
		}
	}
	return []string{
		fmt.Sprintf("manifest: %d files from %s", len(p.job.Manifest.Files), p.job.Root),
		"exec: 7z " + strings.Join(shown, " "),
	}
}

func (p *sevenZipPipeline) Run() error {
	dest, err := filepath.Abs(p.job.Dest)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}
	p.job.Dest = dest
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	// The filelist is scoped to this job and removed after use.
	listing, err := os.CreateTemp("", "dpack-filelist-*.txt")
	if err != nil {
		return fmt.Errorf("creating filelist: %w", err)
	}
	defer os.Remove(listing.Name())
	for _, rel := range p.job.Manifest.Files {
		if _, err := fmt.Fprintln(listing, filepath.FromSlash(rel)); err != nil {
			listing.Close()
			return fmt.Errorf("writing filelist: %w", err)
		}
	}
	if err := listing.Close(); err != nil {
		return fmt.Errorf("writing filelist: %w", err)
	}

	cmd := exec.Command("7z", p.args(listing.Name())...)
	cmd.Dir = p.job.Root
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("7z failed: %w: %s", err, lastLines(output, 5))
	}
	return nil
}

// lastLines returns the trailing n lines of subprocess output for
// error reporting.
func lastLines(output []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " / ")
}
