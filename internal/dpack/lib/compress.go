package lib

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// newCompressor returns the compression writer for a tar-based format
// at the requested level. The caller must Close the writer to flush it.
func newCompressor(w io.Writer, format types.Format, level types.Level) (io.WriteCloser, error) {
	switch format {
	case types.FormatTarGz:
		zw, err := gzip.NewWriterLevel(w, level.Numeric())
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return zw, nil
	case types.FormatTarZst:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("format %s has no stream compressor", format)
	}
}

// zstdLevel maps the level scale onto zstd's named encoder levels.
// zstd has no store mode, so "none" degrades to the fastest level.
func zstdLevel(level types.Level) zstd.EncoderLevel {
	switch level {
	case types.LevelNone, types.LevelMin:
		return zstd.SpeedFastest
	case types.LevelMax:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
