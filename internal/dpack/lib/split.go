package lib

import (
	"fmt"
	"io"
	"os"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// PlanSplitParts derives a split plan for a completed archive from a
// requested part count: the chunk size is ceil(total/parts), so every
// chunk but the last is full and the last holds the remainder.
func PlanSplitParts(archive string, parts int) (*types.SplitPlan, error) {
	if parts < 1 {
		return nil, &types.ConfigError{Field: "split-parts", Reason: "part count must be at least 1"}
	}
	size, err := archiveSize(archive)
	if err != nil {
		return nil, err
	}
	chunk := (size + int64(parts) - 1) / int64(parts)
	return &types.SplitPlan{Archive: archive, ChunkSize: chunk}, nil
}

// PlanSplitSize derives a split plan from an explicit maximum chunk
// size in bytes.
func PlanSplitSize(archive string, chunkSize int64) (*types.SplitPlan, error) {
	if chunkSize < 1 {
		return nil, &types.ConfigError{Field: "split-size", Reason: "chunk size must be at least 1 byte"}
	}
	if _, err := archiveSize(archive); err != nil {
		return nil, err
	}
	return &types.SplitPlan{Archive: archive, ChunkSize: chunkSize}, nil
}

// archiveSize verifies the archive still exists and is non-empty. A
// plan is only ever constructed from a completed archive, so a missing
// file here means it disappeared between creation and splitting.
func archiveSize(archive string) (int64, error) {
	info, err := os.Stat(archive)
	if err != nil {
		return 0, fmt.Errorf("split: archive %s: %w", archive, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("split: archive %s is empty", archive)
	}
	return info.Size(), nil
}

// Split writes the plan's archive into sequentially numbered chunk
// files (<archive>_part_000, _001, ...) whose concatenation reproduces
// the archive byte-for-byte. The original archive is kept.
func Split(plan *types.SplitPlan) ([]string, error) {
	source, err := os.Open(plan.Archive)
	if err != nil {
		return nil, fmt.Errorf("split: archive %s: %w", plan.Archive, err)
	}
	defer source.Close()

	var chunks []string
	for index := 0; ; index++ {
		name := fmt.Sprintf("%s_part_%03d", plan.Archive, index)
		written, err := writeChunk(name, source, plan.ChunkSize)
		if err != nil {
			return nil, err
		}
		if written == 0 {
			// Source exhausted on a chunk boundary.
			os.Remove(name)
			break
		}
		chunks = append(chunks, name)
		if written < plan.ChunkSize {
			break
		}
	}
	return chunks, nil
}

func writeChunk(name string, source io.Reader, size int64) (int64, error) {
	out, err := os.Create(name)
	if err != nil {
		return 0, fmt.Errorf("split: creating chunk %s: %w", name, err)
	}
	written, err := io.CopyN(out, source, size)
	if err != nil && err != io.EOF {
		out.Close()
		os.Remove(name)
		return 0, fmt.Errorf("split: writing chunk %s: %w", name, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return 0, fmt.Errorf("split: syncing chunk %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("split: closing chunk %s: %w", name, err)
	}
	return written, nil
}
