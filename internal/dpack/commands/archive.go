package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dpack-io/dpack/internal/dpack/lib"
	"github.com/dpack-io/dpack/internal/dpack/types"
)

// progressInterval is the fixed interval at which a running pipeline
// reports progress.
const progressInterval = time.Second

// Archive is the main entry point for the 'archive' command. It
// compiles the exclusion rules, builds the manifest(s), constructs one
// pipeline per archive target and executes them, honoring dry-run mode
// throughout.
func Archive(cfg types.Config) error {
	if err := validate(&cfg); err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return &types.FilesystemError{Path: cfg.Root, Err: err}
	}
	if info, err := os.Stat(root); err != nil {
		return &types.FilesystemError{Path: root, Err: err}
	} else if !info.IsDir() {
		return &types.FilesystemError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	logger := NewLogger().With("command", "archive", "root", root)

	// Password verification is pre-execution: a mismatch aborts before
	// any pipeline is constructed, with zero on-disk side effects.
	var password string
	if cfg.Encrypt {
		password, err = lib.PromptPassword()
		if err != nil {
			return err
		}
	}

	rules := lib.CompileRules(root, cfg.IncludeDotenv, cfg.Exclude)
	stamp := time.Now().Format(lib.StampLayout)
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = "."
	}

	if cfg.SubDepth > 0 {
		return archivePartitions(logger, cfg, root, rules, password, stamp, outDir)
	}
	return archiveTree(logger, cfg, root, rules, password, stamp, outDir)
}

// validate rejects contradictory configuration before anything runs.
func validate(cfg *types.Config) error {
	if cfg.SplitSize > 0 && cfg.SplitParts > 0 {
		return &types.ConfigError{Field: "split", Reason: "split-size and split-parts are mutually exclusive"}
	}
	if cfg.SplitSize < 0 {
		return &types.ConfigError{Field: "split-size", Reason: "chunk size must be positive"}
	}
	if cfg.SplitParts < 0 {
		return &types.ConfigError{Field: "split-parts", Reason: "part count must be positive"}
	}
	if cfg.SubDepth < 0 {
		return &types.ConfigError{Field: "sub-depth", Reason: "depth must be positive"}
	}
	if cfg.SubDepth > 0 && (cfg.SplitSize > 0 || cfg.SplitParts > 0) {
		return &types.ConfigError{Field: "split", Reason: "splitting is not supported in sub-archive mode"}
	}
	return nil
}

// archiveTree handles whole-tree mode: one manifest, one job, one
// pipeline, then the optional split post-processing. Any pipeline
// failure is fatal.
func archiveTree(logger *slog.Logger, cfg types.Config, root string, rules *lib.RuleSet, password, stamp, outDir string) error {
	manifest, err := lib.BuildManifest(root, rules)
	if err != nil {
		return err
	}

	stem := cfg.Prefix
	switch stem {
	case "":
		stem = lib.DefaultPrefix
	case "@root":
		stem = filepath.Base(root)
	}

	job := &types.Job{
		Root:     root,
		Format:   cfg.Format,
		Level:    cfg.Level,
		Manifest: manifest,
		Dest:     filepath.Join(outDir, lib.ArchiveName(stem, stamp, cfg.Format)),
		Password: password,
		Label:    stem,
	}

	fmt.Printf("📦 Archiving %q (%d files)...\n", root, len(manifest.Files))
	if err := runPipeline(logger, cfg.DryRun, lib.NewPipeline(job), job.Dest); err != nil {
		return err
	}

	if cfg.SplitSize > 0 || cfg.SplitParts > 0 {
		if err := splitArchive(logger, cfg, job.Dest); err != nil {
			// The unsplit archive is left intact; only the split
			// failure is reported.
			return err
		}
	}

	if !cfg.DryRun {
		if info, err := os.Stat(job.Dest); err == nil {
			fmt.Printf("✅ Wrote %s (%s)\n", job.Dest, humanize.Bytes(uint64(info.Size())))
		}
	}
	return nil
}

// archivePartitions handles sub-archive mode: one independent manifest
// and job per subdirectory at the configured depth, processed
// sequentially. A failed partition is logged and does not abort the
// remaining partitions.
func archivePartitions(logger *slog.Logger, cfg types.Config, root string, rules *lib.RuleSet, password, stamp, outDir string) error {
	partitions, err := lib.Partitions(root, cfg.SubDepth, rules)
	if err != nil {
		return err
	}
	if len(partitions) == 0 {
		return &types.FilesystemError{Path: root, Err: fmt.Errorf("no subdirectories at depth %d", cfg.SubDepth)}
	}

	fmt.Printf("📦 Archiving %d partitions at depth %d under %q...\n", len(partitions), cfg.SubDepth, root)

	var failed int
	for _, partition := range partitions {
		manifest, err := lib.BuildManifest(partition.Dir, rules)
		if err != nil {
			logger.Error("partition skipped", "partition", partition.Label, "error", err)
			failed++
			continue
		}
		if manifest.Empty() {
			logger.Info("partition empty, skipped", "partition", partition.Label)
			continue
		}

		job := &types.Job{
			Root:     partition.Dir,
			Format:   cfg.Format,
			Level:    cfg.Level,
			Manifest: manifest,
			Dest:     filepath.Join(outDir, lib.ArchiveName(partition.Label, stamp, cfg.Format)),
			Password: password,
			Label:    partition.Label,
		}

		fmt.Printf("   - partition %s (%d files)\n", partition.Label, len(manifest.Files))
		if err := runPipeline(logger, cfg.DryRun, lib.NewPipeline(job), job.Dest); err != nil {
			logger.Error("partition failed", "partition", partition.Label, "error", err)
			failed++
			continue
		}
	}

	if failed == len(partitions) {
		return fmt.Errorf("all %d partitions failed", failed)
	}
	if failed > 0 {
		fmt.Printf("⚠️  %d of %d partitions failed (see log)\n", failed, len(partitions))
	} else if !cfg.DryRun {
		fmt.Println("✅ All partitions archived.")
	}
	return nil
}

// runPipeline is the execution controller. Under dry-run it prints the
// structured pipeline description and performs no filesystem mutation.
// In live mode the pipeline runs in the background while a progress
// line is emitted at a fixed interval; the pipeline's failure is
// surfaced with its stage name.
func runPipeline(logger *slog.Logger, dryRun bool, pipeline lib.Pipeline, dest string) error {
	if dryRun {
		fmt.Println("🔍 Dry run: would execute:")
		for _, line := range pipeline.Describe() {
			fmt.Println("     " + line)
		}
		return nil
	}

	for _, line := range pipeline.Describe() {
		logger.Info("pipeline stage", "stage", line)
	}

	done := make(chan error, 1)
	go func() { done <- pipeline.Run() }()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				return &types.ExecError{Stage: pipeline.Name(), Err: err}
			}
			return nil
		case <-ticker.C:
			if info, err := os.Stat(dest); err == nil {
				fmt.Printf("   - writing %s (%s)\n", filepath.Base(dest), humanize.Bytes(uint64(info.Size())))
			}
		}
	}
}

// splitArchive applies the configured split plan to a completed
// archive. The original archive is never removed.
func splitArchive(logger *slog.Logger, cfg types.Config, dest string) error {
	if cfg.DryRun {
		fmt.Println("🔍 Dry run: would split the archive after creation.")
		return nil
	}

	var plan *types.SplitPlan
	var err error
	if cfg.SplitParts > 0 {
		plan, err = lib.PlanSplitParts(dest, cfg.SplitParts)
	} else {
		plan, err = lib.PlanSplitSize(dest, cfg.SplitSize)
	}
	if err != nil {
		return err
	}

	chunks, err := lib.Split(plan)
	if err != nil {
		return err
	}
	logger.Info("archive split", "chunks", len(chunks), "chunk_size", plan.ChunkSize)
	fmt.Printf("   - split into %d chunks of up to %s\n", len(chunks), humanize.Bytes(uint64(plan.ChunkSize)))
	return nil
}
