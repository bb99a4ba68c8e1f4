package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lvcoi/mediabatch/internal/archive"
	"github.com/lvcoi/mediabatch/internal/catalog"
	"github.com/lvcoi/mediabatch/internal/pipeline"
)

// Run executes one batch end to end: wires the pipeline, processes every
// input line sequentially, then performs the delivery steps (sidecars,
// tags, history, archive) over whatever the batch produced.
func Run(ctx context.Context, lines []pipeline.LineSpec, opts pipeline.Options) (*pipeline.BatchResult, error) {
	if len(lines) == 0 {
		return nil, pipeline.CategorizedError{
			Category: pipeline.CategoryInvalidInput,
			Err:      errors.New("no input lines"),
		}
	}

	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	batchID := uuid.NewString()

	// Each batch owns a fresh scratch directory under the output root, so
	// directory diffing never sees another batch's files.
	root := opts.OutputDir
	scratch := filepath.Join(root, "batch-"+batchID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, pipeline.CategorizedError{
			Category: pipeline.CategoryFilesystem,
			Err:      fmt.Errorf("creating scratch directory: %w", err),
		}
	}
	batchOpts := opts
	batchOpts.OutputDir = scratch

	printer := pipeline.NewPrinter(opts)

	var manager *pipeline.ProgressManager
	if !opts.NoProgress && !opts.Quiet && pipeline.InteractiveTerminal() {
		manager = pipeline.NewProgressManager()
		manager.Start(ctx)
		printer.AttachManager(manager)
	}

	loader := pipeline.NewSpeechLoader(func() (pipeline.SpeechEngine, error) {
		return pipeline.LoadWhisperEngine(opts.WhisperBin, opts.WhisperModel)
	})

	batch := pipeline.NewBatch(
		pipeline.NewAcquirer(pipeline.NewYtdlpFetcher(), printer, batchOpts),
		pipeline.NewNormalizer(pipeline.NewFFmpegTranscoder(), printer),
		pipeline.NewTranscriber(loader, printer),
		pipeline.NewDelayPolicy(opts.DelayInterval()),
		printer,
		batchOpts,
	)

	result, err := batch.Run(ctx, batchID, lines)

	if manager != nil {
		manager.Stop()
		printer.AttachManager(nil)
	}
	if err != nil {
		return result, err
	}

	deliver(ctx, result, opts, printer)

	printer.Summary(result.Lines, len(result.Items), len(result.Failures), result.TotalBytes())
	for _, failure := range result.Failures {
		printer.Log(pipeline.LogError, fmt.Sprintf("failed: %s (%s)", failure.URL, failure.Message))
	}
	if result.State() == pipeline.BatchFailed {
		// The failures above are the full story; the caller only needs
		// the exit code.
		return result, pipeline.MarkReported(pipeline.CategorizedError{
			Category: pipeline.CategoryAcquisition,
			Err:      errors.New("all lines failed"),
		})
	}
	return result, nil
}

// deliver runs the optional post-processing steps. None of them can fail
// the batch; problems are logged and skipped.
func deliver(ctx context.Context, result *pipeline.BatchResult, opts pipeline.Options, printer *pipeline.Printer) {
	if opts.Sidecars || opts.EmbedTags {
		probe := pipeline.NewMetadataProbe()
		for _, item := range result.Items {
			metadata := probe.BuildItemMetadata(ctx, result.ID, result.Mode, item)
			if opts.Sidecars {
				if err := pipeline.WriteSidecar(item, metadata); err != nil {
					printer.Log(pipeline.LogWarn, fmt.Sprintf("sidecar for %s: %v", item.Name, err))
				}
			}
			if opts.EmbedTags {
				pipeline.EmbedTags(metadata, item.Media, printer)
			}
		}
	}

	if opts.CatalogPath != "" {
		recordHistory(result, opts, printer)
	}

	if opts.Archive {
		files := append(result.MediaPaths(), result.TranscriptPaths()...)
		if len(files) == 0 {
			return
		}
		archivePath := filepath.Join(opts.OutputDir, fmt.Sprintf("mediabatch-%s.zip", result.ID))
		added, err := archive.Build(archivePath, files)
		if err != nil {
			printer.Log(pipeline.LogWarn, fmt.Sprintf("packaging batch: %v", err))
			return
		}
		printer.Log(pipeline.LogInfo, fmt.Sprintf("archived %d files to %s", added, archivePath))
	}
}

func recordHistory(result *pipeline.BatchResult, opts pipeline.Options, printer *pipeline.Printer) {
	cat, err := catalog.Open(opts.CatalogPath)
	if err != nil {
		printer.Log(pipeline.LogWarn, fmt.Sprintf("opening history catalog: %v", err))
		return
	}
	defer cat.Close()

	batch := catalog.BatchRecord{
		ID:         result.ID,
		Mode:       result.Mode.String(),
		State:      string(result.State()),
		Lines:      result.Lines,
		Items:      len(result.Items),
		Failures:   len(result.Failures),
		TotalBytes: result.TotalBytes(),
	}
	items := make([]catalog.ItemRecord, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, catalog.ItemRecord{
			BatchID:        result.ID,
			Name:           item.Name,
			SourceURL:      item.URL,
			Kind:           item.Kind.String(),
			MediaPath:      item.Media,
			TranscriptPath: item.Transcript,
			SizeBytes:      item.Size,
		})
	}
	failures := make([]catalog.FailureRecord, 0, len(result.Failures))
	for _, failure := range result.Failures {
		failures = append(failures, catalog.FailureRecord{
			BatchID:   result.ID,
			SourceURL: failure.URL,
			Message:   failure.Message,
		})
	}
	if err := cat.RecordBatch(batch, items, failures); err != nil {
		printer.Log(pipeline.LogWarn, fmt.Sprintf("recording batch history: %v", err))
	}
}
