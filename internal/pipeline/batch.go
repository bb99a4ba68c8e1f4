package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FailureRecord ties a failed input line to a human-readable reason.
type FailureRecord struct {
	URL     string
	Message string
}

// ProcessedItem is one delivered output row. Media and Transcript are
// independently optional depending on mode and what survived processing.
type ProcessedItem struct {
	Name       string
	URL        string
	Kind       Kind
	Media      string
	Transcript string
	Size       int64
}

// BatchState summarizes how a finished batch went.
type BatchState string

const (
	BatchCompleted BatchState = "completed"
	BatchPartial   BatchState = "partial"
	BatchFailed    BatchState = "failed"
)

// BatchResult aggregates everything one batch run produced.
type BatchResult struct {
	ID       string
	Mode     Mode
	Lines    int
	Items    []ProcessedItem
	Failures []FailureRecord
}

// MediaPaths lists delivered media files in processing order.
func (r *BatchResult) MediaPaths() []string {
	var paths []string
	for _, item := range r.Items {
		if item.Media != "" {
			paths = append(paths, item.Media)
		}
	}
	return paths
}

// TranscriptPaths lists delivered transcripts in processing order.
func (r *BatchResult) TranscriptPaths() []string {
	var paths []string
	for _, item := range r.Items {
		if item.Transcript != "" {
			paths = append(paths, item.Transcript)
		}
	}
	return paths
}

func (r *BatchResult) TotalBytes() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// State classifies the outcome for catalog records and the exit path.
func (r *BatchResult) State() BatchState {
	switch {
	case len(r.Failures) == 0:
		return BatchCompleted
	case len(r.Items) == 0:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// Batch drives the pipeline over a parsed line list, sequentially and in
// input order. Lines are isolated from each other: whatever goes wrong
// with one is recorded and the loop moves on.
type Batch struct {
	acquirer    *Acquirer
	normalizer  *Normalizer
	transcriber *Transcriber
	delay       *DelayPolicy
	printer     *Printer
	opts        Options
}

func NewBatch(acquirer *Acquirer, normalizer *Normalizer, transcriber *Transcriber, delay *DelayPolicy, printer *Printer, opts Options) *Batch {
	return &Batch{
		acquirer:    acquirer,
		normalizer:  normalizer,
		transcriber: transcriber,
		delay:       delay,
		printer:     printer,
		opts:        opts,
	}
}

// Run processes every line and returns the aggregate result. The only
// error it returns is context cancellation; per-line problems end up in
// the result's failure list.
func (b *Batch) Run(ctx context.Context, id string, lines []LineSpec) (*BatchResult, error) {
	result := &BatchResult{ID: id, Mode: b.opts.Mode, Lines: len(lines)}
	for i, line := range lines {
		label := line.CustomName
		if label == "" {
			label = line.URL
		}
		prefix := b.printer.Prefix(i+1, len(lines), label)
		b.printer.LineStart(i+1, len(lines), label)

		if i > 0 {
			if err := b.delay.Wait(ctx, line.URL); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		items, err := b.processLine(ctx, i, line)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failures = append(result.Failures, FailureRecord{URL: line.URL, Message: err.Error()})
			b.printer.LineFailed(i+1, prefix, err)
			continue
		}
		for _, item := range items {
			b.printer.ItemResult(prefix, item, item.Size)
		}
		result.Items = append(result.Items, items...)
	}
	return result, nil
}

func (b *Batch) processLine(ctx context.Context, lineIndex int, line LineSpec) ([]ProcessedItem, error) {
	b.printer.Stage(lineIndex+1, "downloading")
	files, err := b.acquirer.Acquire(ctx, line.URL, b.opts.OutputDir)
	if err != nil {
		return nil, err
	}

	b.printer.Stage(lineIndex+1, "converting")
	var items []ProcessedItem
	for i, path := range files {
		kind := Classify(path)
		normalized := b.normalizer.Normalize(ctx, path, kind, line.CustomName, i, b.opts.Mode)

		transcript := ""
		if kind == KindVideo && b.opts.Mode.WantsTranscript() && normalized.Source != "" {
			b.printer.Stage(lineIndex+1, "transcribing")
			transcript = b.transcriber.Transcribe(ctx, normalized.Source)
		}
		if normalized.Media == "" && transcript == "" {
			// This file yielded nothing under the current mode. Not an
			// error on its own.
			continue
		}
		items = append(items, buildItem(line.URL, kind, normalized.Media, transcript, lineIndex, i))
	}
	if len(items) == 0 {
		return nil, wrapCategory(CategoryAcquisition, errNoUsableOutput)
	}
	return items, nil
}

func buildItem(url string, kind Kind, media, transcript string, lineIndex, fileIndex int) ProcessedItem {
	item := ProcessedItem{URL: url, Kind: kind, Media: media, Transcript: transcript}
	if media != "" {
		item.Name = filepath.Base(media)
		if info, err := os.Stat(media); err == nil {
			item.Size = info.Size()
		}
	} else {
		item.Name = fmt.Sprintf("item %d.%d", lineIndex+1, fileIndex+1)
	}
	return item
}
