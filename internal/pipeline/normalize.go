package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// convertedSuffix marks normalized files that kept their original stem.
const convertedSuffix = "_converted"

// NormalizedFile is the outcome of normalizing one classified file.
// Media is the deliverable path, empty when the mode withholds it or
// nothing usable came out. Source is the normalized on-disk video the
// transcriber may consume; it stays set in transcript-only mode even
// though Media does not.
type NormalizedFile struct {
	Media  string
	Source string
}

// Normalizer converts classified files to the canonical representation and
// applies the naming policy. Failures degrade: the original file survives,
// either untouched or renamed to the target name.
type Normalizer struct {
	transcoder Transcoder
	printer    *Printer
}

func NewNormalizer(transcoder Transcoder, printer *Printer) *Normalizer {
	return &Normalizer{transcoder: transcoder, printer: printer}
}

// Normalize converts one file according to its kind and the batch mode.
// index disambiguates multiple files produced by a single input line.
func (n *Normalizer) Normalize(ctx context.Context, path string, kind Kind, customName string, index int, mode Mode) NormalizedFile {
	switch kind {
	case KindVideo:
		return n.normalizeVideo(ctx, path, customName, index, mode)
	case KindImage:
		return n.normalizeImage(ctx, path, customName, index, mode)
	}
	if !mode.WantsMedia() {
		return NormalizedFile{}
	}
	return NormalizedFile{Media: path}
}

func (n *Normalizer) normalizeVideo(ctx context.Context, path, customName string, index int, mode Mode) NormalizedFile {
	target := targetPath(path, customName, index, ".mp4")
	out := target
	if out == path {
		// Re-normalizing in place: go through a sibling temp file.
		out = tempPath(target)
	}

	err := n.transcoder.TranscodeVideo(ctx, path, out)
	if err == nil {
		err = validateArtifact(out)
	}
	if err != nil {
		if out != path {
			os.Remove(out)
		}
		n.printer.Log(LogWarn, fmt.Sprintf("conversion failed for %s: %v", filepath.Base(path), err))
		if !mode.WantsMedia() {
			return NormalizedFile{}
		}
		return NormalizedFile{Media: path}
	}

	if out != target {
		if renameErr := os.Rename(out, target); renameErr != nil {
			os.Remove(out)
			n.printer.Log(LogWarn, fmt.Sprintf("replacing %s failed: %v", filepath.Base(target), renameErr))
			if !mode.WantsMedia() {
				return NormalizedFile{}
			}
			return NormalizedFile{Media: path}
		}
	} else if path != target {
		// The replacement is verified non-empty; this is the single point
		// where the raw artifact is removed.
		if removeErr := os.Remove(path); removeErr != nil {
			n.printer.Log(LogWarn, fmt.Sprintf("could not remove original %s: %v", filepath.Base(path), removeErr))
		}
	}

	result := NormalizedFile{Source: target}
	if mode.WantsMedia() {
		result.Media = target
	}
	return result
}

func (n *Normalizer) normalizeImage(ctx context.Context, path, customName string, index int, mode Mode) NormalizedFile {
	if !mode.WantsMedia() {
		// Images are never transcribed, so transcript-only runs have
		// nothing to produce here.
		return NormalizedFile{}
	}

	target := targetPath(path, customName, index, ".jpg")
	out := target
	if out == path {
		out = tempPath(target)
	}

	err := n.transcoder.TranscodeImage(ctx, path, out)
	if err == nil {
		err = validateArtifact(out)
	}
	if err != nil {
		if out != path {
			os.Remove(out)
		}
		n.printer.Log(LogWarn, fmt.Sprintf("image conversion failed for %s: %v", filepath.Base(path), err))
		if path == target {
			return NormalizedFile{Media: path}
		}
		// Keep the bytes under the requested name instead of losing them.
		if renameErr := os.Rename(path, target); renameErr != nil {
			n.printer.Log(LogWarn, fmt.Sprintf("renaming %s failed: %v", filepath.Base(path), renameErr))
			return NormalizedFile{Media: path}
		}
		return NormalizedFile{Media: target}
	}

	if out != target {
		if renameErr := os.Rename(out, target); renameErr != nil {
			os.Remove(out)
			n.printer.Log(LogWarn, fmt.Sprintf("replacing %s failed: %v", filepath.Base(target), renameErr))
			return NormalizedFile{Media: path}
		}
	} else if path != target {
		if removeErr := os.Remove(path); removeErr != nil {
			n.printer.Log(LogWarn, fmt.Sprintf("could not remove original %s: %v", filepath.Base(path), removeErr))
		}
	}
	return NormalizedFile{Media: target}
}

// targetPath applies the naming policy: a sanitized custom name with a
// positional suffix from the second file on, or the original stem plus the
// normalization suffix. The extension is fixed per kind and overrides the
// original one.
func targetPath(path, customName string, index int, ext string) string {
	return filepath.Join(filepath.Dir(path), targetStem(path, customName, index)+ext)
}

func targetStem(path, customName string, index int) string {
	if customName != "" {
		stem := Sanitize(customName)
		if index > 0 {
			stem = fmt.Sprintf("%s_%d", stem, index+1)
		}
		return stem
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + convertedSuffix
}

func tempPath(target string) string {
	return filepath.Join(filepath.Dir(target), ".tmp_convert_"+filepath.Base(target))
}
