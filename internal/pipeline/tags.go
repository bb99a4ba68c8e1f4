package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// EmbedTags attempts to embed source metadata into the delivered file.
// For .mp3 files, ID3v2 tags are written directly. For container formats
// (.mp4, .m4a, .mov, .mkv, .webm), FFmpeg rewrites the container with the
// metadata attached. Failures only warn; the file itself is already good.
func EmbedTags(metadata ItemMetadata, outputPath string, printer *Printer) {
	if outputPath == "" || metadata.Title == "" {
		return
	}
	ext := strings.ToLower(filepath.Ext(outputPath))
	switch ext {
	case ".mp3":
		if err := embedID3Tags(metadata, outputPath); err != nil {
			printer.Log(LogWarn, fmt.Sprintf("metadata tag embedding failed: %v", err))
		}
	case ".mp4", ".m4a", ".mov", ".mkv", ".webm":
		if err := embedContainerTags(metadata, outputPath); err != nil {
			printer.Log(LogWarn, fmt.Sprintf("metadata embedding failed for %s: %v", ext, err))
		}
	default:
		// Silently skip unsupported formats
	}
}

func embedID3Tags(metadata ItemMetadata, outputPath string) error {
	tag, err := id3v2.Open(outputPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetTitle(metadata.Title)
	if metadata.Author != "" {
		tag.SetArtist(metadata.Author)
	}
	if metadata.SourceURL != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "source",
			Text:        metadata.SourceURL,
		})
	}
	return tag.Save()
}

// embedContainerTags uses ffmpeg to rewrite the container with metadata
// attached, leaving the streams untouched.
func embedContainerTags(metadata ItemMetadata, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := []string{
		"-i", outputPath,
		"-y",
		"-c", "copy",
		"-metadata", "title=" + metadata.Title,
	}
	if metadata.Author != "" {
		args = append(args, "-metadata", "artist="+metadata.Author)
	}
	if metadata.SourceURL != "" {
		args = append(args, "-metadata", "comment="+metadata.SourceURL)
	}

	dir := filepath.Dir(outputPath)
	tmpFile := filepath.Join(dir, ".tmp_tagged_"+filepath.Base(outputPath))
	args = append(args, tmpFile)

	cmd := exec.Command("ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpFile)
		stderr := strings.TrimSpace(string(output))
		if stderr != "" {
			return fmt.Errorf("embedding metadata into %s: %s: %w", filepath.Ext(outputPath), stderr, err)
		}
		return fmt.Errorf("embedding metadata into %s: %w", filepath.Ext(outputPath), err)
	}

	if err := os.Rename(tmpFile, outputPath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("replacing file with tagged version: %w", err)
	}
	return nil
}
