package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Transcoder converts one input file to one output file. There is no
// partial-output contract: a missing or zero-byte result counts as failure.
type Transcoder interface {
	// TranscodeVideo re-encodes to the canonical video representation.
	TranscodeVideo(ctx context.Context, inputPath, outputPath string) error
	// TranscodeImage re-encodes an image into the target container without
	// scaling.
	TranscodeImage(ctx context.Context, inputPath, outputPath string) error
}

// Canonical video recipe: one codec pairing and pixel format chosen for
// maximum playback compatibility, scaled to a fixed 1080 width with the
// height following the aspect ratio rounded to an even value.
var videoKwArgs = ffmpeg.KwArgs{
	"vcodec":   "libx264",
	"acodec":   "aac",
	"pix_fmt":  "yuv420p",
	"vf":       "scale=1080:-2:flags=lanczos",
	"strict":   "experimental",
	"loglevel": "error",
}

type ffmpegTranscoder struct{}

// NewFFmpegTranscoder returns the production transcoder backed by the
// ffmpeg binary.
func NewFFmpegTranscoder() Transcoder {
	return ffmpegTranscoder{}
}

func (ffmpegTranscoder) TranscodeVideo(ctx context.Context, inputPath, outputPath string) error {
	if !ffmpegAvailable() {
		return wrapCategory(CategoryTranscode, fmt.Errorf("ffmpeg not found in PATH"))
	}
	return ffmpeg.Input(inputPath).
		Output(outputPath, videoKwArgs).
		OverWriteOutput().
		Silent(true).
		Run()
}

func (ffmpegTranscoder) TranscodeImage(ctx context.Context, inputPath, outputPath string) error {
	if !ffmpegAvailable() {
		return wrapCategory(CategoryTranscode, fmt.Errorf("ffmpeg not found in PATH"))
	}
	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{"loglevel": "error"}).
		OverWriteOutput().
		Silent(true).
		Run()
}

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// validateArtifact enforces the transcoder contract on a produced file.
func validateArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return wrapCategory(CategoryTranscode, fmt.Errorf("stat output: %w", err))
	}
	if info.Size() == 0 {
		return wrapCategory(CategoryTranscode, fmt.Errorf("output file is empty"))
	}
	return nil
}
