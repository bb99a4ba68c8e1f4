package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// SpeechResult is the structured output of a speech-to-text run. Only Text
// is persisted; Language is informational.
type SpeechResult struct {
	Text     string
	Language string
}

// SpeechEngine runs whole-file speech recognition on a media file.
type SpeechEngine interface {
	Transcribe(ctx context.Context, mediaPath string) (*SpeechResult, error)
}

// SpeechLoader initializes the speech engine once per process. Loading a
// model is expensive, so every transcriber shares the instance; Engine is
// safe to call repeatedly and returns the cached engine (or the cached
// load error) after the first call.
type SpeechLoader struct {
	once   sync.Once
	load   func() (SpeechEngine, error)
	engine SpeechEngine
	err    error
}

func NewSpeechLoader(load func() (SpeechEngine, error)) *SpeechLoader {
	return &SpeechLoader{load: load}
}

func (l *SpeechLoader) Engine() (SpeechEngine, error) {
	l.once.Do(func() {
		l.engine, l.err = l.load()
	})
	return l.engine, l.err
}

// defaultWhisperBin is the whisper.cpp command line frontend.
const defaultWhisperBin = "whisper-cli"

type whisperEngine struct {
	bin   string
	model string
}

// LoadWhisperEngine locates the whisper CLI binary. The model path is
// passed through to every run; an empty model lets the binary use its
// default.
func LoadWhisperEngine(bin, model string) (SpeechEngine, error) {
	if bin == "" {
		bin = defaultWhisperBin
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("speech engine %q not found: %w", bin, err)
	}
	return &whisperEngine{bin: resolved, model: model}, nil
}

func (e *whisperEngine) Transcribe(ctx context.Context, mediaPath string) (*SpeechResult, error) {
	args := []string{}
	if e.model != "" {
		args = append(args, "-m", e.model)
	}
	args = append(args, "-f", mediaPath, "-nt")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("speech recognition failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return &SpeechResult{Text: stdout.String()}, nil
}

// Transcriber writes best-effort transcripts next to normalized videos.
// Every failure is absorbed: a missing transcript never fails the item.
type Transcriber struct {
	loader  *SpeechLoader
	printer *Printer
}

func NewTranscriber(loader *SpeechLoader, printer *Printer) *Transcriber {
	return &Transcriber{loader: loader, printer: printer}
}

// Transcribe runs recognition on the media file and persists the trimmed
// text to a sibling .txt sharing the media stem. Returns the transcript
// path, or empty when anything went wrong.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath string) string {
	engine, err := t.loader.Engine()
	if err != nil {
		t.printer.Log(LogWarn, fmt.Sprintf("transcription unavailable: %v", err))
		return ""
	}

	result, err := engine.Transcribe(ctx, mediaPath)
	if err != nil {
		t.printer.Log(LogWarn, fmt.Sprintf("no transcript for %s: %v", filepath.Base(mediaPath), err))
		return ""
	}
	if result == nil {
		t.printer.Log(LogWarn, fmt.Sprintf("no transcript for %s: empty result", filepath.Base(mediaPath)))
		return ""
	}

	text := strings.TrimSpace(result.Text)
	transcriptPath := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".txt"
	if err := os.WriteFile(transcriptPath, []byte(text), 0o644); err != nil {
		t.printer.Log(LogWarn, fmt.Sprintf("writing transcript for %s: %v", filepath.Base(mediaPath), err))
		return ""
	}
	return transcriptPath
}
