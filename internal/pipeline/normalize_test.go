package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeTranscoder struct {
	videoErr   error
	imageErr   error
	videoRuns  int
	imageRuns  int
	writeEmpty bool
}

func (f *fakeTranscoder) TranscodeVideo(ctx context.Context, inputPath, outputPath string) error {
	f.videoRuns++
	if f.videoErr != nil {
		return f.videoErr
	}
	return f.write(outputPath)
}

func (f *fakeTranscoder) TranscodeImage(ctx context.Context, inputPath, outputPath string) error {
	f.imageRuns++
	if f.imageErr != nil {
		return f.imageErr
	}
	return f.write(outputPath)
}

func (f *fakeTranscoder) write(outputPath string) error {
	data := []byte("converted")
	if f.writeEmpty {
		data = nil
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func newTestPrinter() *Printer {
	return NewPrinter(Options{Quiet: true, NoColor: true})
}

func TestNormalizeVideoCustomName(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "abc123.mkv", []byte("raw bytes"))

	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeBoth)

	want := filepath.Join(dir, "Clip A.mp4")
	if got.Media != want {
		t.Fatalf("Media = %q, want %q", got.Media, want)
	}
	if got.Source != want {
		t.Fatalf("Source = %q, want %q", got.Source, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected converted file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("original should be removed after successful conversion")
	}
}

func TestNormalizeCarouselNames(t *testing.T) {
	dir := t.TempDir()

	wantStems := []string{"trip", "trip_2", "trip_3"}
	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	for i, stem := range wantStems {
		path := writeTestFile(t, dir, fmt.Sprintf("media%d.mkv", i), []byte("raw"))
		got := n.Normalize(context.Background(), path, KindVideo, "trip", i, ModeVideoOnly)
		want := filepath.Join(dir, stem+".mp4")
		if got.Media != want {
			t.Fatalf("file %d: Media = %q, want %q", i, got.Media, want)
		}
	}
}

func TestNormalizeVideoDefaultName(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "dQw4w9WgXcQ.webm", []byte("raw"))

	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "", 0, ModeBoth)

	want := filepath.Join(dir, "dQw4w9WgXcQ_converted.mp4")
	if got.Media != want {
		t.Fatalf("Media = %q, want %q", got.Media, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("original should be removed after successful conversion")
	}
}

func TestNormalizeVideoFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "abc123.mkv", []byte("raw bytes"))

	n := NewNormalizer(&fakeTranscoder{videoErr: errors.New("codec exploded")}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeBoth)

	if got.Media != path {
		t.Fatalf("Media = %q, want original %q", got.Media, path)
	}
	if got.Source != "" {
		t.Fatalf("failed conversion must not offer a transcription source, got %q", got.Source)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original must survive a failed conversion: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Clip A.mp4")); !os.IsNotExist(err) {
		t.Fatalf("failed conversion must not leave a target file")
	}
}

func TestNormalizeVideoEmptyOutputIsFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "abc123.mkv", []byte("raw bytes"))

	n := NewNormalizer(&fakeTranscoder{writeEmpty: true}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeBoth)

	if got.Media != path {
		t.Fatalf("Media = %q, want original %q", got.Media, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original must survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Clip A.mp4")); !os.IsNotExist(err) {
		t.Fatalf("empty output must be removed, not delivered")
	}
}

func TestNormalizeVideoTranscriptOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "abc123.mkv", []byte("raw bytes"))

	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeTranscriptOnly)

	if got.Media != "" {
		t.Fatalf("transcript-only must not deliver media, got %q", got.Media)
	}
	want := filepath.Join(dir, "Clip A.mp4")
	if got.Source != want {
		t.Fatalf("Source = %q, want %q", got.Source, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("normalized intermediate must exist for transcription: %v", err)
	}
}

func TestNormalizeVideoTranscriptOnlyFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "abc123.mkv", []byte("raw bytes"))

	n := NewNormalizer(&fakeTranscoder{videoErr: errors.New("boom")}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeTranscriptOnly)

	if got.Media != "" || got.Source != "" {
		t.Fatalf("failed transcript-only conversion should yield nothing, got %+v", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original must survive: %v", err)
	}
}

func TestNormalizeVideoInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "Clip A.mp4", []byte("previous encode"))

	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindVideo, "Clip A", 0, ModeBoth)

	if got.Media != path {
		t.Fatalf("Media = %q, want %q", got.Media, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if string(data) != "converted" {
		t.Fatalf("target should hold the fresh encode, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("listing dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp_convert_") {
			t.Fatalf("temp file %s left behind", entry.Name())
		}
	}
}

func TestNormalizeImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "DEF456.png", []byte("png bytes"))

	n := NewNormalizer(&fakeTranscoder{}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindImage, "Photo", 0, ModeBoth)

	want := filepath.Join(dir, "Photo.jpg")
	if got.Media != want {
		t.Fatalf("Media = %q, want %q", got.Media, want)
	}
	if got.Source != "" {
		t.Fatalf("images are never transcription sources, got %q", got.Source)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("original should be removed after successful conversion")
	}
}

func TestNormalizeImageFailureRenames(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "DEF456.png", []byte("png bytes"))

	n := NewNormalizer(&fakeTranscoder{imageErr: errors.New("boom")}, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindImage, "Photo", 0, ModeBoth)

	want := filepath.Join(dir, "Photo.jpg")
	if got.Media != want {
		t.Fatalf("Media = %q, want %q", got.Media, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("renamed original should exist: %v", err)
	}
	if string(data) != "png bytes" {
		t.Fatalf("rename must preserve the original bytes, got %q", data)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("original name should be gone after rename")
	}
}

func TestNormalizeImageTranscriptOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "DEF456.png", []byte("png bytes"))

	transcoder := &fakeTranscoder{}
	n := NewNormalizer(transcoder, newTestPrinter())
	got := n.Normalize(context.Background(), path, KindImage, "Photo", 0, ModeTranscriptOnly)

	if got.Media != "" || got.Source != "" {
		t.Fatalf("transcript-only image should yield nothing, got %+v", got)
	}
	if transcoder.imageRuns != 0 {
		t.Fatalf("transcript-only image should not be converted")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original must stay untouched: %v", err)
	}
}

func TestNormalizeOtherPassesThrough(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "bundle.pdf", []byte("doc"))

	transcoder := &fakeTranscoder{}
	n := NewNormalizer(transcoder, newTestPrinter())

	got := n.Normalize(context.Background(), path, KindOther, "Doc", 0, ModeBoth)
	if got.Media != path {
		t.Fatalf("other files pass through unchanged, got %q", got.Media)
	}

	got = n.Normalize(context.Background(), path, KindOther, "Doc", 0, ModeTranscriptOnly)
	if got.Media != "" {
		t.Fatalf("transcript-only must not deliver other files, got %q", got.Media)
	}
	if transcoder.videoRuns != 0 || transcoder.imageRuns != 0 {
		t.Fatalf("other files must not hit the transcoder")
	}
}
