package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/kkdai/youtube/v2"
)

const probeName = "kkdai/youtube"

// ItemMetadata is the JSON sidecar written next to each delivered artifact.
type ItemMetadata struct {
	BatchID         string `json:"batch_id"`
	SourceURL       string `json:"source_url"`
	Kind            string `json:"kind"`
	Mode            string `json:"mode"`
	Media           string `json:"media,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	SizeBytes       int64  `json:"size_bytes,omitempty"`
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Probe           string `json:"probe,omitempty"`
	ProbeVersion    string `json:"probe_version,omitempty"`
	FetchedAt       string `json:"fetched_at"`
}

// MetadataProbe enriches sidecars with source metadata. Only the video
// service the resolver library understands is probed; every other source
// gets a sidecar built purely from local knowledge.
type MetadataProbe struct {
	client youtube.Client
}

func NewMetadataProbe() *MetadataProbe {
	transport := newRetryTransport(http.DefaultTransport, defaultRetryConfig)
	return &MetadataProbe{
		client: youtube.Client{
			HTTPClient: &http.Client{
				Transport: transport,
				Timeout:   30 * time.Second,
			},
		},
	}
}

// BuildItemMetadata assembles the sidecar record for one processed item,
// probing the source when it is supported. Probe failures are silent; the
// sidecar simply stays thin.
func (p *MetadataProbe) BuildItemMetadata(ctx context.Context, batchID string, mode Mode, item ProcessedItem) ItemMetadata {
	metadata := ItemMetadata{
		BatchID:    batchID,
		SourceURL:  item.URL,
		Kind:       item.Kind.String(),
		Mode:       mode.String(),
		Media:      item.Media,
		Transcript: item.Transcript,
		SizeBytes:  item.Size,
		FetchedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if p == nil || MatchSource(item.URL).Name != "youtube" {
		return metadata
	}
	video, err := p.client.GetVideoContext(ctx, item.URL)
	if err != nil || video == nil {
		return metadata
	}

	metadata.Title = video.Title
	metadata.Author = video.Author
	metadata.DurationSeconds = int(video.Duration.Seconds())
	metadata.ThumbnailURL = bestThumbnailURL(video.Thumbnails)
	metadata.Probe = probeName
	metadata.ProbeVersion = probeVersion()
	return metadata
}

// SidecarTarget picks the artifact the sidecar should sit next to.
func SidecarTarget(item ProcessedItem) string {
	if item.Media != "" {
		return item.Media
	}
	return item.Transcript
}

func writeSidecar(outputPath string, metadata ItemMetadata) error {
	if outputPath == "" {
		return nil
	}
	path := sidecarPath(outputPath)
	file, err := os.Create(path)
	if err != nil {
		return wrapCategory(CategoryFilesystem, fmt.Errorf("creating sidecar: %w", err))
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadata); err != nil {
		return wrapCategory(CategoryFilesystem, fmt.Errorf("writing sidecar: %w", err))
	}
	return nil
}

// WriteSidecar persists the sidecar next to the item's primary artifact.
func WriteSidecar(item ProcessedItem, metadata ItemMetadata) error {
	return writeSidecar(SidecarTarget(item), metadata)
}

func sidecarPath(outputPath string) string {
	return outputPath + ".json"
}

func bestThumbnailURL(thumbnails youtube.Thumbnails) string {
	bestURL := ""
	var bestArea uint
	for _, thumb := range thumbnails {
		area := thumb.Width * thumb.Height
		if area >= bestArea {
			bestArea = area
			bestURL = thumb.URL
		}
	}
	return bestURL
}

func probeVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/kkdai/youtube/v2" {
				return dep.Version
			}
		}
	}
	return ""
}
