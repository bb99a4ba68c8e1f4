package pipeline

import (
	"fmt"
	"strings"
)

// nameSeparator splits a line into URL and custom output name.
const nameSeparator = " - "

// LineSpec is one parsed input line. CustomName is empty when the line had
// no separator.
type LineSpec struct {
	URL        string
	CustomName string
}

// ParseLines parses the line-format input: one entry per line, either
// "<url>" or "<url> - <custom name>". Blank lines are ignored. Only the
// first separator splits, so custom names may themselves contain " - ".
func ParseLines(input string) []LineSpec {
	var specs []LineSpec
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		url := line
		name := ""
		if idx := strings.Index(line, nameSeparator); idx >= 0 {
			url = strings.TrimSpace(line[:idx])
			name = strings.TrimSpace(line[idx+len(nameSeparator):])
		}
		specs = append(specs, LineSpec{URL: url, CustomName: name})
	}
	return specs
}

// Mode selects which artifacts a batch run is permitted to emit.
type Mode int

const (
	ModeVideoOnly Mode = iota
	ModeTranscriptOnly
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModeVideoOnly:
		return "video"
	case ModeTranscriptOnly:
		return "transcript"
	case ModeBoth:
		return "both"
	}
	return "unknown"
}

// WantsMedia reports whether media files are deliverables in this mode.
func (m Mode) WantsMedia() bool {
	return m == ModeVideoOnly || m == ModeBoth
}

// WantsTranscript reports whether transcripts are deliverables in this mode.
func (m Mode) WantsTranscript() bool {
	return m == ModeTranscriptOnly || m == ModeBoth
}

// ParseMode parses the CLI mode flag value.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video", "videoonly", "video-only":
		return ModeVideoOnly, nil
	case "transcript", "transcriptonly", "transcript-only":
		return ModeTranscriptOnly, nil
	case "both", "":
		return ModeBoth, nil
	}
	return ModeBoth, wrapCategory(CategoryInvalidInput, fmt.Errorf("unknown mode %q (expected video, transcript or both)", value))
}
