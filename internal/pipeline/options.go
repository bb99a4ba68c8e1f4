package pipeline

import "time"

// Options carries one batch invocation's configuration from the CLI down
// through the pipeline stages.
type Options struct {
	Mode      Mode
	OutputDir string

	CookiesFile string
	UserAgent   string
	Delay       time.Duration

	WhisperBin   string
	WhisperModel string

	Sidecars  bool
	EmbedTags bool
	Archive   bool

	CatalogPath string

	Quiet      bool
	NoColor    bool
	NoProgress bool
	Bell       bool
	LogLevel   string
}

// defaultDelay paces consecutive fetches against rate-limited sources.
const defaultDelay = 3 * time.Second

// defaultUserAgent is presented alongside cookies so authenticated fetches
// look like the browser session the cookies came from.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DelayInterval returns the configured inter-fetch pacing interval.
func (o Options) DelayInterval() time.Duration {
	if o.Delay > 0 {
		return o.Delay
	}
	return defaultDelay
}
