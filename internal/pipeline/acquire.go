package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// primaryFormat prefers an mp4 container so most downloads skip remuxing.
const primaryFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// fallbackFormat is the single retry selector for sources whose preferred
// format request often fails server-side.
const fallbackFormat = "best"

// partialSuffixes mark in-flight downloader artifacts that must never be
// treated as produced output.
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp", ".download"}

// FetchRequest carries everything a fetcher needs for one download.
type FetchRequest struct {
	URL         string
	Dir         string
	Format      string
	CookiesFile string
	UserAgent   string
	Playlist    bool
}

// Fetcher downloads whatever the URL resolves to into the request dir.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) error
}

// Acquirer turns a raw line URL into the set of files it produced on disk.
// New files are detected by diffing directory listings around the fetch,
// so the fetcher itself never has to report output paths.
type Acquirer struct {
	fetcher Fetcher
	printer *Printer
	opts    Options
}

func NewAcquirer(fetcher Fetcher, printer *Printer, opts Options) *Acquirer {
	return &Acquirer{fetcher: fetcher, printer: printer, opts: opts}
}

// Acquire downloads the URL into dir and returns the paths of all files
// the fetch produced, in lexicographic order. Sources with an unreliable
// primary format get exactly one retry on the plain "best" selector,
// either when the fetch errors or when it reports success without
// producing anything.
func (a *Acquirer) Acquire(ctx context.Context, rawURL, dir string) ([]string, error) {
	if _, err := validateInputURL(rawURL); err != nil {
		return nil, err
	}
	policy := MatchSource(rawURL)
	cleaned := CleanURL(rawURL)

	before, err := snapshotDir(dir)
	if err != nil {
		return nil, wrapCategory(CategoryFilesystem, err)
	}

	req := FetchRequest{
		URL:      cleaned,
		Dir:      dir,
		Format:   primaryFormat,
		Playlist: looksLikeCarousel(rawURL, policy),
	}
	if policy.NeedsAuth {
		req.CookiesFile = a.opts.CookiesFile
		req.UserAgent = a.opts.UserAgent
		if req.UserAgent == "" {
			req.UserAgent = defaultUserAgent
		}
	}

	fetchErr := a.fetcher.Fetch(ctx, req)
	files, err := newEntries(dir, before)
	if err != nil {
		return nil, wrapCategory(CategoryFilesystem, err)
	}

	retryable := policy.UnreliablePrimary && (fetchErr != nil || len(files) == 0)
	if retryable {
		if fetchErr != nil {
			a.printer.Log(LogWarn, fmt.Sprintf("%s fetch failed (%v), retrying with fallback format", policy.Name, fetchErr))
		} else {
			a.printer.Log(LogWarn, fmt.Sprintf("%s fetch produced no files, retrying with fallback format", policy.Name))
		}
		req.Format = fallbackFormat
		fetchErr = a.fetcher.Fetch(ctx, req)
		files, err = newEntries(dir, before)
		if err != nil {
			return nil, wrapCategory(CategoryFilesystem, err)
		}
	}

	if fetchErr != nil {
		return nil, wrapCategory(CategoryAcquisition, fmt.Errorf("download failed: %w", fetchErr))
	}
	if len(files) == 0 {
		// Distinct from a fetch error: the service reported success but
		// nothing landed on disk.
		return nil, wrapCategory(CategoryAcquisition, errNoUsableOutput)
	}
	return files, nil
}

// errNoUsableOutput is the generic line failure for fetches that neither
// errored nor yielded anything deliverable.
var errNoUsableOutput = errors.New("no usable output")

// snapshotDir records the names currently present so a later diff can
// isolate what a fetch added. A missing dir snapshots as empty.
func snapshotDir(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		seen[entry.Name()] = struct{}{}
	}
	return seen, nil
}

func newEntries(dir string, before map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var fresh []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := before[name]; ok {
			continue
		}
		if isPartialFile(name) {
			continue
		}
		fresh = append(fresh, filepath.Join(dir, name))
	}
	sort.Strings(fresh)
	return fresh, nil
}

func isPartialFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
