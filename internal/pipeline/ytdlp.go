package pipeline

import (
	"context"

	"github.com/lrstanley/go-ytdlp"
)

// outputTemplate names downloads by media id so produced files never
// collide with the sanitized names applied later.
const outputTemplate = "%(id)s.%(ext)s"

// ytdlpFetcher shells out to yt-dlp through the go-ytdlp wrapper.
type ytdlpFetcher struct{}

func NewYtdlpFetcher() Fetcher {
	return &ytdlpFetcher{}
}

func (f *ytdlpFetcher) Fetch(ctx context.Context, req FetchRequest) error {
	dl := ytdlp.New().
		Format(req.Format).
		Output(outputTemplate).
		Paths(req.Dir).
		Quiet().
		NoWarnings()
	if req.Playlist {
		dl = dl.YesPlaylist()
	} else {
		dl = dl.NoPlaylist()
	}
	if req.CookiesFile != "" {
		dl = dl.Cookies(req.CookiesFile)
	}
	if req.UserAgent != "" {
		dl = dl.UserAgent(req.UserAgent)
	}
	_, err := dl.Run(ctx, req.URL)
	return err
}
