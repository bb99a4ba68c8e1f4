package app

import (
	"fmt"
	"io"

	"github.com/lvcoi/mediabatch/internal/catalog"
	"github.com/lvcoi/mediabatch/internal/pipeline"
)

// History prints the most recent batches recorded in the catalog, newest
// first, with the failure reasons of any batch that had them.
func History(path string, limit int, w io.Writer) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return fmt.Errorf("opening history catalog: %w", err)
	}
	defer cat.Close()

	batches, err := cat.RecentBatches(limit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(w, "no recorded batches")
		return nil
	}

	for _, batch := range batches {
		fmt.Fprintf(w, "%s  %s  %-10s %-9s  lines %d  items %d  fail %d  %s\n",
			shortID(batch.ID),
			batch.CreatedAt.Format("2006-01-02 15:04"),
			batch.Mode,
			batch.State,
			batch.Lines,
			batch.Items,
			batch.Failures,
			pipeline.HumanBytes(batch.TotalBytes),
		)
		if batch.Failures == 0 {
			continue
		}
		failures, err := cat.BatchFailures(batch.ID)
		if err != nil {
			continue
		}
		for _, failure := range failures {
			fmt.Fprintf(w, "    failed: %s (%s)\n", failure.SourceURL, failure.Message)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
