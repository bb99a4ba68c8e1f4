package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Build writes the given files into a zip archive at path. Entries are
// stored flat under their base names; duplicate base names get a numeric
// suffix so nothing silently overwrites. Returns how many files made it
// into the archive.
func Build(path string, files []string) (int, error) {
	if len(files) == 0 {
		return 0, fmt.Errorf("nothing to archive")
	}

	archiveFile, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	defer archiveFile.Close()

	zipWriter := zip.NewWriter(archiveFile)

	seen := make(map[string]int, len(files))
	added := 0
	for _, file := range files {
		if err := addEntry(zipWriter, file, seen); err != nil {
			zipWriter.Close()
			os.Remove(path)
			return 0, err
		}
		added++
	}

	if err := zipWriter.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	return added, nil
}

func addEntry(zipWriter *zip.Writer, file string, seen map[string]int) error {
	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(file), err)
	}
	defer src.Close()

	entry, err := zipWriter.Create(entryName(filepath.Base(file), seen))
	if err != nil {
		return fmt.Errorf("adding %s: %w", filepath.Base(file), err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(file), err)
	}
	return nil
}

func entryName(base string, seen map[string]int) string {
	seen[base]++
	if seen[base] == 1 {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%d%s", stem, seen[base], ext)
}
