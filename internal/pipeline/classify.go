package pipeline

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the media kind driving normalization. Classification is total:
// anything that is neither video nor image is KindOther and passes through
// the normalizer unchanged.
type Kind int

const (
	KindOther Kind = iota
	KindVideo
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	}
	return "other"
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mkv":  {},
	".webm": {},
	".mov":  {},
	".avi":  {},
	".ts":   {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".heic": {},
}

// Classify determines a file's media kind. The primary signal is content
// sniffing of the leading bytes; when the signature is indeterminate the
// extension allow-lists decide. Never fails: unreadable or unknown files
// classify as KindOther.
func Classify(path string) Kind {
	if kind, ok := classifyBySignature(path); ok {
		return kind
	}
	return classifyByExtension(path)
}

func classifyBySignature(path string) (Kind, bool) {
	header, err := readHeader(path, 512)
	if err != nil || len(header) == 0 {
		return KindOther, false
	}
	contentType := http.DetectContentType(header)
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	}
	// application/octet-stream or a non-media sniff: let the extension decide.
	return KindOther, false
}

func classifyByExtension(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage
	}
	return KindOther
}

func readHeader(path string, size int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buf := make([]byte, size)
	n, err := file.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
