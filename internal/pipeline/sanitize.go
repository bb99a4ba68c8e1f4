package pipeline

import (
	"regexp"
	"strings"
)

// fallbackName is used when sanitizing leaves nothing usable. An empty
// filename is never a valid output.
const fallbackName = "untitled"

var illegalNameChars = regexp.MustCompile(`[\\/*?:"<>|\x00-\x1F]`)

// Sanitize strips characters that are illegal in filesystem names and trims
// surrounding whitespace. The result is never empty.
func Sanitize(name string) string {
	clean := illegalNameChars.ReplaceAllString(name, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return fallbackName
	}
	return clean
}
