package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/voice-orders/constants"
)

// AllowedExt reports whether ext names an audio format the transcriber accepts.
func AllowedExt(ext string) bool {
	return constants.AudioContentType(ext) != ""
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
