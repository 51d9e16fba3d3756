package constants

import "strings"

// AudioExtensions holds the audio formats accepted for transcription, keyed by
// lowercase extension without the dot.
var AudioExtensions = map[string]string{
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"m4a":  "audio/mp4",
	"mpeg": "audio/mpeg",
	"mpga": "audio/mpeg",
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"flac": "audio/flac",
}

// MaxAudioBytes caps the upload size accepted by the transcription service.
const MaxAudioBytes = 25 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AudioContentType returns the MIME type for ext, or "" if the format is not accepted.
func AudioContentType(ext string) string {
	return AudioExtensions[NormalizeExt(ext)]
}
