// Package transcribe defines the speech-to-text adapter contract and resolves
// audio references into readable payloads.
package transcribe

import (
	"context"
	"io"
)

// Request is one recording to transcribe.
type Request struct {
	Audio       io.Reader
	Filename    string
	ContentType string
	// Language is an ISO-639-1 hint such as "de".
	Language string
	// Prompt primes vocabulary and style.
	Prompt string
}

// Result is the recognized text and the language the service reported,
// falling back to the hint when none was reported.
type Result struct {
	Text     string
	Language string
}

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
