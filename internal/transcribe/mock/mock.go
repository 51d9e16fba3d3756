// Package mock provides a test double for transcribe.Transcriber.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
)

// Call records one Transcribe invocation. The audio payload is drained into
// Audio so tests can assert on it.
type Call struct {
	Filename string
	Language string
	Prompt   string
	Audio    []byte
}

// Transcriber is a mock implementation of transcribe.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned when Err is nil.
	Result transcribe.Result

	// Err, if non-nil, is returned instead of Result.
	Err error

	Calls []Call
}

var _ transcribe.Transcriber = (*Transcriber)(nil)

// Transcribe implements transcribe.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, req transcribe.Request) (transcribe.Result, error) {
	var audio []byte
	if req.Audio != nil {
		audio, _ = io.ReadAll(req.Audio)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, Call{Filename: req.Filename, Language: req.Language, Prompt: req.Prompt, Audio: audio})
	if t.Err != nil {
		return transcribe.Result{}, t.Err
	}
	return t.Result, nil
}

// CallCount returns how many times Transcribe ran.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
