// Package mock provides a test double for llm.PhraseExtractor.
//
// Set Items or Err before use; every call is recorded in Calls.
package mock

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/voice-orders/internal/llm"
)

// Extractor is a mock implementation of llm.PhraseExtractor.
type Extractor struct {
	mu sync.Mutex

	// Items is returned by ExtractItems.
	Items []llm.ExtractedItem

	// Err, if non-nil, is returned instead of Items.
	Err error

	// Fn, if set, overrides Items and Err.
	Fn func(ctx context.Context, text string) ([]llm.ExtractedItem, error)

	// Calls records the text of every invocation in order.
	Calls []string
}

var _ llm.PhraseExtractor = (*Extractor)(nil)

// ExtractItems implements llm.PhraseExtractor.
func (e *Extractor) ExtractItems(ctx context.Context, text string) ([]llm.ExtractedItem, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, text)
	fn, items, err := e.Fn, e.Items, e.Err
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	out := make([]llm.ExtractedItem, len(items))
	copy(out, items)
	return out, nil
}

// CallCount returns how many times ExtractItems ran.
func (e *Extractor) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
