package llm

import "context"

// ExtractedItem is one article request read out of free order text.
// Quantity is whatever the model produced; callers round it.
type ExtractedItem struct {
	ArticleName string  `json:"articleName"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// PhraseExtractor turns order text into line items, in spoken order.
type PhraseExtractor interface {
	ExtractItems(ctx context.Context, text string) ([]ExtractedItem, error)
}
