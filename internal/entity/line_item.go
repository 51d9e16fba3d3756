package entity

import (
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
)

// LineItem is one parsed article request within an order.
// The Matched* fields, Confidence and MatchSource are either all set or all
// nil. A matched supplier or price the history did not know is "" or 0.
type LineItem struct {
	ID                 string                 `json:"id"`
	OrderID            string                 `json:"order_id"`
	Position           int                    `json:"position"`
	ArticleName        string                 `json:"article_name"`
	Quantity           int                    `json:"quantity"`
	Unit               string                 `json:"unit"`
	MatchedArticleID   *string                `json:"matched_article_id,omitempty"`
	MatchedArticleName *string                `json:"matched_article_name,omitempty"`
	MatchedSupplier    *string                `json:"matched_supplier,omitempty"`
	MatchedPrice       *int64                 `json:"matched_price,omitempty"` // minor units
	Confidence         *int                   `json:"confidence,omitempty"`    // 0-100
	MatchSource        *constants.MatchSource `json:"match_source,omitempty"`
	Confirmed          bool                   `json:"confirmed"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// Matched reports whether the item carries a match.
func (li *LineItem) Matched() bool {
	return li.MatchedArticleID != nil
}

// MatchResult is the full set of matched fields written onto a line item.
type MatchResult struct {
	ArticleID   string
	ArticleName string
	Supplier    string
	Price       int64 // minor units
	Confidence  int
	Source      constants.MatchSource
}

// NewMatchResult matches e with the given confidence. Missing supplier and
// price become "" and 0 so that every matched field is written.
func NewMatchResult(e *ArticleHistoryEntry, confidence int, source constants.MatchSource) *MatchResult {
	m := &MatchResult{
		ArticleID:   e.ArticleID,
		ArticleName: e.ArticleName,
		Confidence:  confidence,
		Source:      source,
	}
	if e.Supplier != nil {
		m.Supplier = *e.Supplier
	}
	if e.LastPrice != nil {
		m.Price = *e.LastPrice
	}
	return m
}

// NewLineItem is the input for creating a line item.
type NewLineItem struct {
	ArticleName string
	Quantity    int
	Unit        string
}

// LineItemPatch holds caller edits; nil fields are left untouched.
type LineItemPatch struct {
	Quantity  *int
	Unit      *string
	Confirmed *bool
}
