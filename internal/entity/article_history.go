package entity

import "time"

// ArticleHistoryEntry is a remembered catalog article for one user.
type ArticleHistoryEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ArticleID     string    `json:"article_id"`
	ArticleName   string    `json:"article_name"`
	Supplier      *string   `json:"supplier,omitempty"`
	EAN           *string   `json:"ean,omitempty"`
	Unit          *string   `json:"unit,omitempty"`
	LastPrice     *int64    `json:"last_price,omitempty"` // minor units
	OrderCount    int       `json:"order_count"`
	LastOrderedAt time.Time `json:"last_ordered_at"`
	CreatedAt     time.Time `json:"created_at"`
}
