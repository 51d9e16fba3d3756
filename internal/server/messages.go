package server

import "github.com/joseph-ayodele/voice-orders/internal/entity"

type CreateOrderRequest struct {
	AudioRef string `json:"audio_ref,omitempty"`
}

type OrderResponse struct {
	Order *entity.Order `json:"order"`
}

type TranscribeRequest struct {
	OrderID  string `json:"order_id"`
	AudioRef string `json:"audio_ref,omitempty"`
}

type TranscribeResponse struct {
	OrderID  string `json:"order_id"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type ParseTranscriptionRequest struct {
	OrderID string `json:"order_id"`
	// Text overrides the stored transcription when set.
	Text string `json:"text,omitempty"`
}

type MatchArticlesRequest struct {
	OrderID string `json:"order_id"`
}

type ItemsResponse struct {
	Items []*entity.LineItem `json:"items"`
}

type ProcessTextRequest struct {
	Text string `json:"text"`
}

type SubmitAudioOrderRequest struct {
	AudioRef string `json:"audio_ref"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []*entity.Order `json:"orders"`
}

type ConfirmItemRequest struct {
	ItemID    string `json:"item_id"`
	Confirmed bool   `json:"confirmed"`
}

type UpdateItemRequest struct {
	ItemID           string  `json:"item_id"`
	Quantity         *int    `json:"quantity,omitempty"`
	Unit             *string `json:"unit,omitempty"`
	MatchedArticleID *string `json:"matched_article_id,omitempty"`
	Confirmed        *bool   `json:"confirmed,omitempty"`
}

type ItemResponse struct {
	Item *entity.LineItem `json:"item"`
}

type ExportOrderRequest struct {
	OrderID string `json:"order_id"`
}

type ExportOrderResponse struct {
	Filename string `json:"filename"`
	Xlsx     []byte `json:"xlsx"`
}

type ListHistoryRequest struct{}

type SearchHistoryRequest struct {
	Query string `json:"query"`
}

type HistoryResponse struct {
	Articles []*entity.ArticleHistoryEntry `json:"articles"`
}

type AddHistoryRequest struct {
	ArticleID   string   `json:"article_id"`
	ArticleName string   `json:"article_name"`
	Supplier    string   `json:"supplier,omitempty"`
	EAN         string   `json:"ean,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Price       *float64 `json:"price,omitempty"` // major units
}

type ArticleResponse struct {
	Article *entity.ArticleHistoryEntry `json:"article"`
}

type OrderWithItemsResponse struct {
	Order *entity.Order      `json:"order"`
	Items []*entity.LineItem `json:"items"`
}
