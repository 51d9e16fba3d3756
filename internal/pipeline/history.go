package pipeline

import (
	"context"
	"math"
	"strings"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/repository"
)

// HistoryListLimit bounds ListHistory and SearchHistory.
const HistoryListLimit = 100

// NewArticle is a history entry as entered by a user. Price is in major
// units.
type NewArticle struct {
	ArticleID   string
	ArticleName string
	Supplier    string
	EAN         string
	Unit        string
	Price       *float64
}

// ListHistory returns the user's articles, most recently ordered first.
func (p *Processor) ListHistory(ctx context.Context, userID string) ([]*entity.ArticleHistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return p.History.ListRecent(ctx, userID, HistoryListLimit)
}

// SearchHistory filters the user's articles by name, supplier or EAN.
func (p *Processor) SearchHistory(ctx context.Context, userID, query string) ([]*entity.ArticleHistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return p.History.ListRecent(ctx, userID, HistoryListLimit)
	}
	return p.History.Search(ctx, userID, query, HistoryListLimit)
}

// AddHistory records one order of an article. Adding the same article again
// bumps its order count.
func (p *Processor) AddHistory(ctx context.Context, userID string, a NewArticle) (*entity.ArticleHistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	v := common.NewValidator().
		Field("article_id", a.ArticleID, common.Required, common.MaxLength(64)).
		Field("article_name", a.ArticleName, common.Required, common.MaxLength(255)).
		Field("supplier", a.Supplier, common.MaxLength(255)).
		Field("ean", a.EAN, common.MaxLength(20)).
		Field("unit", a.Unit, common.MaxLength(50))
	if a.Price != nil && *a.Price < 0 {
		v.Field("price", a.Price, func(field string, value any) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "must not be negative"}
		})
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	ha := repository.HistoryArticle{
		ArticleID:   strings.TrimSpace(a.ArticleID),
		ArticleName: strings.TrimSpace(a.ArticleName),
		Supplier:    optional(a.Supplier),
		EAN:         optional(a.EAN),
		Unit:        optional(a.Unit),
	}
	if a.Price != nil {
		ha.Price = MinorUnits(*a.Price)
	}
	if err := p.History.Upsert(ctx, userID, ha); err != nil {
		return nil, err
	}
	p.Logger.Info("pipeline.history.added", "user_id", userID, "article_id", ha.ArticleID)
	return p.History.GetByArticleID(ctx, userID, ha.ArticleID)
}

// MinorUnits converts a major-unit price to cents.
func MinorUnits(price float64) *int64 {
	c := int64(math.Round(price * 100))
	return &c
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
