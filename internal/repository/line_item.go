package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

var itemColumns = []string{
	"id", "order_id", "position", "article_name", "quantity", "unit",
	"matched_article_id", "matched_article_name", "matched_supplier", "matched_price",
	"confidence", "match_source", "confirmed", "created_at", "updated_at",
}

type LineItemRepository interface {
	CreateBatch(ctx context.Context, orderID string, items []entity.NewLineItem) ([]*entity.LineItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.LineItem, error)
	Get(ctx context.Context, id string) (*entity.LineItem, error)
	// SetMatch writes every matched field at once; a nil match clears them all.
	SetMatch(ctx context.Context, id string, m *entity.MatchResult) error
	Update(ctx context.Context, id string, patch entity.LineItemPatch) error
}

type lineItemRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewLineItemRepository(db *DB, logger *slog.Logger) LineItemRepository {
	return &lineItemRepository{db: db, logger: logger}
}

// CreateBatch inserts items in one statement. Positions follow slice order
// and continue after the items the order already has.
func (r *lineItemRepository) CreateBatch(ctx context.Context, orderID string, items []entity.NewLineItem) ([]*entity.LineItem, error) {
	if len(items) == 0 {
		return []*entity.LineItem{}, nil
	}
	next, err := r.nextPosition(ctx, orderID)
	if err != nil {
		r.logger.Error("failed to read item positions", "order_id", orderID, "error", err)
		return nil, err
	}
	ts := now()
	q := r.db.builder().Insert(itemsTable).
		Columns("id", "order_id", "position", "article_name", "quantity", "unit", "confirmed", "created_at", "updated_at")
	out := make([]*entity.LineItem, 0, len(items))
	for i, it := range items {
		li := &entity.LineItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			Position:    next + i,
			ArticleName: it.ArticleName,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		q.Values(li.ID, li.OrderID, li.Position, li.ArticleName, li.Quantity, li.Unit, false, ts, ts)
		out = append(out, li)
	}
	if _, err := exec(ctx, r.db, q); err != nil {
		r.logger.Error("failed to insert line items", "order_id", orderID, "count", len(items), "error", err)
		return nil, err
	}
	r.logger.Debug("line items inserted", "order_id", orderID, "count", len(out))
	return out, nil
}

// nextPosition is one past the highest position used by orderID, 0 when empty.
func (r *lineItemRepository) nextPosition(ctx context.Context, orderID string) (int, error) {
	q := r.db.builder().SelectExpr(entsql.Expr("COALESCE(MAX(position) + 1, 0)")).
		From(entsql.Table(itemsTable)).
		Where(entsql.EQ("order_id", orderID))
	return count(ctx, r.db, q)
}

func (r *lineItemRepository) ListByOrder(ctx context.Context, orderID string) ([]*entity.LineItem, error) {
	q := r.db.builder().Select(itemColumns...).
		From(entsql.Table(itemsTable)).
		Where(entsql.EQ("order_id", orderID)).
		OrderBy(entsql.Asc("position"), entsql.Asc("created_at"))
	rows, err := queryAll[entity.LineItem](ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to list line items", "order_id", orderID, "error", err)
		return nil, err
	}
	out := make([]*entity.LineItem, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *lineItemRepository) Get(ctx context.Context, id string) (*entity.LineItem, error) {
	q := r.db.builder().Select(itemColumns...).
		From(entsql.Table(itemsTable)).
		Where(entsql.EQ("id", id))
	rows, err := queryAll[entity.LineItem](ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to get line item", "item_id", id, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, itemNotFound(id)
	}
	return &rows[0], nil
}

func (r *lineItemRepository) SetMatch(ctx context.Context, id string, m *entity.MatchResult) error {
	q := r.db.builder().Update(itemsTable).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if m == nil {
		q.SetNull("matched_article_id").
			SetNull("matched_article_name").
			SetNull("matched_supplier").
			SetNull("matched_price").
			SetNull("confidence").
			SetNull("match_source")
	} else {
		q.Set("matched_article_id", m.ArticleID).
			Set("matched_article_name", m.ArticleName).
			Set("matched_supplier", m.Supplier).
			Set("matched_price", m.Price).
			Set("confidence", m.Confidence).
			Set("match_source", string(m.Source))
	}
	n, err := exec(ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to write match", "item_id", id, "error", err)
		return err
	}
	if n == 0 {
		return itemNotFound(id)
	}
	return nil
}

func (r *lineItemRepository) Update(ctx context.Context, id string, patch entity.LineItemPatch) error {
	q := r.db.builder().Update(itemsTable).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if patch.Quantity != nil {
		q.Set("quantity", *patch.Quantity)
	}
	if patch.Unit != nil {
		q.Set("unit", *patch.Unit)
	}
	if patch.Confirmed != nil {
		q.Set("confirmed", *patch.Confirmed)
	}
	n, err := exec(ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to update line item", "item_id", id, "error", err)
		return err
	}
	if n == 0 {
		return itemNotFound(id)
	}
	return nil
}

func itemNotFound(id string) error {
	return common.NewAppError("ITEM_NOT_FOUND", fmt.Sprintf("line item %s not found", id), common.ErrNotFound)
}
