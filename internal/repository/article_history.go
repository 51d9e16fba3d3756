package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

var historyColumnNames = []string{
	"id", "user_id", "article_id", "article_name", "supplier", "ean", "unit",
	"last_price", "order_count", "last_ordered_at", "created_at",
}

// HistoryArticle is one article being recorded into a user's history.
// A zero OrderedAt means now.
type HistoryArticle struct {
	ArticleID   string
	ArticleName string
	Supplier    *string
	EAN         *string
	Unit        *string
	Price       *int64
	OrderedAt   time.Time
}

type HistoryRepository interface {
	// ListRecent returns up to limit entries for userID, most recently
	// ordered first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*entity.ArticleHistoryEntry, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*entity.ArticleHistoryEntry, error)
	GetByArticleID(ctx context.Context, userID, articleID string) (*entity.ArticleHistoryEntry, error)
	Upsert(ctx context.Context, userID string, a HistoryArticle) error
	InsertBatch(ctx context.Context, userID string, articles []HistoryArticle) error
	Count(ctx context.Context, userID string) (int, error)
}

type historyRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewHistoryRepository(db *DB, logger *slog.Logger) HistoryRepository {
	return &historyRepository{db: db, logger: logger}
}

func (r *historyRepository) recent() *entsql.Selector {
	return r.db.builder().Select(historyColumnNames...).
		From(entsql.Table(historyTable)).
		OrderBy(entsql.Desc("last_ordered_at"), entsql.Desc("created_at"), entsql.Asc("id"))
}

func (r *historyRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*entity.ArticleHistoryEntry, error) {
	q := r.recent().Where(entsql.EQ("user_id", userID))
	if limit > 0 {
		q.Limit(limit)
	}
	return r.list(ctx, q, "user_id", userID)
}

// Search matches query case-insensitively against name, supplier and EAN.
func (r *historyRepository) Search(ctx context.Context, userID, query string, limit int) ([]*entity.ArticleHistoryEntry, error) {
	q := r.recent().Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.Or(
			entsql.ContainsFold("article_name", query),
			entsql.ContainsFold("supplier", query),
			entsql.Contains("ean", query),
		),
	))
	if limit > 0 {
		q.Limit(limit)
	}
	return r.list(ctx, q, "user_id", userID, "query", query)
}

func (r *historyRepository) list(ctx context.Context, q entsql.Querier, logArgs ...any) ([]*entity.ArticleHistoryEntry, error) {
	rows, err := queryAll[entity.ArticleHistoryEntry](ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to read article history", append(logArgs, "error", err)...)
		return nil, err
	}
	out := make([]*entity.ArticleHistoryEntry, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *historyRepository) GetByArticleID(ctx context.Context, userID, articleID string) (*entity.ArticleHistoryEntry, error) {
	q := r.db.builder().Select(historyColumnNames...).
		From(entsql.Table(historyTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("article_id", articleID)))
	rows, err := r.list(ctx, q, "user_id", userID, "article_id", articleID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NewAppError("ARTICLE_NOT_FOUND", fmt.Sprintf("article %s not found in history", articleID), common.ErrNotFound)
	}
	return rows[0], nil
}

// Upsert records an order of a.ArticleID: a new row starts at order_count 1,
// an existing one is bumped and keeps any optional field the caller left nil.
func (r *historyRepository) Upsert(ctx context.Context, userID string, a HistoryArticle) error {
	b := r.db.builder()
	q := r.insert(userID, a, now()).
		OnConflict(
			entsql.ConflictColumns("user_id", "article_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("article_name")
				u.SetExcluded("last_ordered_at")
				u.Add("order_count", 1)
				excluded := b.Table("excluded")
				for _, c := range []string{"supplier", "ean", "unit", "last_price"} {
					u.Set(c, entsql.Expr(fmt.Sprintf("COALESCE(%s, %s)", excluded.C(c), u.Table().C(c))))
				}
			}),
		)
	if _, err := exec(ctx, r.db, q); err != nil {
		r.logger.Error("failed to upsert article history", "user_id", userID, "article_id", a.ArticleID, "error", err)
		return err
	}
	return nil
}

// InsertBatch inserts articles as new rows; rows that already exist for the
// user are left untouched.
func (r *historyRepository) InsertBatch(ctx context.Context, userID string, articles []HistoryArticle) error {
	if len(articles) == 0 {
		return nil
	}
	ts := now()
	q := r.db.builder().Insert(historyTable).Columns(historyColumnNames...)
	for _, a := range articles {
		q.Values(r.values(userID, a, ts)...)
	}
	q.OnConflict(entsql.ConflictColumns("user_id", "article_id"), entsql.DoNothing())
	if _, err := exec(ctx, r.db, q); err != nil {
		r.logger.Error("failed to insert article history batch", "user_id", userID, "count", len(articles), "error", err)
		return err
	}
	return nil
}

func (r *historyRepository) Count(ctx context.Context, userID string) (int, error) {
	q := r.db.builder().Select(entsql.Count("*")).
		From(entsql.Table(historyTable)).
		Where(entsql.EQ("user_id", userID))
	n, err := count(ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to count article history", "user_id", userID, "error", err)
		return 0, err
	}
	return n, nil
}

func (r *historyRepository) insert(userID string, a HistoryArticle, ts time.Time) *entsql.InsertBuilder {
	return r.db.builder().Insert(historyTable).
		Columns(historyColumnNames...).
		Values(r.values(userID, a, ts)...)
}

func (r *historyRepository) values(userID string, a HistoryArticle, ts time.Time) []any {
	ordered := a.OrderedAt
	if ordered.IsZero() {
		ordered = ts
	}
	return []any{
		uuid.NewString(), userID, a.ArticleID, a.ArticleName, a.Supplier, a.EAN, a.Unit,
		a.Price, 1, ordered.UTC(), ts,
	}
}
