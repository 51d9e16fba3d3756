// Package matcher links parsed line items to articles the user ordered
// before.
package matcher

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
	"github.com/joseph-ayodele/voice-orders/internal/similarity"
)

// AcceptanceThreshold is the score a candidate must strictly exceed.
const AcceptanceThreshold = 0.6

// DefaultWindow is how many recent history entries form the corpus.
const DefaultWindow = 100

// Match is the best history entry for a name and its score.
type Match struct {
	Entry *entity.ArticleHistoryEntry
	Score float64
}

// BestMatch scans corpus in order and returns the highest scoring entry
// above AcceptanceThreshold. On equal scores the earlier entry wins.
func BestMatch(name string, corpus []*entity.ArticleHistoryEntry) (Match, bool) {
	var best Match
	for _, e := range corpus {
		s := similarity.Score(name, e.ArticleName)
		if s > AcceptanceThreshold && s > best.Score {
			best = Match{Entry: e, Score: s}
		}
	}
	return best, best.Entry != nil
}

// Confidence converts a score in [0,1] to a percentage, rounding half away
// from zero.
func Confidence(score float64) int {
	return int(math.Round(score * 100))
}

// Result builds the full set of matched fields for m.
func (m Match) Result() *entity.MatchResult {
	return entity.NewMatchResult(m.Entry, Confidence(m.Score), constants.MatchSourceAuto)
}

// HistoryReader yields the user's recent articles.
type HistoryReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]*entity.ArticleHistoryEntry, error)
}

// ItemStore reads and writes the line items of an order.
type ItemStore interface {
	ListByOrder(ctx context.Context, orderID string) ([]*entity.LineItem, error)
	SetMatch(ctx context.Context, id string, m *entity.MatchResult) error
}

type Matcher struct {
	history HistoryReader
	items   ItemStore
	window  int
	metrics *observe.Metrics
	logger  *slog.Logger
}

func New(history HistoryReader, items ItemStore, window int, metrics *observe.Metrics, logger *slog.Logger) *Matcher {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{history: history, items: items, window: window, metrics: metrics, logger: logger}
}

// MatchOrderItems scores every line item of orderID against the user's recent
// history and persists each result, matched or cleared. Items whose match was
// set by hand are left alone. The order's items are returned as stored
// afterwards.
func (m *Matcher) MatchOrderItems(ctx context.Context, userID, orderID string) ([]*entity.LineItem, error) {
	start := time.Now()
	corpus, err := m.history.ListRecent(ctx, userID, m.window)
	if err != nil {
		m.logger.Error("matcher.corpus.failed", "order_id", orderID, "user_id", userID, "error", err)
		return nil, err
	}
	items, err := m.items.ListByOrder(ctx, orderID)
	if err != nil {
		m.logger.Error("matcher.items.failed", "order_id", orderID, "error", err)
		return nil, err
	}

	var matched, skipped int
	for _, it := range items {
		if it.MatchSource != nil && *it.MatchSource == constants.MatchSourceManual {
			skipped++
			continue
		}
		var res *entity.MatchResult
		if best, ok := BestMatch(it.ArticleName, corpus); ok {
			res = best.Result()
			matched++
			m.logger.Debug("matcher.item.matched",
				"item_id", it.ID, "article_name", it.ArticleName,
				"article_id", res.ArticleID, "confidence", res.Confidence)
		}
		if err := m.items.SetMatch(ctx, it.ID, res); err != nil {
			m.logger.Error("matcher.item.write_failed", "order_id", orderID, "item_id", it.ID, "error", err)
			return nil, err
		}
		m.metrics.RecordMatch(ctx, res != nil)
	}

	m.logger.Info("matcher.done",
		"order_id", orderID,
		"items", len(items),
		"matched", matched,
		"manual", skipped,
		"corpus", len(corpus),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return m.items.ListByOrder(ctx, orderID)
}
