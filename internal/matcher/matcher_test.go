package matcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

func strPtr(s string) *string { return &s }
func i64Ptr(n int64) *int64   { return &n }

type fakeHistory struct {
	entries []*entity.ArticleHistoryEntry
	err     error
	limit   int
}

func (f *fakeHistory) ListRecent(_ context.Context, _ string, limit int) ([]*entity.ArticleHistoryEntry, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeItems struct {
	mu       sync.Mutex
	items    []*entity.LineItem
	writes   int
	failOnID string
}

func (f *fakeItems) ListByOrder(context.Context, string) ([]*entity.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.LineItem, len(f.items))
	for i, it := range f.items {
		cp := *it
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeItems) SetMatch(_ context.Context, id string, m *entity.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failOnID {
		return errors.New("write failed")
	}
	f.writes++
	for _, it := range f.items {
		if it.ID != id {
			continue
		}
		if m == nil {
			it.MatchedArticleID, it.MatchedArticleName, it.MatchedSupplier = nil, nil, nil
			it.MatchedPrice, it.Confidence, it.MatchSource = nil, nil, nil
			return nil
		}
		conf, src, supplier, price := m.Confidence, m.Source, m.Supplier, m.Price
		it.MatchedArticleID = &m.ArticleID
		it.MatchedArticleName = &m.ArticleName
		it.MatchedSupplier = &supplier
		it.MatchedPrice = &price
		it.Confidence = &conf
		it.MatchSource = &src
	}
	return nil
}

func history(names ...string) []*entity.ArticleHistoryEntry {
	out := make([]*entity.ArticleHistoryEntry, len(names))
	for i, n := range names {
		out[i] = &entity.ArticleHistoryEntry{
			ID:          "h" + n,
			ArticleID:   "art-" + n,
			ArticleName: n,
			Supplier:    strPtr("Metro"),
			LastPrice:   i64Ptr(int64(1000 + i)),
		}
	}
	return out
}

func TestBestMatch_PrefersCloserName(t *testing.T) {
	t.Parallel()
	corpus := []*entity.ArticleHistoryEntry{
		{ArticleID: "1", ArticleName: "Coca Cola", LastPrice: i64Ptr(1065)},
		{ArticleID: "2", ArticleName: "Cola Zero", LastPrice: i64Ptr(1200)},
	}
	m, ok := BestMatch("Coca-Cola", corpus)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Entry.ArticleID != "1" {
		t.Errorf("matched %q, want 1", m.Entry.ArticleID)
	}
	if c := Confidence(m.Score); c < 80 {
		t.Errorf("confidence=%d, want >= 80", c)
	}
	if m.Result().Price != 1065 {
		t.Errorf("price=%d, want 1065", m.Result().Price)
	}
}

func TestMatchResult_FillsMissingSupplierAndPrice(t *testing.T) {
	t.Parallel()
	m, ok := BestMatch("Coca-Cola", []*entity.ArticleHistoryEntry{{ArticleID: "a1", ArticleName: "Coca Cola"}})
	if !ok {
		t.Fatal("expected a match")
	}
	r := m.Result()
	if r.ArticleID != "a1" || r.ArticleName != "Coca Cola" || r.Supplier != "" || r.Price != 0 {
		t.Errorf("result=%+v, want a1/Coca Cola with empty supplier and zero price", r)
	}
	if r.Confidence != 89 || r.Source != constants.MatchSourceAuto {
		t.Errorf("confidence/source=%d/%s, want 89/auto", r.Confidence, r.Source)
	}
}

func TestBestMatch_TieKeepsFirstSeen(t *testing.T) {
	t.Parallel()
	// both differ from "abcd" by one substitution
	corpus := []*entity.ArticleHistoryEntry{
		{ArticleID: "first", ArticleName: "abce"},
		{ArticleID: "second", ArticleName: "abcf"},
	}
	m, ok := BestMatch("abcd", corpus)
	if !ok || m.Entry.ArticleID != "first" {
		t.Fatalf("got %+v ok=%v, want first", m.Entry, ok)
	}

	corpus[0], corpus[1] = corpus[1], corpus[0]
	m, _ = BestMatch("abcd", corpus)
	if m.Entry.ArticleID != "second" {
		t.Errorf("after reorder got %q, want second", m.Entry.ArticleID)
	}
}

func TestBestMatch_Threshold(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		// "abcde" vs "abxyz": 3 edits of 5 -> 0.4
		{"well below", "abxyz", false},
		// "abcde" vs "abcyz": 2 edits of 5 -> exactly 0.6, rejected
		{"exactly at threshold", "abcyz", false},
		// "abcde" vs "abcdz": 1 edit of 5 -> 0.8
		{"above", "abcdz", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok := BestMatch("abcde", []*entity.ArticleHistoryEntry{{ArticleName: tc.candidate}})
			if ok != tc.want {
				t.Errorf("BestMatch(abcde, %s) ok=%v, want %v", tc.candidate, ok, tc.want)
			}
		})
	}
}

func TestBestMatch_EmptyCorpus(t *testing.T) {
	t.Parallel()
	if _, ok := BestMatch("Milch", nil); ok {
		t.Error("empty corpus produced a match")
	}
}

func TestConfidence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		score float64
		want  int
	}{
		{1, 100},
		{8.0 / 9.0, 89},
		{2.0 / 3.0, 67},
		{0.125, 13},
		{0.61, 61},
	}
	for _, tc := range tests {
		if got := Confidence(tc.score); got != tc.want {
			t.Errorf("Confidence(%v)=%d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestMatchOrderItems_WritesEveryItem(t *testing.T) {
	t.Parallel()
	hist := &fakeHistory{entries: history("Coca Cola", "Vollmilch")}
	items := &fakeItems{items: []*entity.LineItem{
		{ID: "i1", ArticleName: "Coca-Cola"},
		{ID: "i2", ArticleName: "Sprite"},
	}}
	m := New(hist, items, 0, nil, nil)

	got, err := m.MatchOrderItems(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("MatchOrderItems: %v", err)
	}
	if hist.limit != DefaultWindow {
		t.Errorf("corpus limit=%d, want %d", hist.limit, DefaultWindow)
	}
	if items.writes != 2 {
		t.Errorf("writes=%d, want 2 (unmatched items are persisted too)", items.writes)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	cola, sprite := got[0], got[1]
	if !cola.Matched() || *cola.MatchedArticleID != "art-Coca Cola" || *cola.Confidence != 89 {
		t.Errorf("cola not matched as expected: %+v", cola)
	}
	if *cola.MatchSource != constants.MatchSourceAuto {
		t.Errorf("source=%q, want auto", *cola.MatchSource)
	}
	if sprite.MatchedArticleID != nil || sprite.MatchedArticleName != nil || sprite.MatchedSupplier != nil ||
		sprite.MatchedPrice != nil || sprite.Confidence != nil {
		t.Errorf("sprite should have no matched fields: %+v", sprite)
	}
}

func TestMatchOrderItems_ClearsStaleMatch(t *testing.T) {
	t.Parallel()
	conf := 90
	src := constants.MatchSourceAuto
	items := &fakeItems{items: []*entity.LineItem{{
		ID: "i1", ArticleName: "Sprite",
		MatchedArticleID: strPtr("old"), MatchedArticleName: strPtr("Old"),
		MatchedSupplier: strPtr("X"), MatchedPrice: i64Ptr(1), Confidence: &conf, MatchSource: &src,
	}}}
	m := New(&fakeHistory{entries: history("Vollmilch")}, items, 10, nil, nil)

	got, err := m.MatchOrderItems(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("MatchOrderItems: %v", err)
	}
	if got[0].Matched() || got[0].Confidence != nil || got[0].MatchedPrice != nil {
		t.Errorf("stale match not cleared: %+v", got[0])
	}
}

func TestMatchOrderItems_KeepsManualOverride(t *testing.T) {
	t.Parallel()
	conf := 100
	manual := constants.MatchSourceManual
	items := &fakeItems{items: []*entity.LineItem{{
		ID: "i1", ArticleName: "Coca-Cola",
		MatchedArticleID: strPtr("chosen"), MatchedArticleName: strPtr("Pepsi"),
		Confidence: &conf, MatchSource: &manual,
	}}}
	m := New(&fakeHistory{entries: history("Coca Cola")}, items, 10, nil, nil)

	got, err := m.MatchOrderItems(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("MatchOrderItems: %v", err)
	}
	if items.writes != 0 {
		t.Errorf("writes=%d, want 0", items.writes)
	}
	if *got[0].MatchedArticleID != "chosen" {
		t.Errorf("manual override replaced by %q", *got[0].MatchedArticleID)
	}
}

func TestMatchOrderItems_CorpusErrorAbortsBeforeWrites(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	items := &fakeItems{items: []*entity.LineItem{{ID: "i1", ArticleName: "Milch"}}}
	m := New(&fakeHistory{err: boom}, items, 10, nil, nil)

	if _, err := m.MatchOrderItems(context.Background(), "u1", "o1"); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if items.writes != 0 {
		t.Errorf("writes=%d, want 0", items.writes)
	}
}

func TestMatchOrderItems_WriteErrorKeepsEarlierWrites(t *testing.T) {
	t.Parallel()
	items := &fakeItems{
		items: []*entity.LineItem{
			{ID: "i1", ArticleName: "Coca-Cola"},
			{ID: "i2", ArticleName: "Coca Cola"},
		},
		failOnID: "i2",
	}
	m := New(&fakeHistory{entries: history("Coca Cola")}, items, 10, nil, nil)

	if _, err := m.MatchOrderItems(context.Background(), "u1", "o1"); err == nil {
		t.Fatal("expected write error")
	}
	if !items.items[0].Matched() {
		t.Error("first item should stay matched")
	}
}

func TestMatchOrderItems_Idempotent(t *testing.T) {
	t.Parallel()
	items := &fakeItems{items: []*entity.LineItem{
		{ID: "i1", ArticleName: "Coca-Cola"},
		{ID: "i2", ArticleName: "Volmilch"},
	}}
	m := New(&fakeHistory{entries: history("Coca Cola", "Vollmilch")}, items, 10, observe.DefaultMetrics(), nil)

	first, err := m.MatchOrderItems(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := m.MatchOrderItems(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range first {
		a, b := first[i], second[i]
		if *a.MatchedArticleID != *b.MatchedArticleID || *a.Confidence != *b.Confidence || *a.MatchedPrice != *b.MatchedPrice {
			t.Errorf("item %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
}
