package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/llm"
	llmmock "github.com/joseph-ayodele/voice-orders/internal/llm/mock"
	"github.com/joseph-ayodele/voice-orders/internal/matcher"
	"github.com/joseph-ayodele/voice-orders/internal/pipeline"
	"github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/repository/sqlitetest"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
	trmock "github.com/joseph-ayodele/voice-orders/internal/transcribe/mock"
)

type fixture struct {
	proc        *pipeline.Processor
	history     repository.HistoryRepository
	items       repository.LineItemRepository
	extractor   *llmmock.Extractor
	transcriber *trmock.Transcriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := sqlitetest.New(t)
	logger := sqlitetest.Logger()
	orders := repository.NewOrderRepository(db, logger)
	items := repository.NewLineItemRepository(db, logger)
	history := repository.NewHistoryRepository(db, logger)
	ex := &llmmock.Extractor{}
	tr := &trmock.Transcriber{}
	m := matcher.New(history, items, matcher.DefaultWindow, nil, logger)
	proc := pipeline.NewProcessor(logger, orders, items, history,
		transcribe.NewAudioSource(time.Second, logger), tr, ex, m, nil)
	return &fixture{proc: proc, history: history, items: items, extractor: ex, transcriber: tr}
}

func (f *fixture) seed(t *testing.T, userID string, articles ...repository.HistoryArticle) {
	t.Helper()
	if err := f.history.InsertBatch(context.Background(), userID, articles); err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("RIFFfake"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func i64Ptr(n int64) *int64   { return &n }

var colaAndSprite = []llm.ExtractedItem{
	{ArticleName: "Coca Cola", Quantity: 2, Unit: "Kiste"},
	{ArticleName: "Sprite", Quantity: 1.6, Unit: "Flasche"},
}

func TestProcessText_ParsesAndMatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "user-1",
		repository.HistoryArticle{ArticleID: "A-1", ArticleName: "Coca-Cola", Supplier: strPtr("Getränke Huber"), Price: i64Ptr(1899)},
		repository.HistoryArticle{ArticleID: "A-2", ArticleName: "Fanta Orange 1,0l"},
	)
	f.extractor.Items = colaAndSprite

	res, err := f.proc.ProcessText(ctx, "user-1", "zwei Kisten Coca Cola und eine Flasche Sprite")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if res.Order.Status != constants.OrderStatusPending {
		t.Errorf("Status=%q, want pending", res.Order.Status)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items=%d, want 2", len(res.Items))
	}

	cola, sprite := res.Items[0], res.Items[1]
	if cola.ArticleName != "Coca Cola" || cola.Quantity != 2 || cola.Unit != "Kiste" {
		t.Errorf("cola=%+v", cola)
	}
	if cola.MatchedArticleID == nil || *cola.MatchedArticleID != "A-1" {
		t.Fatalf("cola MatchedArticleID=%v, want A-1", cola.MatchedArticleID)
	}
	if *cola.Confidence != 89 {
		t.Errorf("cola Confidence=%d, want 89", *cola.Confidence)
	}
	if cola.MatchedSupplier == nil || *cola.MatchedSupplier != "Getränke Huber" {
		t.Errorf("cola MatchedSupplier=%v", cola.MatchedSupplier)
	}
	if cola.MatchedPrice == nil || *cola.MatchedPrice != 1899 {
		t.Errorf("cola MatchedPrice=%v", cola.MatchedPrice)
	}
	if cola.Confirmed {
		t.Error("cola confirmed, want unconfirmed")
	}

	if sprite.Quantity != 2 {
		t.Errorf("sprite Quantity=%d, want 2 (rounded from 1.6)", sprite.Quantity)
	}
	if sprite.Matched() || sprite.Confidence != nil || sprite.MatchSource != nil {
		t.Errorf("sprite should be unmatched: %+v", sprite)
	}
}

func TestProcessText_ZeroItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.proc.ProcessText(context.Background(), "user-1", "hallo")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("items=%d, want 0", len(res.Items))
	}
}

func TestProcessText_Rejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.proc.ProcessText(ctx, "user-1", "   "); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("empty text err=%v, want ErrInvalidInput", err)
	}
	if _, err := f.proc.ProcessText(ctx, "", "Cola"); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("no user err=%v, want ErrUnauthorized", err)
	}
	if f.extractor.CallCount() != 0 {
		t.Errorf("extractor called %d times, want 0", f.extractor.CallCount())
	}
}

func TestProcessText_ExtractionFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.extractor.Err = errors.New("upstream 500")

	_, err := f.proc.ProcessText(context.Background(), "user-1", "Cola")
	if !errors.Is(err, common.ErrExtractionFailed) {
		t.Fatalf("err=%v, want ErrExtractionFailed", err)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Message != "Parsing der Bestellung fehlgeschlagen" {
		t.Errorf("err=%v, want German extraction message", err)
	}
}

func TestProcessAudio_CompletesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "user-1", repository.HistoryArticle{ArticleID: "A-1", ArticleName: "Coca-Cola"})
	f.transcriber.Result = transcribe.Result{Text: "zwei Kisten Coca Cola und eine Flasche Sprite", Language: "de"}
	f.extractor.Items = colaAndSprite

	o, err := f.proc.CreateOrder(ctx, "user-1", writeAudio(t, "order.m4a"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	res, err := f.proc.ProcessAudio(ctx, "user-1", o.ID)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	if res.Order.Status != constants.OrderStatusCompleted {
		t.Errorf("Status=%q, want completed", res.Order.Status)
	}
	if res.Order.Transcription == nil || *res.Order.Transcription != f.transcriber.Result.Text {
		t.Errorf("Transcription=%v", res.Order.Transcription)
	}
	if len(res.Items) != 2 || !res.Items[0].Matched() {
		t.Fatalf("items=%+v, want 2 with the first matched", res.Items)
	}

	if f.transcriber.CallCount() != 1 {
		t.Fatalf("transcriber calls=%d, want 1", f.transcriber.CallCount())
	}
	call := f.transcriber.Calls[0]
	if call.Language != "de" {
		t.Errorf("Language=%q, want de", call.Language)
	}
	if call.Prompt != llm.TranscriptionPrompt {
		t.Errorf("Prompt=%q, want the German order prompt", call.Prompt)
	}
	if call.Filename != "order.m4a" || string(call.Audio) != "RIFFfake" {
		t.Errorf("call=%+v", call)
	}
	if got := f.extractor.Calls; len(got) != 1 || got[0] != f.transcriber.Result.Text {
		t.Errorf("extractor calls=%q", got)
	}
}

func TestTranscribe_FailureMarksError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.transcriber.Err = errors.New("whisper down")

	o, err := f.proc.CreateOrder(ctx, "user-1", writeAudio(t, "a.wav"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	_, err = f.proc.ProcessAudio(ctx, "user-1", o.ID)
	if !errors.Is(err, common.ErrTranscriptionFailed) {
		t.Fatalf("err=%v, want ErrTranscriptionFailed", err)
	}

	got, err := f.proc.GetOrder(ctx, "user-1", o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Order.Status != constants.OrderStatusError {
		t.Errorf("Status=%q, want error", got.Order.Status)
	}
	if got.Order.Transcription != nil {
		t.Errorf("Transcription=%q, want nil", *got.Order.Transcription)
	}
	if len(got.Items) != 0 {
		t.Errorf("items=%d, want 0", len(got.Items))
	}
	if f.extractor.CallCount() != 0 {
		t.Error("extractor ran after failed transcription")
	}
}

func TestTranscribe_UnreadableAudioMarksError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	o, err := f.proc.CreateOrder(ctx, "user-1", filepath.Join(t.TempDir(), "missing.mp3"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.proc.Transcribe(ctx, "user-1", o.ID, ""); !errors.Is(err, common.ErrTranscriptionFailed) {
		t.Fatalf("err=%v, want ErrTranscriptionFailed", err)
	}
	got, _ := f.proc.GetOrder(ctx, "user-1", o.ID)
	if got.Order.Status != constants.OrderStatusError {
		t.Errorf("Status=%q, want error", got.Order.Status)
	}
}

func TestTranscribe_RequiresPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.transcriber.Result = transcribe.Result{Text: "eine Kiste Wasser"}

	o, _ := f.proc.CreateOrder(ctx, "user-1", writeAudio(t, "a.mp3"))
	if _, err := f.proc.Transcribe(ctx, "user-1", o.ID, ""); err != nil {
		t.Fatalf("first Transcribe: %v", err)
	}
	if _, err := f.proc.Transcribe(ctx, "user-1", o.ID, ""); !errors.Is(err, common.ErrInvalidState) {
		t.Errorf("second Transcribe err=%v, want ErrInvalidState", err)
	}
	if f.transcriber.CallCount() != 1 {
		t.Errorf("transcriber calls=%d, want 1", f.transcriber.CallCount())
	}
}

func TestTranscribe_NoAudio(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	o, _ := f.proc.CreateOrder(ctx, "user-1", "")
	if _, err := f.proc.Transcribe(ctx, "user-1", o.ID, ""); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err=%v, want ErrInvalidInput", err)
	}
	got, _ := f.proc.GetOrder(ctx, "user-1", o.ID)
	if got.Order.Status != constants.OrderStatusPending {
		t.Errorf("Status=%q, want pending", got.Order.Status)
	}
}

func TestParse_UsesStoredTranscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.transcriber.Result = transcribe.Result{Text: "drei Kilo Tomaten"}
	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "Tomaten", Quantity: 3, Unit: "Kilo"}}

	o, _ := f.proc.CreateOrder(ctx, "user-1", writeAudio(t, "a.ogg"))
	if _, err := f.proc.Transcribe(ctx, "user-1", o.ID, ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	items, err := f.proc.Parse(ctx, "user-1", o.ID, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 1 || items[0].ArticleName != "Tomaten" {
		t.Errorf("items=%+v", items)
	}
	if got := f.extractor.Calls; len(got) != 1 || got[0] != "drei Kilo Tomaten" {
		t.Errorf("extractor calls=%q", got)
	}
}

func TestParse_NothingToParse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	o, _ := f.proc.CreateOrder(ctx, "user-1", "")
	if _, err := f.proc.Parse(ctx, "user-1", o.ID, ""); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err=%v, want ErrInvalidInput", err)
	}
}

func TestRoundQuantity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want int
	}{
		{2, 2},
		{1.6, 2},
		{1.4, 1},
		{2.5, 3},
		{0.4, 0},
	}
	for _, tt := range tests {
		if got := pipeline.RoundQuantity(tt.in); got != tt.want {
			t.Errorf("RoundQuantity(%v)=%d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOrders_ScopedToUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "Milch", Quantity: 1, Unit: "Liter"}}

	res, err := f.proc.ProcessText(ctx, "user-1", "ein Liter Milch")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	id := res.Order.ID

	if _, err := f.proc.GetOrder(ctx, "user-2", id); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetOrder err=%v, want ErrNotFound", err)
	}
	if _, err := f.proc.Match(ctx, "user-2", id); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Match err=%v, want ErrNotFound", err)
	}
	if _, err := f.proc.ConfirmItem(ctx, "user-2", res.Items[0].ID, true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("ConfirmItem err=%v, want ErrNotFound", err)
	}
	list, err := f.proc.ListOrders(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("user-2 sees %d orders, want 0", len(list))
	}
}

func TestUpdateItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "user-1",
		repository.HistoryArticle{ArticleID: "A-1", ArticleName: "Coca-Cola", Price: i64Ptr(1899)},
		repository.HistoryArticle{ArticleID: "A-9", ArticleName: "Sprite 1,0l", Supplier: strPtr("Getränke Huber"), Price: i64Ptr(1450)},
	)
	f.extractor.Items = colaAndSprite
	res, err := f.proc.ProcessText(ctx, "user-1", "Cola und Sprite")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	sprite := res.Items[1]

	got, err := f.proc.UpdateItem(ctx, "user-1", sprite.ID, pipeline.ItemUpdate{
		Quantity:         intPtr(6),
		Unit:             strPtr(" Kiste "),
		MatchedArticleID: strPtr("A-9"),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.Quantity != 6 || got.Unit != "Kiste" {
		t.Errorf("quantity/unit=%d/%q, want 6/Kiste", got.Quantity, got.Unit)
	}
	if got.MatchedArticleID == nil || *got.MatchedArticleID != "A-9" {
		t.Fatalf("MatchedArticleID=%v, want A-9", got.MatchedArticleID)
	}
	if *got.Confidence != pipeline.ManualConfidence || *got.MatchSource != constants.MatchSourceManual {
		t.Errorf("confidence/source=%d/%s", *got.Confidence, *got.MatchSource)
	}
	if got.MatchedSupplier == nil || *got.MatchedSupplier != "Getränke Huber" || *got.MatchedPrice != 1450 {
		t.Errorf("matched fields=%+v", got)
	}

	// rematching keeps the manual choice
	items, err := f.proc.Match(ctx, "user-1", res.Order.ID)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if *items[1].MatchedArticleID != "A-9" || *items[1].MatchSource != constants.MatchSourceManual {
		t.Errorf("manual match replaced: %+v", items[1])
	}

	cleared, err := f.proc.UpdateItem(ctx, "user-1", sprite.ID, pipeline.ItemUpdate{MatchedArticleID: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateItem clear: %v", err)
	}
	if cleared.Matched() || cleared.Confidence != nil || cleared.MatchSource != nil {
		t.Errorf("match not cleared: %+v", cleared)
	}

	confirmed, err := f.proc.ConfirmItem(ctx, "user-1", sprite.ID, true)
	if err != nil {
		t.Fatalf("ConfirmItem: %v", err)
	}
	if !confirmed.Confirmed || confirmed.Quantity != 6 {
		t.Errorf("confirmed=%+v", confirmed)
	}
}

func TestUpdateItem_Rejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "Milch", Quantity: 1, Unit: "Liter"}}
	res, err := f.proc.ProcessText(ctx, "user-1", "Milch")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	id := res.Items[0].ID

	tests := []struct {
		name string
		upd  pipeline.ItemUpdate
		want error
	}{
		{"zero quantity", pipeline.ItemUpdate{Quantity: intPtr(0)}, common.ErrInvalidInput},
		{"blank unit", pipeline.ItemUpdate{Unit: strPtr("  ")}, common.ErrInvalidInput},
		{"unknown article", pipeline.ItemUpdate{MatchedArticleID: strPtr("nope")}, common.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.proc.UpdateItem(ctx, "user-1", id, tt.upd); !errors.Is(err, tt.want) {
				t.Errorf("err=%v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.proc.ConfirmItem(ctx, "user-1", "missing", true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing item err=%v, want ErrNotFound", err)
	}
}

func TestAddHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	price := 0.89

	a := pipeline.NewArticle{ArticleID: "A-7", ArticleName: "Apfelschorle", Supplier: "Getränke Huber", Price: &price}
	first, err := f.proc.AddHistory(ctx, "user-1", a)
	if err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if first.OrderCount != 1 || first.LastPrice == nil || *first.LastPrice != 89 {
		t.Errorf("first=%+v, want count 1 price 89", first)
	}

	a.Price = nil
	second, err := f.proc.AddHistory(ctx, "user-1", a)
	if err != nil {
		t.Fatalf("AddHistory again: %v", err)
	}
	if second.OrderCount != 2 || *second.LastPrice != 89 {
		t.Errorf("second=%+v, want count 2 price kept", second)
	}

	found, err := f.proc.SearchHistory(ctx, "user-1", "huber")
	if err != nil {
		t.Fatalf("SearchHistory: %v", err)
	}
	if len(found) != 1 || found[0].ArticleID != "A-7" {
		t.Errorf("found=%+v", found)
	}

	if _, err := f.proc.AddHistory(ctx, "user-1", pipeline.NewArticle{ArticleID: "A-8"}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("missing name err=%v, want ErrInvalidInput", err)
	}
}

func TestProcessText_MatchWritesEveryField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "user-1", repository.HistoryArticle{ArticleID: "a1", ArticleName: "Coca Cola"})
	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "Coca-Cola", Quantity: 1, Unit: "Kiste"}}

	res, err := f.proc.ProcessText(ctx, "user-1", "eine Kiste Coca-Cola")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	it := res.Items[0]
	if it.MatchedArticleID == nil || it.MatchedArticleName == nil || it.MatchedSupplier == nil ||
		it.MatchedPrice == nil || it.Confidence == nil || it.MatchSource == nil {
		t.Fatalf("partial match: %+v", it)
	}
	if *it.MatchedSupplier != "" || *it.MatchedPrice != 0 {
		t.Errorf("supplier/price=%q/%d, want empty/0", *it.MatchedSupplier, *it.MatchedPrice)
	}

	stored, err := f.items.Get(ctx, it.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.MatchedSupplier == nil || stored.MatchedPrice == nil {
		t.Errorf("stored item lost matched fields: %+v", stored)
	}
}

func TestParse_TwiceAppendsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	o, err := f.proc.CreateOrder(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "A1", Quantity: 1, Unit: "Stück"}, {ArticleName: "A2", Quantity: 1, Unit: "Stück"}}
	if _, err := f.proc.Parse(ctx, "user-1", o.ID, "erste Runde"); err != nil {
		t.Fatalf("Parse 1: %v", err)
	}
	f.extractor.Items = []llm.ExtractedItem{{ArticleName: "B1", Quantity: 1, Unit: "Stück"}, {ArticleName: "B2", Quantity: 1, Unit: "Stück"}}
	if _, err := f.proc.Parse(ctx, "user-1", o.ID, "zweite Runde"); err != nil {
		t.Fatalf("Parse 2: %v", err)
	}

	got, err := f.proc.GetOrder(ctx, "user-1", o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	want := []string{"A1", "A2", "B1", "B2"}
	if len(got.Items) != len(want) {
		t.Fatalf("items=%d, want %d", len(got.Items), len(want))
	}
	for i, it := range got.Items {
		if it.ArticleName != want[i] {
			t.Errorf("items[%d]=%s, want %s", i, it.ArticleName, want[i])
		}
	}
}
