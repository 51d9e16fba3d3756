package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

// Parse extracts line items from text, or from the stored transcription when
// text is empty, and stores them unconfirmed in extractor order. Zero items
// is a valid outcome. The order status is not touched.
func (p *Processor) Parse(ctx context.Context, userID, orderID, text string) ([]*entity.LineItem, error) {
	unlock := p.locks.Lock(orderID)
	defer unlock()

	o, err := p.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return p.parse(ctx, o, text)
}

func (p *Processor) parse(ctx context.Context, o *entity.Order, text string) (items []*entity.LineItem, err error) {
	text = strings.TrimSpace(text)
	if text == "" && o.Transcription != nil {
		text = strings.TrimSpace(*o.Transcription)
	}
	if text == "" {
		return nil, common.NewAppError("EMPTY_TEXT", "no text to parse", common.ErrInvalidInput)
	}

	start := time.Now()
	defer func() { p.Metrics.RecordStage(ctx, observe.StageParse, err, time.Since(start)) }()
	p.Logger.Info("pipeline.parse.start", "order_id", o.ID, "text_len", len(text))

	extracted, err := p.Extractor.ExtractItems(ctx, text)
	if err != nil {
		p.Logger.Error("pipeline.parse.extract_failed",
			"order_id", o.ID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError("EXTRACTION_FAILED", "Parsing der Bestellung fehlgeschlagen", common.ErrExtractionFailed)
	}

	rows := make([]entity.NewLineItem, len(extracted))
	for i, it := range extracted {
		rows[i] = entity.NewLineItem{
			ArticleName: it.ArticleName,
			Quantity:    RoundQuantity(it.Quantity),
			Unit:        it.Unit,
		}
	}
	items, err = p.Items.CreateBatch(ctx, o.ID, rows)
	if err != nil {
		return nil, err
	}
	p.Metrics.RecordExtracted(ctx, len(items))
	p.Logger.Info("pipeline.parse.ok",
		"order_id", o.ID,
		"items", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items, nil
}

// RoundQuantity rounds to the nearest integer, halves away from zero.
func RoundQuantity(q float64) int {
	return int(math.Round(q))
}
