package pipeline

import (
	"context"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

// Match scores every line item of the order against the user's recent
// article history and returns the items as stored afterwards.
func (p *Processor) Match(ctx context.Context, userID, orderID string) ([]*entity.LineItem, error) {
	unlock := p.locks.Lock(orderID)
	defer unlock()

	o, err := p.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return p.match(ctx, o)
}

func (p *Processor) match(ctx context.Context, o *entity.Order) (items []*entity.LineItem, err error) {
	start := time.Now()
	defer func() { p.Metrics.RecordStage(ctx, observe.StageMatch, err, time.Since(start)) }()
	return p.Matcher.MatchOrderItems(ctx, o.UserID, o.ID)
}
