package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

// ManualConfidence is stored on matches the user picked by hand.
const ManualConfidence = 100

// ItemUpdate is a caller edit of one line item. Nil fields are untouched.
// An empty MatchedArticleID clears the match.
type ItemUpdate struct {
	Quantity         *int
	Unit             *string
	MatchedArticleID *string
	Confirmed        *bool
}

// ConfirmItem sets the confirmed flag of a line item.
func (p *Processor) ConfirmItem(ctx context.Context, userID, itemID string, confirmed bool) (*entity.LineItem, error) {
	return p.UpdateItem(ctx, userID, itemID, ItemUpdate{Confirmed: &confirmed})
}

// UpdateItem applies upd to a line item of one of the user's orders and
// returns the stored item. The order itself is not changed.
func (p *Processor) UpdateItem(ctx context.Context, userID, itemID string, upd ItemUpdate) (*entity.LineItem, error) {
	v := common.NewValidator().Field("quantity", upd.Quantity, common.Positive)
	if upd.Unit != nil {
		v.Field("unit", upd.Unit, common.Required, common.MaxLength(50))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	it, err := p.Items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	unlock := p.locks.Lock(it.OrderID)
	defer unlock()
	o, err := p.ownedOrder(ctx, userID, it.OrderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAppError("ITEM_NOT_FOUND", "line item "+itemID+" not found", common.ErrNotFound)
		}
		return nil, err
	}

	if upd.MatchedArticleID != nil {
		if err := p.overrideMatch(ctx, o.UserID, it.ID, strings.TrimSpace(*upd.MatchedArticleID)); err != nil {
			return nil, err
		}
	}

	patch := entity.LineItemPatch{Quantity: upd.Quantity, Confirmed: upd.Confirmed}
	if upd.Unit != nil {
		u := strings.TrimSpace(*upd.Unit)
		patch.Unit = &u
	}
	if patch.Quantity != nil || patch.Unit != nil || patch.Confirmed != nil {
		if err := p.Items.Update(ctx, it.ID, patch); err != nil {
			return nil, err
		}
	}
	p.Logger.Info("pipeline.item.updated",
		"order_id", o.ID,
		"item_id", it.ID,
		"quantity", upd.Quantity != nil,
		"unit", upd.Unit != nil,
		"match", upd.MatchedArticleID != nil,
		"confirmed", upd.Confirmed != nil,
	)
	return p.Items.Get(ctx, it.ID)
}

func (p *Processor) overrideMatch(ctx context.Context, userID, itemID, articleID string) error {
	if articleID == "" {
		return p.Items.SetMatch(ctx, itemID, nil)
	}
	a, err := p.History.GetByArticleID(ctx, userID, articleID)
	if err != nil {
		return err
	}
	return p.Items.SetMatch(ctx, itemID, entity.NewMatchResult(a, ManualConfidence, constants.MatchSourceManual))
}
