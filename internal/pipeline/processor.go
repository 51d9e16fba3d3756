// Package pipeline drives an order from audio or text to matched line items.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/llm"
	"github.com/joseph-ayodele/voice-orders/internal/matcher"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
	"github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
)

// ListLimit is how many orders ListOrders returns.
const ListLimit = 50

// AudioOpener resolves an audio reference to a readable recording.
type AudioOpener interface {
	Open(ctx context.Context, ref string) (*transcribe.Audio, error)
}

// Processor owns the order lifecycle. Transcribe, Parse and Match for the
// same order never run concurrently.
type Processor struct {
	Logger      *slog.Logger
	Orders      repository.OrderRepository
	Items       repository.LineItemRepository
	History     repository.HistoryRepository
	Audio       AudioOpener
	Transcriber transcribe.Transcriber
	Extractor   llm.PhraseExtractor
	Matcher     *matcher.Matcher
	Metrics     *observe.Metrics

	locks *keyedMutex
}

func NewProcessor(
	logger *slog.Logger,
	orders repository.OrderRepository,
	items repository.LineItemRepository,
	history repository.HistoryRepository,
	audio AudioOpener,
	tr transcribe.Transcriber,
	ex llm.PhraseExtractor,
	m *matcher.Matcher,
	metrics *observe.Metrics,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:      logger,
		Orders:      orders,
		Items:       items,
		History:     history,
		Audio:       audio,
		Transcriber: tr,
		Extractor:   ex,
		Matcher:     m,
		Metrics:     metrics,
		locks:       newKeyedMutex(),
	}
}

// CreateOrder allocates a pending order for userID. audioRef may be empty.
func (p *Processor) CreateOrder(ctx context.Context, userID, audioRef string) (*entity.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var ref *string
	if s := strings.TrimSpace(audioRef); s != "" {
		ref = &s
	}
	o, err := p.Orders.Create(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("pipeline.order.created", "order_id", o.ID, "user_id", userID, "has_audio", ref != nil)
	return o, nil
}

// GetOrder returns the order and its items in creation order.
func (p *Processor) GetOrder(ctx context.Context, userID, orderID string) (*entity.OrderWithItems, error) {
	o, err := p.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := p.Items.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &entity.OrderWithItems{Order: o, Items: items}, nil
}

// ListOrders returns the user's most recent orders, newest first.
func (p *Processor) ListOrders(ctx context.Context, userID string) ([]*entity.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return p.Orders.ListByUser(ctx, userID, ListLimit)
}

// ProcessText creates an order without audio, then parses and matches text
// into it. The order keeps its pending status.
func (p *Processor) ProcessText(ctx context.Context, userID, text string) (*entity.OrderWithItems, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, common.NewAppError("EMPTY_TEXT", "order text is required", common.ErrInvalidInput)
	}
	o, err := p.CreateOrder(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(o.ID)
	defer unlock()
	if _, err := p.parse(ctx, o, text); err != nil {
		return nil, err
	}
	items, err := p.match(ctx, o)
	if err != nil {
		return nil, err
	}
	return &entity.OrderWithItems{Order: o, Items: items}, nil
}

// ProcessAudio runs transcription, parsing and matching for an existing
// order that carries an audio reference.
func (p *Processor) ProcessAudio(ctx context.Context, userID, orderID string) (*entity.OrderWithItems, error) {
	unlock := p.locks.Lock(orderID)
	defer unlock()

	o, err := p.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	res, err := p.transcribe(ctx, o, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Text) != "" {
		if _, err := p.parse(ctx, o, res.Text); err != nil {
			return nil, err
		}
	} else {
		p.Logger.Warn("pipeline.process.empty_transcription", "order_id", o.ID)
	}
	items, err := p.match(ctx, o)
	if err != nil {
		return nil, err
	}
	o, err = p.Orders.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &entity.OrderWithItems{Order: o, Items: items}, nil
}

// ownedOrder loads orderID and hides orders that belong to someone else.
func (p *Processor) ownedOrder(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	o, err := p.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, orderNotFound(orderID)
	}
	return o, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return common.NewAppError("UNAUTHENTICATED", "user id is required", common.ErrUnauthorized)
	}
	return nil
}

func orderNotFound(id string) error {
	return common.NewAppError("ORDER_NOT_FOUND", fmt.Sprintf("order %s not found", id), common.ErrNotFound)
}
