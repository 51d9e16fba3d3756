package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/async"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/pipeline"
)

// Exporter renders an order as a spreadsheet.
type Exporter interface {
	ExportOrderXLSX(ctx context.Context, userID, orderID string) ([]byte, string, error)
}

type OrderServer struct {
	proc     *pipeline.Processor
	queue    async.Queue
	exporter Exporter
	logger   *slog.Logger
}

var _ OrderServiceServer = (*OrderServer)(nil)

func NewOrderServer(proc *pipeline.Processor, queue async.Queue, exporter Exporter, logger *slog.Logger) *OrderServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderServer{proc: proc, queue: queue, exporter: exporter, logger: logger}
}

func (s *OrderServer) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	o, err := s.proc.CreateOrder(ctx, common.UserIDFromContext(ctx), req.AudioRef)
	if err != nil {
		return nil, err
	}
	return &OrderResponse{Order: o}, nil
}

func (s *OrderServer) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if err := requireID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	res, err := s.proc.Transcribe(ctx, common.UserIDFromContext(ctx), req.OrderID, req.AudioRef)
	if err != nil {
		return nil, err
	}
	return &TranscribeResponse{OrderID: req.OrderID, Text: res.Text, Language: res.Language}, nil
}

func (s *OrderServer) ParseTranscription(ctx context.Context, req *ParseTranscriptionRequest) (*ItemsResponse, error) {
	if err := requireID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	items, err := s.proc.Parse(ctx, common.UserIDFromContext(ctx), req.OrderID, req.Text)
	if err != nil {
		return nil, err
	}
	return &ItemsResponse{Items: nonNil(items)}, nil
}

func (s *OrderServer) MatchArticles(ctx context.Context, req *MatchArticlesRequest) (*ItemsResponse, error) {
	if err := requireID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	items, err := s.proc.Match(ctx, common.UserIDFromContext(ctx), req.OrderID)
	if err != nil {
		return nil, err
	}
	return &ItemsResponse{Items: nonNil(items)}, nil
}

func (s *OrderServer) ProcessText(ctx context.Context, req *ProcessTextRequest) (*OrderWithItemsResponse, error) {
	ow, err := s.proc.ProcessText(ctx, common.UserIDFromContext(ctx), req.Text)
	if err != nil {
		return nil, err
	}
	return withItems(ow), nil
}

// SubmitAudioOrder creates the order and returns at once; transcription,
// parsing and matching run on the background queue.
func (s *OrderServer) SubmitAudioOrder(ctx context.Context, req *SubmitAudioOrderRequest) (*OrderResponse, error) {
	if err := requireID("audio_ref", req.AudioRef); err != nil {
		return nil, err
	}
	userID := common.UserIDFromContext(ctx)
	o, err := s.proc.CreateOrder(ctx, userID, req.AudioRef)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, async.Job{OrderID: o.ID, UserID: userID, SubmittedAt: time.Now()}); err != nil {
		s.logger.Error("order.submit.enqueue_failed", "order_id", o.ID, "error", err)
		return nil, err
	}
	return &OrderResponse{Order: o}, nil
}

func (s *OrderServer) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderWithItemsResponse, error) {
	if err := requireID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	ow, err := s.proc.GetOrder(ctx, common.UserIDFromContext(ctx), req.OrderID)
	if err != nil {
		return nil, err
	}
	return withItems(ow), nil
}

func (s *OrderServer) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersResponse, error) {
	orders, err := s.proc.ListOrders(ctx, common.UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*entity.Order{}
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

func (s *OrderServer) ConfirmItem(ctx context.Context, req *ConfirmItemRequest) (*ItemResponse, error) {
	if err := requireID("item_id", req.ItemID); err != nil {
		return nil, err
	}
	it, err := s.proc.ConfirmItem(ctx, common.UserIDFromContext(ctx), req.ItemID, req.Confirmed)
	if err != nil {
		return nil, err
	}
	return &ItemResponse{Item: it}, nil
}

func (s *OrderServer) UpdateItem(ctx context.Context, req *UpdateItemRequest) (*ItemResponse, error) {
	if err := requireID("item_id", req.ItemID); err != nil {
		return nil, err
	}
	it, err := s.proc.UpdateItem(ctx, common.UserIDFromContext(ctx), req.ItemID, pipeline.ItemUpdate{
		Quantity:         req.Quantity,
		Unit:             req.Unit,
		MatchedArticleID: req.MatchedArticleID,
		Confirmed:        req.Confirmed,
	})
	if err != nil {
		return nil, err
	}
	return &ItemResponse{Item: it}, nil
}

func (s *OrderServer) ExportOrder(ctx context.Context, req *ExportOrderRequest) (*ExportOrderResponse, error) {
	if err := requireID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	data, name, err := s.exporter.ExportOrderXLSX(ctx, common.UserIDFromContext(ctx), req.OrderID)
	if err != nil {
		return nil, err
	}
	return &ExportOrderResponse{Filename: name, Xlsx: data}, nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return common.NewAppError("MISSING_FIELD", field+" is required", common.ErrInvalidInput)
	}
	return nil
}

func withItems(ow *entity.OrderWithItems) *OrderWithItemsResponse {
	return &OrderWithItemsResponse{Order: ow.Order, Items: nonNil(ow.Items)}
}

func nonNil(items []*entity.LineItem) []*entity.LineItem {
	if items == nil {
		return []*entity.LineItem{}
	}
	return items
}
