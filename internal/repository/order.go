package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

var orderColumns = []string{"id", "user_id", "audio_ref", "transcription", "status", "created_at", "updated_at"}

// OrderUpdate is a status transition, optionally carrying the transcription.
type OrderUpdate struct {
	Status        constants.OrderStatus
	Transcription *string
}

type OrderRepository interface {
	Create(ctx context.Context, userID string, audioRef *string) (*entity.Order, error)
	Get(ctx context.Context, id string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Order, error)
	Update(ctx context.Context, id string, upd OrderUpdate) error
}

type orderRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewOrderRepository(db *DB, logger *slog.Logger) OrderRepository {
	return &orderRepository{db: db, logger: logger}
}

func (r *orderRepository) Create(ctx context.Context, userID string, audioRef *string) (*entity.Order, error) {
	ts := now()
	o := &entity.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		AudioRef:  audioRef,
		Status:    constants.OrderStatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	q := r.db.builder().Insert(ordersTable).
		Columns(orderColumns...).
		Values(o.ID, o.UserID, o.AudioRef, o.Transcription, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if _, err := exec(ctx, r.db, q); err != nil {
		r.logger.Error("failed to create order", "user_id", userID, "error", err)
		return nil, err
	}
	r.logger.Debug("order created", "order_id", o.ID, "user_id", userID)
	return o, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*entity.Order, error) {
	q := r.db.builder().Select(orderColumns...).
		From(entsql.Table(ordersTable)).
		Where(entsql.EQ("id", id))
	rows, err := queryAll[entity.Order](ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to get order", "order_id", id, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NewAppError("ORDER_NOT_FOUND", fmt.Sprintf("order %s not found", id), common.ErrNotFound)
	}
	return &rows[0], nil
}

// ListByUser returns the user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Order, error) {
	q := r.db.builder().Select(orderColumns...).
		From(entsql.Table(ordersTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		q.Limit(limit)
	}
	rows, err := queryAll[entity.Order](ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to list orders", "user_id", userID, "error", err)
		return nil, err
	}
	out := make([]*entity.Order, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *orderRepository) Update(ctx context.Context, id string, upd OrderUpdate) error {
	if !upd.Status.Valid() {
		return common.NewAppError("INVALID_STATUS", fmt.Sprintf("unknown order status %q", upd.Status), common.ErrInvalidInput)
	}
	q := r.db.builder().Update(ordersTable).
		Set("status", string(upd.Status)).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if upd.Transcription != nil {
		q.Set("transcription", *upd.Transcription)
	}
	n, err := exec(ctx, r.db, q)
	if err != nil {
		r.logger.Error("failed to update order", "order_id", id, "status", upd.Status, "error", err)
		return err
	}
	if n == 0 {
		return common.NewAppError("ORDER_NOT_FOUND", fmt.Sprintf("order %s not found", id), common.ErrNotFound)
	}
	r.logger.Debug("order updated", "order_id", id, "status", upd.Status)
	return nil
}
