// Package async runs order processing on a bounded pool of background workers.
package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

// Job asks for one order to be transcribed, parsed and matched.
type Job struct {
	OrderID     string
	UserID      string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// OrderProcessor runs the full pipeline for an order that carries audio.
type OrderProcessor interface {
	ProcessAudio(ctx context.Context, userID, orderID string) (*entity.OrderWithItems, error)
}
