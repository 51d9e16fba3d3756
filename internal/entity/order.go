package entity

import (
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
)

// Order is one voice or text order attempt.
type Order struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	AudioRef      *string               `json:"audio_ref,omitempty"`
	Transcription *string               `json:"transcription,omitempty"`
	Status        constants.OrderStatus `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// OrderWithItems is an order together with its line items, in creation order.
type OrderWithItems struct {
	Order *Order      `json:"order"`
	Items []*LineItem `json:"items"`
}
