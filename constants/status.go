package constants

// OrderStatus is the lifecycle status stored on voice_orders rows.
type OrderStatus string

// Stable values (store these exact strings in DB).
const (
	OrderStatusPending    OrderStatus = "pending"    // created, nothing run yet
	OrderStatusProcessing OrderStatus = "processing" // transcription in flight
	OrderStatusCompleted  OrderStatus = "completed"  // transcription stored
	OrderStatusError      OrderStatus = "error"      // terminal failure
)

var allStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusError,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// MatchSource records who set the matched-* fields of a line item.
type MatchSource string

const (
	MatchSourceAuto   MatchSource = "auto"
	MatchSourceManual MatchSource = "manual"
)
