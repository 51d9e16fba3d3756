package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyUserID contextKey = "user_id"
)

// WithUserID adds the caller's user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext extracts the caller's user ID from context
func UserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return userID
	}
	return ""
}
