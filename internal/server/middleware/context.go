package middleware

import "context"

type contextKey struct{ name string }

var ownerIDKey = contextKey{"owner_id"}

// WithOwnerID returns a context with the authenticated owner's ID set.
// Handlers and services read it via GetOwnerID.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// GetOwnerID returns the owner ID from context and true if set; otherwise "", false.
func GetOwnerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ownerIDKey).(string)
	return v, ok
}
