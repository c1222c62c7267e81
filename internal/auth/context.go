package auth

import "context"

type ctxKey int

const userIDKey ctxKey = 0

func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFrom returns the authenticated user's id, or nil when the request
// is unauthenticated (ownership scoping disabled).
func UserIDFrom(ctx context.Context) *uint {
	if id, ok := ctx.Value(userIDKey).(uint); ok {
		return &id
	}
	return nil
}
