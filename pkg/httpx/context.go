package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID carries the authenticated voter's ID.
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeySessionID carries the persistent session row ID.
	CtxKeySessionID ctxKey = "session_id"
	// CtxKeyIsAdmin marks sessions belonging to the admin allow-list.
	CtxKeyIsAdmin ctxKey = "is_admin"
)

// UserIDFromContext returns the authenticated user ID, or "" when the
// request carries no valid session.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the current session row ID, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// IsAdminFromContext reports whether the session was flagged as admin.
func IsAdminFromContext(ctx context.Context) bool {
	v, ok := ctx.Value(CtxKeyIsAdmin).(bool)
	return ok && v
}
