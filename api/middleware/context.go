package middleware

import (
	"context"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxAccessID  contextKey = "access_id"
	ctxIPAddress contextKey = "ip_address"
	ctxUserAgent contextKey = "user_agent"
)

func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v, true
	}
	return 0, false
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// ActorFromContext assembles the audit actor seeded by the middleware chain.
// The user id is nil when the request was not authenticated.
func ActorFromContext(ctx context.Context) audit.Actor {
	actor := audit.Actor{}
	if id, ok := UserIDFromContext(ctx); ok {
		actor.UserID = &id
	}
	if v, ok := ctx.Value(ctxIPAddress).(string); ok && v != "" {
		actor.IPAddress = &v
	}
	if v, ok := ctx.Value(ctxUserAgent).(string); ok && v != "" {
		actor.UserAgent = &v
	}
	return actor
}
