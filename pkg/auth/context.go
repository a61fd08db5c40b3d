package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyUserID is the context key for the identity provider's subject
	ContextKeyUserID contextKey = "user_id"
	// ContextKeyOrgID is the context key for the caller's organization
	ContextKeyOrgID contextKey = "org_id"
)

// WithUserID adds the user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext retrieves the user ID from the context
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok && id != ""
}

// WithOrgID adds the organization ID to the context
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, ContextKeyOrgID, orgID)
}

// OrgIDFromContext retrieves the organization ID from the context
func OrgIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyOrgID).(string)
	return id, ok && id != ""
}

// AuthInfo contains all authentication information for a request
type AuthInfo struct {
	UserID string
	OrgID  string
}

// WithAuthInfo adds all authentication info to the context
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	ctx = WithUserID(ctx, info.UserID)
	ctx = WithOrgID(ctx, info.OrgID)
	return ctx
}

// AuthInfoFromContext retrieves all authentication info from the context
func AuthInfoFromContext(ctx context.Context) *AuthInfo {
	info := &AuthInfo{}
	info.UserID, _ = UserIDFromContext(ctx)
	info.OrgID, _ = OrgIDFromContext(ctx)
	return info
}
