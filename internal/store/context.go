package store

import "context"

type contextKey string

const (
	// UserIDKey is the context key for the platform user ID of the caller.
	UserIDKey contextKey = "jibot_user_id"
	// UserNameKey is the context key for the caller's display name.
	UserNameKey contextKey = "jibot_user_name"
	// WorkspaceKey is the context key for the workspace (Slack team, Discord guild, "mud").
	WorkspaceKey contextKey = "jibot_workspace"
	// ChannelKey is the context key for the channel the message arrived on.
	ChannelKey contextKey = "jibot_channel"
)

// WithUserID returns a new context with the given user ID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// UserIDFromContext extracts the user ID from context. Returns "" if not set.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserName returns a new context with the caller's display name.
func WithUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, UserNameKey, name)
}

// UserNameFromContext extracts the caller's display name. Returns "" if not set.
func UserNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UserNameKey).(string); ok {
		return v
	}
	return ""
}

// WithWorkspace returns a new context with the given workspace ID.
func WithWorkspace(ctx context.Context, ws string) context.Context {
	return context.WithValue(ctx, WorkspaceKey, ws)
}

// WorkspaceFromContext extracts the workspace ID. Returns "" if not set.
func WorkspaceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(WorkspaceKey).(string); ok {
		return v
	}
	return ""
}

// WithChannel returns a new context with the given channel ID.
func WithChannel(ctx context.Context, ch string) context.Context {
	return context.WithValue(ctx, ChannelKey, ch)
}

// ChannelFromContext extracts the channel ID. Returns "" if not set.
func ChannelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ChannelKey).(string); ok {
		return v
	}
	return ""
}
