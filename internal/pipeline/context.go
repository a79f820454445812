package pipeline

import "context"

type sessionKey struct{}

// ContextWithSessionID tags runs started with ctx with the owning session
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session tagged on ctx, or ""
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(sessionKey{}).(string); ok {
		return id
	}
	return ""
}
