package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the request session to the context. The
// middleware does this once per request; everything downstream reads the
// actor from it instead of ambient state.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the request session, nil when the request
// carried none.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
