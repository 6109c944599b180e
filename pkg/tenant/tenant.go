// Package tenant resolves which isolated store a call operates against.
// Every service in this codebase is parameterized by a Resolver instead of a
// fixed database handle, so one process can serve many client organizations
// without a global mutable registry.
package tenant

import "context"

type contextKey struct{}

// WithCode binds a tenant code to the context for downstream resolution.
func WithCode(ctx context.Context, code string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, code)
}

// CodeFromContext returns the tenant code bound to the context, if any.
func CodeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return ""
}
