package remote

import "context"

type tokenKey struct{}

// WithToken stashes a caller-supplied session token on the context so the
// client forwards it upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the stashed token, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
