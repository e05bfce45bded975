package middleware

import "context"

// SetRequestIDForTest injects a request ID into the context for testing.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return WithRequestID(ctx, id)
}
