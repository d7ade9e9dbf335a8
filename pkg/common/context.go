package common

import "context"

type contextKey string

const (
	// TenantIDKey carries the caller's tenant identity for visibility scoping
	TenantIDKey contextKey = "tenantID"
	// RequestIDKey carries the request correlation ID
	RequestIDKey contextKey = "requestID"
)

// WithTenantID returns a context carrying the tenant identity
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID extracts the tenant identity from the context
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// WithRequestID returns a context carrying the request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	return requestID, ok && requestID != ""
}
