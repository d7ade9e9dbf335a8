package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recall-backend/pkg/auth"
	"recall-backend/pkg/common"
	"recall-backend/pkg/errors"
)

// Authenticate extracts the caller's tenant identity from a bearer token and
// applies per-IP and per-tenant rate limits. Requests without an Authorization
// header proceed anonymously and only see unscoped records; requests that
// present a token must present a valid one. The limiters are owned by the
// caller, which stops their eviction loops on shutdown.
func Authenticate(validator *auth.JWTValidator, ipLimiter, tenantLimiter *auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ipLimiter.Allow(clientIP(r)) {
				common.RespondError(w, errors.NewRateLimitError("rate limit exceeded"))
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := auth.ExtractBearerToken(header)
			if !ok {
				common.RespondError(w, errors.NewUnauthorizedError("malformed authorization header"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Warn("token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				common.RespondError(w, err)
				return
			}

			tenant := claims.Tenant()
			if !tenantLimiter.Allow(tenant) {
				common.RespondError(w, errors.NewRateLimitError("tenant rate limit exceeded"))
				return
			}

			ctx := common.WithTenantID(r.Context(), tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP extracts the originating client address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
