package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"recall-backend/pkg/errors"
)

// Claims represents the JWT claims we care about
type Claims struct {
	Subject  string `json:"sub"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Tenant returns the tenant identity the token asserts. An explicit
// tenant_id claim wins; otherwise the subject is the tenant.
func (c *Claims) Tenant() string {
	if c.TenantID != "" {
		return c.TenantID
	}
	return c.Subject
}

// JWTValidator validates HS256 bearer tokens
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for the given shared secret.
// The issuer check is skipped when issuer is empty.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

// Validate parses and verifies a token string, returning its claims
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, errors.NewUnauthorizedError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid token")
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.NewUnauthorizedError("invalid token issuer")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.NewUnauthorizedError("token expired")
	}
	if claims.Tenant() == "" {
		return nil, errors.NewUnauthorizedError("token missing subject")
	}
	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value
func ExtractBearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
