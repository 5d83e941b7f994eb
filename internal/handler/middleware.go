package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	subjectKey contextKey = "subject"
	tenantKey  contextKey = "tenant"
)

// TenantClaims are the claims a tenant token carries.
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TenantAuthMiddleware validates HS256 Bearer tokens and checks that the
// token's tenant_id matches the {tenantId} in the route. The token subject is
// put in the context as the acting user. An empty secret disables the check.
func TenantAuthMiddleware(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(w, r, secret, logger)
			if !ok {
				return
			}

			tenantID := chi.URLParam(r, "tenantId")
			if claims.TenantID != tenantID {
				handleServiceError(w, &domain.ErrForbidden{Action: "access tenant " + tenantID}, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireToken accepts any valid tenant token. It guards routes that are not
// scoped to a {tenantId}; handlers read the caller's tenant back with
// TenantFromContext. An empty secret disables the check.
func RequireToken(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(w, r, secret, logger)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// bearerClaims parses the Authorization header. On failure it has already
// written the response.
func bearerClaims(w http.ResponseWriter, r *http.Request, secret []byte, logger *zap.Logger) (*TenantClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("auth: missing token",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		writeError(w, http.StatusUnauthorized, "invalid authorization header")
		return nil, false
	}

	claims, err := ParseTenantToken(parts[1], secret)
	if err != nil {
		logger.Warn("auth: invalid or expired token",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		handleServiceError(w, err, logger)
		return nil, false
	}
	return claims, true
}

func withClaims(ctx context.Context, claims *TenantClaims) context.Context {
	ctx = context.WithValue(ctx, subjectKey, claims.Subject)
	return context.WithValue(ctx, tenantKey, claims.TenantID)
}

// ParseTenantToken verifies signature and expiry and returns the claims.
func ParseTenantToken(tokenString string, secret []byte) (*TenantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := token.Claims.(*TenantClaims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// TenantFromContext returns the tenant the caller's token belongs to, if any.
func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey).(string)
	return v
}

// tenantLookup is the part of TenantService RequireTenant needs.
type tenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}

// RequireTenant answers 404 for routes under an unknown tenant.
func RequireTenant(tenants tenantLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := tenants.GetTenant(r.Context(), chi.URLParam(r, "tenantId")); err != nil {
				handleServiceError(w, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
