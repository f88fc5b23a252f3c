package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sancella/sancella/application/port/outbound"
	apperror "github.com/sancella/sancella/domain/error"
	"github.com/sancella/sancella/infrastructure/http/response"
	"github.com/sancella/sancella/infrastructure/service/jwt"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

type contextKey string

const AuthUserKey contextKey = "auth_user"

type AuthMiddleware struct {
	tokenService outbound.TokenService
	logger       logger.Logger
}

func NewAuthMiddleware(tokenService outbound.TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		logger:       log,
	}
}

// RequireAuth rejects requests without a valid bearer access token and stores
// the token claims in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.AppError(w, apperror.ErrMissingToken())
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.AppError(w, apperror.ErrInvalidToken("invalid authorization header format"))
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(parts[1])
		if err != nil {
			logger.LogSecurityEvent(r.Context(), m.logger, "invalid_token", "LOW", map[string]interface{}{
				"path":  r.URL.Path,
				"ip":    getClientIP(r),
				"error": err.Error(),
			})
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.AppError(w, apperror.ErrTokenExpired(""))
				return
			}
			response.AppError(w, apperror.ErrInvalidToken(""))
			return
		}

		ctx := context.WithValue(r.Context(), AuthUserKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserClaims retrieves user claims from context
func GetUserClaims(ctx context.Context) *outbound.TokenClaims {
	if claims, ok := ctx.Value(AuthUserKey).(*outbound.TokenClaims); ok {
		return claims
	}
	return nil
}

// UserID returns the authenticated user id, or "" for anonymous requests
func UserID(ctx context.Context) string {
	if claims := GetUserClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}
