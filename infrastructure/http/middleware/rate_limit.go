package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sancella/sancella/application/port/inbound"
	apperror "github.com/sancella/sancella/domain/error"
	"github.com/sancella/sancella/infrastructure/http/response"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// RateLimitPolicy is the request budget of one client IP
type RateLimitPolicy struct {
	Requests      int
	Window        time.Duration
	BlockDuration time.Duration
}

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	logger           logger.Logger
	policy           RateLimitPolicy
}

func NewRateLimitMiddleware(rateLimitService inbound.RateLimitService, log logger.Logger, policy RateLimitPolicy) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           log,
		policy:           policy,
	}
}

func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimitService == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := getClientIP(r)
		key := fmt.Sprintf("dashboard:ip:%s", clientIP)

		// Redis failures never block a request
		isBlocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
		}
		if isBlocked {
			m.reject(w, r, key, "rate_limit_blocked", "MEDIUM")
			return
		}

		allowed, err := m.rateLimitService.CheckLimit(ctx, key, m.policy.Requests, m.policy.Window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
			allowed = true
		}
		if !allowed {
			if err := m.rateLimitService.Block(ctx, key, m.policy.BlockDuration, "Rate limit exceeded"); err != nil {
				m.logger.Error(ctx, "Failed to block IP", err, map[string]interface{}{
					"ip":  clientIP,
					"key": key,
				})
			}
			m.reject(w, r, key, "rate_limit_exceeded", "HIGH")
			return
		}

		if err := m.rateLimitService.Increment(ctx, key, m.policy.Window); err != nil {
			m.logger.Error(ctx, "Failed to increment rate limit", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
		}
		if attempts, err := m.rateLimitService.GetAttempts(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.policy.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(m.policy.Requests-attempts, 0)))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, key, event, severity string) {
	logger.LogSecurityEvent(r.Context(), m.logger, event, severity, map[string]interface{}{
		"ip":        getClientIP(r),
		"path":      r.URL.Path,
		"key":       key,
		"userAgent": r.UserAgent(),
	})
	w.Header().Set("Retry-After", strconv.Itoa(int(m.policy.BlockDuration.Seconds())))
	response.AppError(w, apperror.ErrRateLimitExceeded(m.policy.Requests, m.policy.Window.String()))
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
