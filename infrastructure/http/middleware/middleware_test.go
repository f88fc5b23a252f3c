package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/infrastructure/service/jwt"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.TokenClaims), args.Error(1)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return m.Called(ctx, key, window).Error(0)
}

func (m *MockRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return m.Called(ctx, key, duration, reason).Error(0)
}

func (m *MockRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func testLogger() (logger.Logger, *test.Hook) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return logger.FromLogrus(base, "test"), hook
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(UserID(r.Context())))
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data.Code
}

func TestRequireAuth(t *testing.T) {
	log, _ := testLogger()
	tokens := new(MockTokenService)
	tokens.On("ValidateAccessToken", "good").Return(&outbound.TokenClaims{UserID: "42"}, nil)
	tokens.On("ValidateAccessToken", "old").Return(nil, jwt.ErrTokenExpired)
	tokens.On("ValidateAccessToken", "bad").Return(nil, jwt.ErrInvalidToken)

	handler := NewAuthMiddleware(tokens, log).RequireAuth(okHandler())

	tests := []struct {
		name   string
		header string
		status int
		code   string
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "", "42"},
		{"missing header", "", http.StatusUnauthorized, "AUTH_1001", ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "AUTH_1003", ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, "AUTH_1003", ""},
		{"expired", "Bearer old", http.StatusUnauthorized, "AUTH_1004", ""},
		{"invalid", "Bearer bad", http.StatusUnauthorized, "AUTH_1003", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			} else {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestUserID_Anonymous(t *testing.T) {
	assert.Equal(t, "", UserID(context.Background()))
	assert.Nil(t, GetUserClaims(context.Background()))
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var seen string
	handler := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationID(r.Context())
	}))

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(CorrelationIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("generates uuid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		generated := rec.Header().Get(CorrelationIDHeader)
		assert.Len(t, generated, 36)
		assert.Equal(t, generated, seen)
	})

	t.Run("replaces unusable id", func(t *testing.T) {
		for _, cid := range []string{"has space", strings.Repeat("x", 129), "line\nbreak"} {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(CorrelationIDHeader, cid)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Len(t, rec.Header().Get(CorrelationIDHeader), 36, cid)
		}
	})
}

func TestCORS(t *testing.T) {
	handler := CORS(CORSPolicy{Origins: []string{"http://localhost:3000/"}, AllowCredentials: true})(okHandler())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/dashboard", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("plain options passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/dashboard", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("exposes export headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/export", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
		req.Header.Set("Origin", "http://evil.test")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("wildcard without credentials", func(t *testing.T) {
		open := CORS(CORSPolicy{Origins: []string{"*"}})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
		req.Header.Set("Origin", "http://anywhere.test")
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard ignored with credentials", func(t *testing.T) {
		strict := CORS(CORSPolicy{Origins: []string{"*"}, AllowCredentials: true})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
		req.Header.Set("Origin", "http://anywhere.test")
		rec := httptest.NewRecorder()
		strict.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	policy := RateLimitPolicy{Requests: 2, Window: time.Minute, BlockDuration: 5 * time.Minute}
	key := "dashboard:ip:10.0.0.1"

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		return req
	}

	t.Run("allows and counts", func(t *testing.T) {
		log, _ := testLogger()
		svc := new(MockRateLimitService)
		svc.On("IsBlocked", mock.Anything, key).Return(false, nil)
		svc.On("CheckLimit", mock.Anything, key, 2, time.Minute).Return(true, nil)
		svc.On("Increment", mock.Anything, key, time.Minute).Return(nil)
		svc.On("GetAttempts", mock.Anything, key).Return(1, nil)

		rec := httptest.NewRecorder()
		NewRateLimitMiddleware(svc, log, policy).RateLimit(okHandler()).ServeHTTP(rec, newRequest())

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
		svc.AssertExpectations(t)
	})

	t.Run("blocks over limit", func(t *testing.T) {
		log, hook := testLogger()
		svc := new(MockRateLimitService)
		svc.On("IsBlocked", mock.Anything, key).Return(false, nil)
		svc.On("CheckLimit", mock.Anything, key, 2, time.Minute).Return(false, nil)
		svc.On("Block", mock.Anything, key, 5*time.Minute, "Rate limit exceeded").Return(nil)

		rec := httptest.NewRecorder()
		NewRateLimitMiddleware(svc, log, policy).RateLimit(okHandler()).ServeHTTP(rec, newRequest())

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "300", rec.Header().Get("Retry-After"))
		assert.Equal(t, "RATE_3001", errorCode(t, rec))
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		svc.AssertExpectations(t)
		svc.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already blocked", func(t *testing.T) {
		log, _ := testLogger()
		svc := new(MockRateLimitService)
		svc.On("IsBlocked", mock.Anything, key).Return(true, nil)

		rec := httptest.NewRecorder()
		NewRateLimitMiddleware(svc, log, policy).RateLimit(okHandler()).ServeHTTP(rec, newRequest())

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		svc.AssertNotCalled(t, "CheckLimit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("redis failure fails open", func(t *testing.T) {
		log, _ := testLogger()
		svc := new(MockRateLimitService)
		svc.On("IsBlocked", mock.Anything, key).Return(false, errors.New("redis down"))
		svc.On("CheckLimit", mock.Anything, key, 2, time.Minute).Return(false, errors.New("redis down"))
		svc.On("Increment", mock.Anything, key, time.Minute).Return(errors.New("redis down"))
		svc.On("GetAttempts", mock.Anything, key).Return(0, errors.New("redis down"))

		rec := httptest.NewRecorder()
		NewRateLimitMiddleware(svc, log, policy).RateLimit(okHandler()).ServeHTTP(rec, newRequest())

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.1.1.1")
	assert.Equal(t, "10.1.1.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}

func TestRecovery(t *testing.T) {
	log, hook := testLogger()
	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "boom", hook.LastEntry().Data["error"])
}

func TestRequestLogger(t *testing.T) {
	log, hook := testLogger()
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/dashboard/evaluate", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, http.StatusAccepted, entry.Data["status"])
	assert.Equal(t, "POST /v1/dashboard/evaluate", entry.Data["operation"])
}
