package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sancella/sancella/infrastructure/service/logger"
)

const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLength = 128

// CorrelationIDMiddleware reuses the caller's correlation ID when it is usable,
// otherwise mints one, and exposes it to loggers through the request context.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if !validCorrelationID(cid) {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(logger.WithCorrelationID(r.Context(), cid)))
	})
}

// IDs end up in log lines, so only short printable ASCII is accepted
func validCorrelationID(cid string) bool {
	if cid == "" || len(cid) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(cid); i++ {
		if cid[i] < 0x21 || cid[i] > 0x7e {
			return false
		}
	}
	return true
}
