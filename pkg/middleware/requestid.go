package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a random identifier, stores it in the
// request context for the logger, and echoes it in the response header.
// An identifier supplied by the client is kept as-is.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
