package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

// withRequestContext gera/propaga o X-Request-Id e grava no ctx um logger
// zerolog com request_id, method e path. Loga uma linha ao final.
func withRequestContext(base zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		logger := base.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx := logger.WithContext(r.Context())

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r.WithContext(ctx))

		ev := logger.Info()
		if rw.status >= http.StatusInternalServerError {
			ev = logger.Error()
		} else if rw.status >= http.StatusBadRequest {
			ev = logger.Warn()
		}
		ev.Int("status", rw.status).Dur("duration", time.Since(start)).Msg("request completed")
	})
}

// recovery transforma panic em 500 genérico.
func recovery(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.panicRecovered()
				zerolog.Ctx(r.Context()).Error().
					Str("panic", fmt.Sprint(rec)).
					Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// cors anexa os headers permissivos e responde o preflight sem corpo.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
