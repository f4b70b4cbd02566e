package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/middleware/ratelimit/application"
	"recipe-gateway/middleware/ratelimit/domain"
)

type Options struct {
	Store domain.QuotaStore
	Stats domain.StatsStore
	KeyFn KeyFunc
	// TrustedHeader só é usado quando KeyFn é nil.
	TrustedHeader string
	// Location é o fuso das datas legíveis da mensagem de 429.
	Location *time.Location
	Now      func() time.Time
}

// Middleware aplica a cota antes do handler de geração.
//
// Permitido: grava X-RateLimit-Remaining e X-RateLimit-Reset e segue.
// Bloqueado: 429 JSON com os mesmos headers + Retry-After; o próximo handler não roda.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKeyFunc(opts.TrustedHeader)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	svc := application.Service{
		Store: opts.Store,
		Now:   opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			ctx := withClientKey(r.Context(), key)

			dec := svc.Decide(ctx, domain.Key(key))
			if opts.Stats != nil {
				err := opts.Stats.Record(ctx, domain.StatsEvent{
					Key:       domain.Key(key),
					Allowed:   dec.Allowed,
					Remaining: dec.Remaining,
					Method:    r.Method,
					Path:      r.URL.Path,
					At:        opts.Now(),
				})
				if err != nil {
					zerolog.Ctx(ctx).Debug().Err(err).Msg("stats record failed")
				}
			}

			w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", FormatResetISO(dec.ResetAt))

			if !dec.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter(opts.Now())))
				zerolog.Ctx(ctx).Info().
					Str("client", key).
					Time("reset_at", dec.ResetAt).
					Msg("quota exceeded")
				writeJSONError(w, http.StatusTooManyRequests, fmt.Sprintf(
					"Rate limit exceeded. You can make %d more requests. Limit resets at %s.",
					dec.Remaining, FormatGerman(dec.ResetAt, opts.Location)))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
