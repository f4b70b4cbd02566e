package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/middleware/ratelimit/application"
	"recipe-gateway/middleware/ratelimit/domain"
	"recipe-gateway/middleware/ratelimit/infra"
)

const msgBusy = "Service busy, please retry shortly"

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max          int
	RejectStatus int
	// AcquireTimeout <= 0 espera enquanto a request viver.
	AcquireTimeout time.Duration
	// Pool substitui o semáforo local criado a partir de Max.
	Pool domain.SlotPool
	// OnBusy é chamado a cada rejeição por falta de vaga.
	OnBusy func(r *http.Request)
}

// ConcurrencyMiddleware limita gerações simultâneas no provider.
//
// Fica depois do Middleware de cota: a requisição já foi contabilizada quando
// espera por vaga aqui.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	pool := opts.Pool
	if pool == nil && opts.Max > 0 {
		pool = infra.NewSlotSemaphore(opts.Max)
	}
	if pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	slots := application.GenerationSlots{Pool: pool, MaxWait: opts.AcquireTimeout}
	retryAfter := "1"
	if opts.AcquireTimeout > time.Second {
		retryAfter = strconv.Itoa(int(opts.AcquireTimeout / time.Second))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := slots.Acquire(r.Context())
			if !ok {
				zerolog.Ctx(r.Context()).Warn().
					Int("cap", pool.Cap()).
					Msg("no generation slot available")
				if opts.OnBusy != nil {
					opts.OnBusy(r)
				}
				w.Header().Set("Retry-After", retryAfter)
				writeJSONError(w, opts.RejectStatus, msgBusy)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
