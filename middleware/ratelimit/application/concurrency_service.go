package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/middleware/ratelimit/domain"
)

// GenerationSlots decide se uma geração pode ir ao provider agora.
type GenerationSlots struct {
	Pool domain.SlotPool
	// MaxWait <= 0 espera enquanto o ctx da request viver.
	MaxWait time.Duration
}

// Acquire reserva uma vaga. Sem Pool o limite está desligado e sempre libera.
// Com ok=false nada foi reservado e release é nil.
func (g GenerationSlots) Acquire(ctx context.Context) (release func(), ok bool) {
	if g.Pool == nil {
		return func() {}, true
	}
	if release, ok := g.Pool.TryAcquire(); ok {
		return release, true
	}

	start := time.Now()
	waitCtx := ctx
	if g.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.MaxWait)
		defer cancel()
	}
	release, ok = g.Pool.Acquire(waitCtx)

	zerolog.Ctx(ctx).Debug().
		Bool("acquired", ok).
		Dur("waited", time.Since(start)).
		Int("in_use", g.Pool.InUse()).
		Int("cap", g.Pool.Cap()).
		Msg("waited for generation slot")
	return release, ok
}
