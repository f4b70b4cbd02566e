package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/errs"
	"recipe-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de admissão (janela fixa por chave).
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
//
// O incremento é read-modify-write sem CAS: duas requisições simultâneas da mesma
// chave podem ler o mesmo contador e gravar o mesmo valor, contando uma a menos.
// A política aceita essa folga.
type Service struct {
	Store domain.QuotaStore
	Now   func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Decide avalia e contabiliza a requisição atual de key.
//
// Falha no storage nunca bloqueia: a decisão vira allow com a cota cheia menos a
// requisição atual (fail-open) e o erro vai apenas para o log.
func (s Service) Decide(ctx context.Context, key domain.Key) domain.Decision {
	now := s.now()
	if s.Store == nil {
		return failOpen(now)
	}

	w, found, err := s.Store.Get(ctx, key)
	if err != nil {
		logStoreError(ctx, "get", key, err)
		return failOpen(now)
	}

	if !found || w.Expired(now) {
		fresh := domain.NewUsageWindow(now)
		if err := s.Store.Put(ctx, key, fresh, domain.Window); err != nil {
			logStoreError(ctx, "put", key, err)
			return failOpen(now)
		}
		return domain.Decision{Allowed: true, Remaining: domain.Ceiling - 1, ResetAt: fresh.ResetAt()}
	}

	// no teto: rejeita sem tocar no registro
	if w.Requests >= domain.Ceiling {
		return domain.Decision{Allowed: false, Remaining: 0, ResetAt: w.ResetAt()}
	}

	w.Requests++
	w.LastRequest = now
	if err := s.Store.Put(ctx, key, w, domain.Window); err != nil {
		logStoreError(ctx, "put", key, err)
		return failOpen(now)
	}
	return domain.Decision{Allowed: true, Remaining: w.Remaining(), ResetAt: w.ResetAt()}
}

// Status lê o registro atual sem contabilizar nada.
func (s Service) Status(ctx context.Context, key domain.Key) (domain.UsageWindow, bool, error) {
	if s.Store == nil {
		return domain.UsageWindow{}, false, nil
	}
	w, found, err := s.Store.Get(ctx, key)
	if err != nil {
		return domain.UsageWindow{}, false, errs.Wrap(errs.CodeStore, "read usage window", err)
	}
	return w, found, nil
}

// Reset remove o registro; a próxima requisição de key se comporta como a primeira.
func (s Service) Reset(ctx context.Context, key domain.Key) error {
	if s.Store == nil {
		return nil
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		return errs.Wrap(errs.CodeStore, "delete usage window", err)
	}
	return nil
}

func failOpen(now time.Time) domain.Decision {
	return domain.Decision{Allowed: true, Remaining: domain.Ceiling - 1, ResetAt: now.Add(domain.Window)}
}

func logStoreError(ctx context.Context, op string, key domain.Key, err error) {
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("op", op).
		Str("key", string(key)).
		Msg("quota store failure, admitting request")
}
