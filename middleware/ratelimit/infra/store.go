package infra

import (
	"context"
	"sync"
	"time"

	"recipe-gateway/middleware/ratelimit/domain"
)

// MemoryStore é a variante local de domain.QuotaStore: um mapa chave -> janela
// com expiração emulada e limpeza periódica opcional.
//
// O mutex protege apenas o mapa. O read-modify-write do Service continua não
// atômico, igual ao caminho durável.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*storeEntry
	now          func() time.Time
	cleanupEvery time.Duration
}

type storeEntry struct {
	window    domain.UsageWindow
	expiresAt time.Time
}

type StoreOption func(*MemoryStore)

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[domain.Key]*storeEntry),
		now:          time.Now,
		cleanupEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Get implementa domain.QuotaStore.
func (s *MemoryStore) Get(_ context.Context, key domain.Key) (domain.UsageWindow, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || !now.Before(ent.expiresAt) {
		return domain.UsageWindow{}, false, nil
	}
	return ent.window, true, nil
}

// Put sobrescreve o registro (sem merge) e renova o TTL.
func (s *MemoryStore) Put(_ context.Context, key domain.Key, w domain.UsageWindow, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &storeEntry{window: w, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key domain.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove entradas com TTL vencido ou cuja janela já expirou.
// Não é necessário para a corretude: Get já ignora entradas vencidas.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.expiresAt) || ent.window.Expired(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa entradas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}
