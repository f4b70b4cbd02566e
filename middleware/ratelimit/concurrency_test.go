package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-gateway/middleware/ratelimit/infra"
)

func TestConcurrencyMiddleware_RejectsWhenGenerationSlotsAreBusy(t *testing.T) {
	pool := infra.NewSlotSemaphore(1)
	busyCalls := 0
	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		AcquireTimeout: 20 * time.Millisecond,
		OnBusy:         func(*http.Request) { busyCalls++ },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// uma geração em andamento ocupa a única vaga
	hold, ok := pool.TryAcquire()
	if !ok {
		t.Fatalf("expected to take the only slot")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/api/generate-recipe", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while busy, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON busy body, got content type %q", ct)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}
	if !strings.Contains(w.Body.String(), msgBusy) {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if busyCalls != 1 {
		t.Fatalf("expected OnBusy once, got %d", busyCalls)
	}

	hold()
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/api/generate-recipe", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after release, got %d", w.Code)
	}
	if pool.InUse() != 0 {
		t.Fatalf("expected slot returned after handler, got %d in use", pool.InUse())
	}
}

func TestConcurrencyMiddleware_WaitsForSlotWithinTimeout(t *testing.T) {
	pool := infra.NewSlotSemaphore(1)
	h := ConcurrencyMiddleware(ConcurrencyOptions{Pool: pool, AcquireTimeout: time.Second})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	hold, _ := pool.TryAcquire()
	go func() {
		time.Sleep(20 * time.Millisecond)
		hold()
	}()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected request to get the released slot, got %d", w.Code)
	}
}

func TestConcurrencyMiddleware_DisabledIsPassThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := ConcurrencyMiddleware(ConcurrencyOptions{Max: 0})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
}
