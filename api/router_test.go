package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-gateway/errs"
	"recipe-gateway/middleware/ratelimit/domain"
	"recipe-gateway/middleware/ratelimit/infra"
	"recipe-gateway/recipe"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	res   recipe.Result
	err   error
	calls int
	panic bool
}

func (g *fakeGenerator) Generate(_ context.Context, ingredients string, _ map[string]any) (recipe.Result, error) {
	g.calls++
	if g.panic {
		panic("boom")
	}
	if strings.TrimSpace(ingredients) == "" {
		return recipe.Result{}, recipe.ErrIngredientsRequired
	}
	return g.res, g.err
}

type harness struct {
	router *Router
	gen    *fakeGenerator
	store  *infra.MemoryStore
	stats  *infra.MemoryStatsStore
	reg    *prometheus.Registry
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gen: &fakeGenerator{res: recipe.Result{Raw: json.RawMessage(`{"title":"Ofengemüse","portions":4}`)}},
		reg: prometheus.NewRegistry(),
		now: t0,
	}
	clock := func() time.Time { return h.now }
	h.store = infra.NewMemoryStore(infra.WithClock(clock))
	h.stats = infra.NewMemoryStatsStore()
	h.router = NewRouter(Options{
		Store:     h.store,
		Stats:     h.stats,
		Generator: h.gen,
		Logger:    zerolog.Nop(),
		Metrics:   NewMetrics(h.reg),
		Now:       clock,
	})
	return h
}

func (h *harness) do(method, path, ip, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "http://gateway"+path, strings.NewReader(body))
	if ip != "" {
		r.Header.Set("CF-Connecting-IP", ip)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestGenerate_ReturnsProviderJSON(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{"ingredients":"Zucchini, Feta","filters":{"diet":"Vegetarisch"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2026-03-01T11:00:00.000Z", w.Header().Get("X-RateLimit-Reset"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"title":"Ofengemüse","portions":4}`, w.Body.String())
	assert.Equal(t, 1, h.gen.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.router.metrics.generations.WithLabelValues("ok")))
}

func TestGenerate_MissingIngredientsIs400AndStillCounts(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Ingredients are required", decodeError(t, w))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))

	win, found, err := h.store.Get(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, win.Requests)
}

func TestGenerate_InvalidBodyIs500(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `not json`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
	assert.Equal(t, 0, h.gen.calls)
}

func TestGenerate_UpstreamFailureIsGeneric500(t *testing.T) {
	h := newHarness(t)
	h.gen.err = errs.Wrap(errs.CodeUpstream, "provider returned 500", errors.New("secret upstream detail"))

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{"ingredients":"Reis"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestGenerate_ProviderDeclineIsPassedThrough(t *testing.T) {
	h := newHarness(t)
	h.gen.res = recipe.Result{Raw: json.RawMessage(`{"error":"Keine sinnvolle Kombination"}`)}

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{"ingredients":"Schrauben"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":"Keine sinnvolle Kombination"}`, w.Body.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(h.router.metrics.generations.WithLabelValues("declined")))
}

func TestGenerate_EleventhRequestIsRejected(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < domain.Ceiling; i++ {
		w := h.do(http.MethodPost, pathGenerate, "2.2.2.2", `{"ingredients":"Eier"}`)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := h.do(http.MethodPost, pathGenerate, "2.2.2.2", `{"ingredients":"Eier"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "10800", w.Header().Get("Retry-After"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, decodeError(t, w), "Rate limit exceeded. You can make 0 more requests.")
	assert.Equal(t, domain.Ceiling, h.gen.calls)

	other := h.do(http.MethodPost, pathGenerate, "3.3.3.3", `{"ingredients":"Eier"}`)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestGenerate_PanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.gen.panic = true

	w := h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{"ingredients":"Reis"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.router.metrics.panicRecoveries))
}

func TestPreflight(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{pathGenerate, pathRateLimit, "/anything"} {
		w := h.do(http.MethodOptions, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, w.Body.String())
	}
	assert.Equal(t, 0, h.store.Len())
}

func TestUnknownRoutesAre404(t *testing.T) {
	h := newHarness(t)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, pathGenerate},
		{http.MethodPost, pathRateLimit},
		{http.MethodPut, "/api/other"},
	}
	for _, tc := range cases {
		w := h.do(tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Not Found", w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
	assert.Equal(t, 0, h.store.Len())
}

func TestStatusWithoutRecord(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, pathRateLimit, "4.4.4.4", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"ip": "4.4.4.4",
		"status": {"requests": 0, "remaining": 10, "firstRequest": null, "lastRequest": null},
		"message": "Rate limit test endpoint"
	}`, w.Body.String())
}

func TestStatusAndResetFlow(t *testing.T) {
	h := newHarness(t)

	h.do(http.MethodPost, pathGenerate, "5.5.5.5", `{"ingredients":"Reis"}`)
	h.now = t0.Add(10 * time.Minute)
	h.do(http.MethodPost, pathGenerate, "5.5.5.5", `{"ingredients":"Reis"}`)

	w := h.do(http.MethodGet, pathRateLimit, "5.5.5.5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"ip": "5.5.5.5",
		"status": {
			"requests": 2,
			"remaining": 8,
			"firstRequest": "1.3.2026, 08:00:00",
			"lastRequest": "1.3.2026, 08:10:00",
			"resetTime": "1.3.2026, 11:00:00"
		},
		"message": "Rate limit test endpoint"
	}`, w.Body.String())

	// consulta não consome cota
	again := h.do(http.MethodGet, pathRateLimit, "5.5.5.5", "")
	assert.Contains(t, again.Body.String(), `"requests":2`)

	del := h.do(http.MethodDelete, pathRateLimit, "5.5.5.5", "")
	require.Equal(t, http.StatusOK, del.Code)
	assert.JSONEq(t, `{"ip":"5.5.5.5","message":"Rate limit reset for this IP"}`, del.Body.String())
	assert.Equal(t, 0, h.store.Len())

	// reset sem registro também é 200
	del = h.do(http.MethodDelete, pathRateLimit, "5.5.5.5", "")
	assert.Equal(t, http.StatusOK, del.Code)
}

type downStore struct{}

func (downStore) Get(context.Context, domain.Key) (domain.UsageWindow, bool, error) {
	return domain.UsageWindow{}, false, errors.New("kv down")
}
func (downStore) Put(context.Context, domain.Key, domain.UsageWindow, time.Duration) error {
	return errors.New("kv down")
}
func (downStore) Delete(context.Context, domain.Key) error { return errors.New("kv down") }

func TestStoreOutage(t *testing.T) {
	gen := &fakeGenerator{res: recipe.Result{Raw: json.RawMessage(`{"title":"x"}`)}}
	rt := NewRouter(Options{Store: downStore{}, Generator: gen, Logger: zerolog.Nop()})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		rt.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}

	gw := do(http.MethodPost, pathGenerate, `{"ingredients":"Reis"}`)
	assert.Equal(t, http.StatusOK, gw.Code)
	assert.Equal(t, "9", gw.Header().Get("X-RateLimit-Remaining"))

	sw := do(http.MethodGet, pathRateLimit, "")
	assert.Equal(t, http.StatusInternalServerError, sw.Code)
	assert.Equal(t, "Failed to get rate limit status", decodeError(t, sw))

	rw := do(http.MethodDelete, pathRateLimit, "")
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Equal(t, "Failed to reset rate limit", decodeError(t, rw))
}

func TestMetricsHandler(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, pathGenerate, "1.1.1.1", `{"ingredients":"Reis"}`)
	h.do(http.MethodGet, "/nope", "", "")

	srv := MetricsHandler(h.reg, h.stats)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recipe_gateway_http_requests_total{method="POST",path="/api/generate-recipe",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `recipe_gateway_http_requests_total{method="GET",path="other",status="404"} 1`)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quota-stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total": {"allowed": 1, "denied": 0, "exhausted": 0},
		"routes": {"POST /api/generate-recipe": {"allowed": 1, "denied": 0, "exhausted": 0}}
	}`, w.Body.String())
}
