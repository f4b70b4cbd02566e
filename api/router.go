package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/errs"
	"recipe-gateway/middleware/ratelimit"
	"recipe-gateway/middleware/ratelimit/application"
	"recipe-gateway/middleware/ratelimit/domain"
	"recipe-gateway/recipe"
)

const (
	pathGenerate  = "/api/generate-recipe"
	pathRateLimit = "/api/test-rate-limit"
)

// Generator é o que o roteador precisa do gateway de geração.
type Generator interface {
	Generate(ctx context.Context, ingredients string, filters map[string]any) (recipe.Result, error)
}

type Options struct {
	Store     domain.QuotaStore
	Stats     domain.StatsStore
	Generator Generator

	TrustedHeader string
	Location      *time.Location
	Concurrency   ratelimit.ConcurrencyOptions

	Logger  zerolog.Logger
	Metrics *Metrics
	Now     func() time.Time
}

// Router despacha por path + método, sem ServeMux: método errado num path
// conhecido também é 404.
type Router struct {
	quota    application.Service
	keyFn    ratelimit.KeyFunc
	loc      *time.Location
	gen      Generator
	metrics  *Metrics
	generate http.Handler
	handler  http.Handler
}

func NewRouter(opts Options) *Router {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	rt := &Router{
		quota:   application.Service{Store: opts.Store, Now: opts.Now},
		keyFn:   ratelimit.ClientKeyFunc(opts.TrustedHeader),
		loc:     opts.Location,
		gen:     opts.Generator,
		metrics: opts.Metrics,
	}

	// cota primeiro (antes de ler o corpo), depois vaga de geração
	conc := opts.Concurrency
	if conc.OnBusy == nil {
		conc.OnBusy = func(*http.Request) { rt.metrics.generation("busy") }
	}
	var gen http.Handler = http.HandlerFunc(rt.handleGenerate)
	gen = ratelimit.ConcurrencyMiddleware(conc)(gen)
	gen = ratelimit.Middleware(ratelimit.Options{
		Store:    opts.Store,
		Stats:    opts.Stats,
		KeyFn:    rt.keyFn,
		Location: opts.Location,
		Now:      opts.Now,
	})(gen)
	rt.generate = gen

	var h http.Handler = http.HandlerFunc(rt.dispatch)
	h = cors(h)
	h = recovery(opts.Metrics, h)
	h = withRequestContext(opts.Logger, h)
	h = opts.Metrics.middleware(h)
	rt.handler = h
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == pathGenerate && r.Method == http.MethodPost:
		rt.generate.ServeHTTP(w, r)
	case r.URL.Path == pathRateLimit && r.Method == http.MethodGet:
		rt.handleStatus(w, r)
	case r.URL.Path == pathRateLimit && r.Method == http.MethodDelete:
		rt.handleReset(w, r)
	default:
		writeNotFound(w)
	}
}

func (rt *Router) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var req recipe.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.metrics.generation("bad_body")
		log.Error().Err(err).Msg("decode generate request")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	res, err := rt.gen.Generate(ctx, req.Ingredients, req.Filters)
	if err != nil {
		if errs.Has(err, errs.CodeInvalidInput) {
			rt.metrics.generation("invalid_input")
			writeError(w, http.StatusBadRequest, recipe.ErrIngredientsRequired.Message)
			return
		}
		rt.metrics.generation("failed")
		log.Error().Err(err).Str("code", string(errs.CodeOf(err))).Msg("recipe generation failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	if _, declined := res.ProviderError(); declined {
		rt.metrics.generation("declined")
	} else {
		rt.metrics.generation("ok")
	}
	writeJSON(w, http.StatusOK, res)
}

type usageStatus struct {
	Requests     int     `json:"requests"`
	Remaining    int     `json:"remaining"`
	FirstRequest *string `json:"firstRequest"`
	LastRequest  *string `json:"lastRequest"`
	ResetTime    string  `json:"resetTime,omitempty"`
}

type statusResponse struct {
	IP      string      `json:"ip"`
	Status  usageStatus `json:"status"`
	Message string      `json:"message"`
}

type resetResponse struct {
	IP      string `json:"ip"`
	Message string `json:"message"`
}

func (rt *Router) handleStatus(w http.ResponseWriter, r *http.Request) {
	ip := rt.keyFn(r)
	win, found, err := rt.quota.Status(r.Context(), domain.Key(ip))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("client", ip).Msg("read quota status")
		writeError(w, http.StatusInternalServerError, msgStatusFailed)
		return
	}

	st := usageStatus{Remaining: domain.Ceiling}
	if found {
		first := ratelimit.FormatGerman(win.WindowStart, rt.loc)
		last := ratelimit.FormatGerman(win.LastRequest, rt.loc)
		st = usageStatus{
			Requests:     win.Requests,
			Remaining:    win.Remaining(),
			FirstRequest: &first,
			LastRequest:  &last,
			ResetTime:    ratelimit.FormatGerman(win.ResetAt(), rt.loc),
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{IP: ip, Status: st, Message: msgStatusEndpoint})
}

func (rt *Router) handleReset(w http.ResponseWriter, r *http.Request) {
	ip := rt.keyFn(r)
	if err := rt.quota.Reset(r.Context(), domain.Key(ip)); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("client", ip).Msg("reset quota")
		writeError(w, http.StatusInternalServerError, msgResetFailed)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("client", ip).Msg("quota reset")
	writeJSON(w, http.StatusOK, resetResponse{IP: ip, Message: msgResetDone})
}
