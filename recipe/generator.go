package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"recipe-gateway/errs"
)

// Generator liga entrada validada, prompt e provider.
type Generator struct {
	Provider Provider
	Prompt   *Prompt
	// Pacer limita a taxa de chamadas ao provider (nil = sem limite).
	// Espera pela vaga respeitando o ctx da request.
	Pacer *rate.Limiter
}

// Generate valida, chama o provider uma única vez e faz o parse do JSON.
//
// Erros: INVALID_INPUT sem ingredientes (antes de qualquer chamada externa),
// UPSTREAM para status não-2xx ou saída que não é JSON.
func (g *Generator) Generate(ctx context.Context, ingredients string, filters map[string]any) (Result, error) {
	if strings.TrimSpace(ingredients) == "" {
		return Result{}, ErrIngredientsRequired
	}

	prompt := g.Prompt
	if prompt == nil {
		prompt = DefaultPrompt()
	}
	text, err := prompt.Render(ingredients, filters)
	if err != nil {
		return Result{}, errs.Wrap(errs.CodeInternal, "build prompt", err)
	}

	if g.Pacer != nil {
		if err := g.Pacer.Wait(ctx); err != nil {
			return Result{}, errs.Wrap(errs.CodeUpstream, "provider pacing", err)
		}
	}

	content, err := g.Provider.Complete(ctx, text)
	if err != nil {
		var coded *errs.Error
		if !errors.As(err, &coded) {
			err = errs.Wrap(errs.CodeUpstream, "provider call failed", err)
		}
		return Result{}, err
	}

	raw := bytes.TrimSpace([]byte(content))
	if !json.Valid(raw) {
		return Result{}, errs.New(errs.CodeUpstream, "malformed provider output")
	}

	res := Result{Raw: json.RawMessage(raw)}
	log := zerolog.Ctx(ctx)
	if msg, ok := res.ProviderError(); ok {
		log.Info().Str("provider_error", msg).Msg("provider declined ingredients")
	} else if r, err := res.Recipe(); err == nil {
		log.Debug().Str("title", r.Title).Int("steps", len(r.Instructions)).Msg("recipe generated")
	}
	return res, nil
}
