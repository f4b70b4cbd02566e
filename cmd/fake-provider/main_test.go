package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-gateway/recipe"
)

func TestFakeProvider_ServesGeneratorEndToEnd(t *testing.T) {
	srv := httptest.NewServer(newHandler(zerolog.Nop()))
	defer srv.Close()

	gen := &recipe.Generator{Provider: &recipe.OpenAIProvider{
		Client:  srv.Client(),
		BaseURL: srv.URL,
		APIKey:  "local",
	}}

	res, err := gen.Generate(context.Background(), "Zucchini, Feta", nil)
	require.NoError(t, err)

	rec, err := res.Recipe()
	require.NoError(t, err)
	assert.Equal(t, "Ofengemüse mit Feta", rec.Title)
	assert.Len(t, rec.Instructions, 2)
}

func TestFakeProvider_RequiresBearer(t *testing.T) {
	w := httptest.NewRecorder()
	newHandler(zerolog.Nop()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat/completions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
