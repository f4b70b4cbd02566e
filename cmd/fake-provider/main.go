// fake-provider responde POST /chat/completions com uma receita fixa, para subir
// o gateway localmente sem chave da OpenAI (OPENAI_BASE_URL=http://localhost:8081).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"recipe-gateway/logging"
)

const cannedRecipe = `{
  "title": "Ofengemüse mit Feta",
  "portions": 4,
  "totalTime": "30 Minuten",
  "ingredients": ["2 Zucchini", "1 Paprika", "200 g Feta", "2 EL Olivenöl"],
  "instructions": [
    {"step": 1, "instruction": "Gemüse würfeln und mit Öl mischen.", "function": "Bake", "temperature": 200, "time": "20", "zone": "1"},
    {"step": 2, "instruction": "Feta darüber bröseln und 5 Minuten weiter garen.", "function": "Bake", "temperature": 200, "time": "5", "zone": "1"}
  ],
  "profiTip": "Gemüse nicht zu eng schichten, dann wird es knuspriger.",
  "nutrition": {"calories": 310, "protein": 12, "carbs": 14, "fat": 23}
}`

func main() {
	logger := logging.New(os.Stderr, os.Getenv("LOG_LEVEL"), "console", "fake-provider", "dev")

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("fake provider listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
}

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

func newHandler(logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"error":{"message":"missing bearer token"}}`, http.StatusUnauthorized)
			return
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
			return
		}
		logger.Debug().Str("model", req.Model).Int("prompt_len", len(req.Messages[0].Content)).Msg("completion")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": cannedRecipe},
				"finish_reason": "stop",
			}},
		})
	})
	return mux
}
