package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"recipe-gateway/errs"
)

// Provider é o serviço externo de completions. Recebe o prompt e devolve o texto
// (esperado JSON) da primeira escolha.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// OpenAIProvider chama POST {BaseURL}/chat/completions com response_format json_object.
//
// Não há retry nem timeout próprio: vale o do http.Client recebido.
type OpenAIProvider struct {
	Client      *http.Client
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) endpoint() string {
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/chat/completions"
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	model := p.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    p.Temperature,
		MaxTokens:      maxTokens,
	})
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "encode provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "build provider request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.CodeUpstream, "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// o corpo vai só para o log (via Cause), nunca para o cliente
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errs.Wrap(errs.CodeUpstream, "provider returned non-success status",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.Wrap(errs.CodeUpstream, "decode provider response", err)
	}
	if len(out.Choices) == 0 {
		return "", errs.New(errs.CodeUpstream, "provider response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
