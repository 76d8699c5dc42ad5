package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// OpenAIGenerator talks to OpenAI-compatible chat-completion endpoints
// (OpenAI itself, OpenRouter, Mistral's API).
type OpenAIGenerator struct {
	name         string
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.TextGenerator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator builds a provider. name distinguishes multiple
// OpenAI-compatible providers in logs.
func NewOpenAIGenerator(name, endpoint, model, apiKey, systemPrompt string) *OpenAIGenerator {
	return &OpenAIGenerator{
		name:         name,
		endpoint:     endpoint,
		model:        model,
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the provider in the chain.
func (g *OpenAIGenerator) Name() string {
	return g.name
}

// Generate sends prompt as a user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return "", fmt.Errorf("%s generator misconfigured", g.name)
	}

	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(g.systemPrompt)},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%s error %s: %s", g.name, resp.Status, strings.TrimSpace(string(payload)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.name)
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Tu rédiges des résumés courts et accrocheurs de projets GitHub, en français."
	}
	return prompt
}
