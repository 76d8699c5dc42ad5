package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// OllamaGenerator runs prompts against a local Ollama daemon.
type OllamaGenerator struct {
	host       string
	model      string
	httpClient *http.Client
}

var _ ports.TextGenerator = (*OllamaGenerator)(nil)

// NewOllamaGenerator wires host (e.g. http://localhost:11434) and model.
func NewOllamaGenerator(host, model string) *OllamaGenerator {
	return &OllamaGenerator{
		host:  strings.TrimSuffix(host, "/"),
		model: model,
		// Local generation on modest hardware is slow; give it room.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Name identifies the provider in the chain.
func (g *OllamaGenerator) Name() string {
	return "ollama"
}

// Generate calls /api/generate without streaming.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.host == "" || g.model == "" {
		return "", fmt.Errorf("ollama generator misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":  g.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.5,
			"num_predict": 80,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %s", resp.Status)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generation: %w", err)
	}

	return strings.TrimSpace(out.Response), nil
}
