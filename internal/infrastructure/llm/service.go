package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const (
	providerAttempts = 3
	providerDelay    = 2 * time.Second

	summaryPromptLimit  = 800
	featuresPromptLimit = 600
)

const (
	defaultSummary = "Découvrez ce projet GitHub intéressant !"
)

var defaultFeatures = []string{"Projet open source", "Code de qualité", "Communauté active"}

// Service produces the post copy by trying text generators in priority
// order, each with a bounded retry, and post-processing whatever comes
// back. A total generation failure degrades to canned French copy rather
// than failing the run.
type Service struct {
	providers []ports.TextGenerator
	logger    *slog.Logger
	retry     retrypolicy.RetryPolicy[string]
}

var _ ports.ContentGenerator = (*Service)(nil)

// NewService wires the ordered provider list.
func NewService(providers []ports.TextGenerator, logger *slog.Logger) *Service {
	retry := retrypolicy.NewBuilder[string]().
		WithDelay(providerDelay).
		WithMaxRetries(providerAttempts - 1).
		Build()

	return &Service{providers: providers, logger: logger, retry: retry}
}

// SummarizeReadme asks for a short French catchphrase describing the
// project.
func (s *Service) SummarizeReadme(ctx context.Context, readme string) string {
	prompt := fmt.Sprintf(`Crée une phrase accrocheuse de 8-12 mots en français pour décrire ce projet GitHub.
Utilise les accents français. Sois enthousiaste et précis.

Exemples: "Convertisseur intelligent qui transforme tous vos documents en Markdown", "Éditeur de code moderne avec fonctionnalités collaboratives"

Projet: %s

Phrase accrocheuse:`, truncate(readme, summaryPromptLimit))

	text, provider, err := s.generate(ctx, prompt)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("summary generation failed, using default",
				"step", "ai_summary_error", "error", err.Error())
		}
		return defaultSummary
	}

	summary := cleanOutput(text)
	if summary == "" {
		return defaultSummary
	}

	if s.logger != nil {
		s.logger.Info("summary generated",
			"step", "ai_summary_success",
			"provider", provider,
			"summary_length", len(summary))
	}
	return summary
}

// ExtractKeyFeatures asks for up to three short French feature lines.
func (s *Service) ExtractKeyFeatures(ctx context.Context, readme string) []string {
	prompt := fmt.Sprintf(`Liste 3 fonctionnalités principales de ce projet en français.
Chaque fonctionnalité en 2-3 mots avec accents.
Format: une fonctionnalité par ligne.

Exemples:
Conversion automatique
Interface intuitive
Support multi-formats

Projet: %s

Fonctionnalités:`, truncate(readme, featuresPromptLimit))

	text, provider, err := s.generate(ctx, prompt)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("feature extraction failed, using defaults",
				"step", "ai_features_error", "error", err.Error())
		}
		return defaultFeatures
	}

	features := splitFeatures(cleanOutput(text))
	if len(features) == 0 {
		return defaultFeatures
	}

	if s.logger != nil {
		s.logger.Info("features extracted",
			"step", "ai_features_success",
			"provider", provider,
			"count", len(features))
	}
	return features
}

// generate tries each provider with a bounded per-provider retry and
// returns the first non-empty answer plus the provider's name.
func (s *Service) generate(ctx context.Context, prompt string) (string, string, error) {
	if len(s.providers) == 0 {
		return "", "", fmt.Errorf("no text generators configured")
	}

	var lastErr error
	for _, provider := range s.providers {
		text, err := failsafe.With(s.retry).WithContext(ctx).Get(func() (string, error) {
			out, genErr := provider.Generate(ctx, prompt)
			if genErr != nil {
				return "", genErr
			}
			if strings.TrimSpace(out) == "" {
				return "", fmt.Errorf("empty generation")
			}
			return out, nil
		})
		if err != nil {
			lastErr = err
			if s.logger != nil {
				s.logger.Warn("provider exhausted",
					"step", "ai_provider_failed",
					"provider", provider.Name(),
					"attempts", providerAttempts,
					"error", err.Error())
			}
			continue
		}
		return text, provider.Name(), nil
	}

	return "", "", fmt.Errorf("all providers failed: %w", lastErr)
}

func splitFeatures(text string) []string {
	var features []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			continue
		}
		features = append(features, line)
		if len(features) == 3 {
			break
		}
	}
	return features
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
