package trending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const (
	strategyAttempts = 2
	strategyDelay    = time.Second
)

// Strategy is a single discovery implementation (GitHub API, trending-page
// scrape, ranking sites).
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]domain.Repo, error)
}

// Source implements ports.RepoSource by trying strategies in priority
// order with a bounded per-strategy retry; the first one returning a
// non-empty result wins. No state is shared between strategies.
type Source struct {
	strategies []Strategy
	logger     *slog.Logger
	retry      retrypolicy.RetryPolicy[[]domain.Repo]
}

var _ ports.RepoSource = (*Source)(nil)

// NewSource wires the ordered strategy list.
func NewSource(strategies []Strategy, logger *slog.Logger) *Source {
	retry := retrypolicy.NewBuilder[[]domain.Repo]().
		WithDelay(strategyDelay).
		WithMaxRetries(strategyAttempts - 1).
		Build()

	return &Source{strategies: strategies, logger: logger, retry: retry}
}

// FetchTrending walks the strategies until one produces repositories.
func (s *Source) FetchTrending(ctx context.Context, limit int) ([]domain.Repo, error) {
	if len(s.strategies) == 0 {
		return nil, fmt.Errorf("no trending strategies configured")
	}

	var lastErr error
	for i, strategy := range s.strategies {
		repos, err := failsafe.With(s.retry).WithContext(ctx).Get(func() ([]domain.Repo, error) {
			return strategy.Fetch(ctx, limit)
		})
		if err != nil {
			lastErr = err
			if s.logger != nil {
				s.logger.Warn("trending strategy failed",
					"step", "trending_strategy_error",
					"strategy", strategy.Name(),
					"position", i,
					"error", err.Error())
			}
			continue
		}
		if len(repos) == 0 {
			if s.logger != nil {
				s.logger.Warn("trending strategy returned nothing",
					"step", "trending_strategy_empty", "strategy", strategy.Name())
			}
			continue
		}

		if s.logger != nil {
			s.logger.Info("trending repositories fetched",
				"step", "trending_fetched",
				"strategy", strategy.Name(),
				"count", len(repos))
		}
		return repos, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all trending strategies failed: %w", lastErr)
	}
	return nil, fmt.Errorf("all trending strategies returned nothing")
}
