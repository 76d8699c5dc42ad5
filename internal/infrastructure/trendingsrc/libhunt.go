package trendingsrc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/trending"
)

// LibHunt pulls the github trending feed from the LibHunt API. Second
// fallback behind the trending-page scrape.
type LibHunt struct {
	endpoint string
	client   *http.Client
}

var _ trending.Strategy = (*LibHunt)(nil)

// NewLibHunt builds the API client.
func NewLibHunt(client *http.Client) *LibHunt {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LibHunt{endpoint: "https://libhunt.com/api/v1/trending/github", client: client}
}

// Name identifies the strategy in logs.
func (l *LibHunt) Name() string {
	return "libhunt-api"
}

// Fetch reads the trending feed.
func (l *LibHunt) Fetch(ctx context.Context, limit int) ([]domain.Repo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request libhunt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("libhunt returned %s", resp.Status)
	}

	var out struct {
		Repositories []struct {
			FullName    string `json:"full_name"`
			Description string `json:"description"`
			Language    string `json:"language"`
			Stars       int    `json:"stars"`
		} `json:"repositories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode libhunt response: %w", err)
	}

	repos := make([]domain.Repo, 0, limit)
	for _, item := range out.Repositories {
		if len(repos) >= limit {
			break
		}

		name := item.FullName
		if idx := strings.LastIndex(item.FullName, "/"); idx >= 0 {
			name = item.FullName[idx+1:]
		}

		repos = append(repos, domain.Repo{
			Name:        name,
			FullName:    item.FullName,
			Description: item.Description,
			Language:    item.Language,
			Stars:       item.Stars,
			URL:         "https://github.com/" + item.FullName,
		})
	}
	return repos, nil
}
