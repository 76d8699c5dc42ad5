package trendingsrc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
	"github.com/laurentvv/twitter-post-trending-auto/internal/trending"
)

const githubAPIBaseURL = "https://api.github.com"

// readmeNames are tried in order when resolving a repository's README.
var readmeNames = []string{"README.md", "README.rst", "README.txt", "README"}

// GitHubAPI is the primary discovery strategy: the search API sorted by
// stars over recently created repositories. It also serves README lookups
// for the selected repository.
type GitHubAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ trending.Strategy = (*GitHubAPI)(nil)
var _ ports.ReadmeFetcher = (*GitHubAPI)(nil)

// NewGitHubAPI wires an optional API token; unauthenticated requests work
// with a tighter quota.
func NewGitHubAPI(token string, client *http.Client) *GitHubAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GitHubAPI{baseURL: githubAPIBaseURL, token: token, client: client}
}

// Name identifies the strategy in logs.
func (g *GitHubAPI) Name() string {
	return "github-api"
}

// Fetch searches repositories created in the last week, most stars first.
func (g *GitHubAPI) Fetch(ctx context.Context, limit int) ([]domain.Repo, error) {
	weekAgo := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")

	q := url.Values{}
	q.Set("q", "created:>"+weekAgo)
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", fmt.Sprintf("%d", limit))

	var out struct {
		Items []struct {
			Name        string `json:"name"`
			FullName    string `json:"full_name"`
			Description string `json:"description"`
			Language    string `json:"language"`
			Stars       int    `json:"stargazers_count"`
			HTMLURL     string `json:"html_url"`
		} `json:"items"`
	}

	if err := g.get(ctx, g.baseURL+"/search/repositories?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("search repositories: %w", err)
	}

	repos := make([]domain.Repo, 0, len(out.Items))
	for _, item := range out.Items {
		repos = append(repos, domain.Repo{
			Name:        item.Name,
			FullName:    item.FullName,
			Description: item.Description,
			Language:    item.Language,
			Stars:       item.Stars,
			URL:         item.HTMLURL,
		})
	}
	return repos, nil
}

// FetchReadme resolves the repository's README through the contents API,
// trying the conventional file names in order.
func (g *GitHubAPI) FetchReadme(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := splitRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	for _, name := range readmeNames {
		var out struct {
			Encoding string `json:"encoding"`
			Content  string `json:"content"`
		}

		endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, owner, repo, name)
		if err := g.get(ctx, endpoint, &out); err != nil {
			continue
		}

		if out.Encoding != "base64" {
			return out.Content, nil
		}
		decoded, err := base64.StdEncoding.DecodeString(
			strings.ReplaceAll(out.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", name, err)
		}
		return string(decoded), nil
	}

	return "", fmt.Errorf("no readme found for %s/%s", owner, repo)
}

func (g *GitHubAPI) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func splitRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimPrefix(repoURL, "https://github.com/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unrecognized repository url %q", repoURL)
	}
	return parts[0], parts[1], nil
}
