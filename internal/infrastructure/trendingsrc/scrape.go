package trendingsrc

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/trending"
)

// userAgents rotate across scraping requests to avoid trivial blocking.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

// TrendingPage scrapes the github.com/trending page. First fallback after
// the search API.
type TrendingPage struct {
	pageURL string
	client  *http.Client
}

var _ trending.Strategy = (*TrendingPage)(nil)

// NewTrendingPage builds the scraper with a default 15s client.
func NewTrendingPage(client *http.Client) *TrendingPage {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &TrendingPage{pageURL: "https://github.com/trending", client: client}
}

// Name identifies the strategy in logs.
func (t *TrendingPage) Name() string {
	return "github-trending-scrape"
}

// Fetch parses the trending page's repository rows.
func (t *TrendingPage) Fetch(ctx context.Context, limit int) ([]domain.Repo, error) {
	doc, err := fetchDocument(ctx, t.client, t.pageURL)
	if err != nil {
		return nil, err
	}

	var repos []domain.Repo
	doc.Find("article.Box-row").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if len(repos) >= limit {
			return false
		}

		link := row.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		fullName := strings.Trim(href, "/")
		name := fullName
		if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
			name = fullName[idx+1:]
		}

		stars := 0
		if starsText := row.Find(`a[href$="/stargazers"]`).First().Text(); starsText != "" {
			stars = parseCount(starsText)
		}

		repos = append(repos, domain.Repo{
			Name:        name,
			FullName:    fullName,
			Description: strings.TrimSpace(row.Find("p").First().Text()),
			Language:    strings.TrimSpace(row.Find(`span[itemprop="programmingLanguage"]`).First().Text()),
			Stars:       stars,
			URL:         "https://github.com/" + fullName,
		})
		return true
	})

	return repos, nil
}

// Gitstar scrapes the gitstar-ranking.com table. Last-resort fallback; the
// site exposes neither descriptions nor languages.
type Gitstar struct {
	pageURL string
	client  *http.Client
}

var _ trending.Strategy = (*Gitstar)(nil)

// NewGitstar builds the ranking scraper.
func NewGitstar(client *http.Client) *Gitstar {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gitstar{pageURL: "https://gitstar-ranking.com/repositories", client: client}
}

// Name identifies the strategy in logs.
func (g *Gitstar) Name() string {
	return "gitstar-ranking"
}

// Fetch parses the ranking table rows.
func (g *Gitstar) Fetch(ctx context.Context, limit int) ([]domain.Repo, error) {
	doc, err := fetchDocument(ctx, g.client, g.pageURL)
	if err != nil {
		return nil, err
	}

	var repos []domain.Repo
	doc.Find("table tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if len(repos) >= limit {
			return false
		}

		link := row.Find("td:nth-child(2) a").First()
		fullName := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if fullName == "" || !ok {
			return true
		}

		name := fullName
		if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
			name = fullName[idx+1:]
		}

		repos = append(repos, domain.Repo{
			Name:     name,
			FullName: fullName,
			Stars:    parseCount(row.Find("td:nth-child(3)").First().Text()),
			URL:      "https://github.com" + href,
		})
		return true
	})

	return repos, nil
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// parseCount reads numbers like "1,234" or "12.3k" down to a plain int.
func parseCount(text string) int {
	text = strings.TrimSpace(strings.ToLower(text))

	multiplier := 1.0
	if strings.HasSuffix(text, "k") {
		multiplier = 1000
		text = strings.TrimSuffix(text, "k")
	}

	var digits strings.Builder
	for _, c := range text {
		if (c >= '0' && c <= '9') || c == '.' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	var value float64
	if _, err := fmt.Sscanf(digits.String(), "%f", &value); err != nil {
		return 0
	}
	return int(value * multiplier)
}
