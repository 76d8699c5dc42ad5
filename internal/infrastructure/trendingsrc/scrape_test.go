package trendingsrc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const trendingPageHTML = `<html><body>
<article class="Box-row">
  <h2><a href="/acme/widget">acme / widget</a></h2>
  <p>Makes widgets fast</p>
  <span itemprop="programmingLanguage">Go</span>
  <a href="/acme/widget/stargazers">1,234</a>
</article>
<article class="Box-row">
  <h2><a href="/acme/gadget">acme / gadget</a></h2>
  <span itemprop="programmingLanguage">Rust</span>
  <a href="/acme/gadget/stargazers">12.3k</a>
</article>
</body></html>`

func TestTrendingPageFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request carries no user agent")
		}
		_, _ = w.Write([]byte(trendingPageHTML))
	}))
	defer srv.Close()

	s := NewTrendingPage(srv.Client())
	s.pageURL = srv.URL

	repos, err := s.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("got %d repos, want 2", len(repos))
	}

	first := repos[0]
	if first.FullName != "acme/widget" || first.Name != "widget" {
		t.Errorf("first repo names = %s/%s", first.FullName, first.Name)
	}
	if first.Description != "Makes widgets fast" || first.Language != "Go" {
		t.Errorf("first repo metadata = %+v", first)
	}
	if first.Stars != 1234 {
		t.Errorf("first repo stars = %d, want 1234", first.Stars)
	}
	if repos[1].Stars != 12300 {
		t.Errorf("second repo stars = %d, want 12300", repos[1].Stars)
	}
	if first.URL != "https://github.com/acme/widget" {
		t.Errorf("first repo url = %s", first.URL)
	}
}

func TestTrendingPageFetchHonorsLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(trendingPageHTML))
	}))
	defer srv.Close()

	s := NewTrendingPage(srv.Client())
	s.pageURL = srv.URL

	repos, err := s.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 1 {
		t.Errorf("got %d repos, want 1", len(repos))
	}
}

func TestGitstarFetch(t *testing.T) {
	t.Parallel()

	page := `<html><body><table><tbody>
<tr>
  <td>1</td>
  <td><a href="/acme/widget">acme/widget</a></td>
  <td>402,000</td>
</tr>
</tbody></table></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	g := NewGitstar(srv.Client())
	g.pageURL = srv.URL

	repos, err := g.Fetch(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("got %d repos, want 1", len(repos))
	}
	if repos[0].FullName != "acme/widget" || repos[0].Stars != 402000 {
		t.Errorf("repo = %+v", repos[0])
	}
	if repos[0].URL != "https://github.com/acme/widget" {
		t.Errorf("url = %s", repos[0].URL)
	}
}

func TestFetchDocumentRejectsBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewTrendingPage(srv.Client())
	s.pageURL = srv.URL

	if _, err := s.Fetch(context.Background(), 5); err == nil {
		t.Fatal("expected an error on 403")
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"1,234":   1234,
		"12.3k":   12300,
		" 987 ":   987,
		"402,000": 402000,
		"":        0,
		"n/a":     0,
	}
	for in, want := range cases {
		if got := parseCount(in); got != want {
			t.Errorf("parseCount(%q) = %d, want %d", in, got, want)
		}
	}
}
