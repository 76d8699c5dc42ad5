package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_repos.json")

	store := NewFileStore(path, nil)
	if store.IsAlreadyPosted("https://github.com/a/b") {
		t.Fatal("fresh store must be empty")
	}

	if err := store.MarkAsPosted("https://github.com/a/b", "100"); err != nil {
		t.Fatalf("mark as posted: %v", err)
	}

	// A fresh load must observe the mark and recover the same id.
	reloaded := NewFileStore(path, nil)
	if !reloaded.IsAlreadyPosted("https://github.com/a/b") {
		t.Fatal("reloaded store lost the mark")
	}
	if got := reloaded.posted["https://github.com/a/b"].PostID; got != "100" {
		t.Fatalf("expected post id 100, got %q", got)
	}
}

func TestFileStoreFilterUnpostedIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_repos.json")
	store := NewFileStore(path, nil)

	if err := store.MarkAsPosted("https://github.com/x/posted", "1"); err != nil {
		t.Fatalf("mark as posted: %v", err)
	}

	candidates := []domain.Repo{
		{Name: "fresh", URL: "https://github.com/x/fresh"},
		{Name: "posted", URL: "https://github.com/x/posted"},
		{Name: "another", URL: "https://github.com/x/another"},
	}

	once := store.FilterUnposted(candidates)
	twice := store.FilterUnposted(once)

	if len(once) != 2 {
		t.Fatalf("expected 2 unposted, got %d", len(once))
	}
	if len(twice) != len(once) {
		t.Fatalf("filter must be idempotent: %d != %d", len(twice), len(once))
	}
	if once[0].Name != "fresh" || once[1].Name != "another" {
		t.Fatalf("order must be preserved, got %v", once)
	}
}

func TestFileStoreNoDuplicateRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_repos.json")
	store := NewFileStore(path, nil)

	for i := 0; i < 5; i++ {
		if err := store.MarkAsPosted("https://github.com/a/b", "42"); err != nil {
			t.Fatalf("mark as posted: %v", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history file: %v", err)
	}

	var data fileFormat
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse history file: %v", err)
	}
	if len(data.Repos) != 1 || len(data.LastPosts) != 1 {
		t.Fatalf("expected exactly one record, got repos=%d posts=%d",
			len(data.Repos), len(data.LastPosts))
	}
	if data.UpdatedAt == "" {
		t.Fatal("updated_at must be set")
	}
}

func TestFileStoreEviction(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_repos.json")
	store := NewFileStore(path, nil)

	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now.AddDate(0, 0, -10) }
	if err := store.MarkAsPosted("https://github.com/old/repo", "1"); err != nil {
		t.Fatalf("mark old: %v", err)
	}

	store.now = func() time.Time { return now }
	if err := store.MarkAsPosted("https://github.com/new/repo", "2"); err != nil {
		t.Fatalf("mark new: %v", err)
	}

	// A record with an unparsable timestamp counts as corrupt and goes too.
	store.posted["https://github.com/corrupt/repo"] = postInfo{PostID: "3", PostedAt: "not-a-date"}

	removed, err := store.EvictOlderThan(7)
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if store.IsAlreadyPosted("https://github.com/old/repo") {
		t.Fatal("old record must be gone")
	}
	if !store.IsAlreadyPosted("https://github.com/new/repo") {
		t.Fatal("recent record must survive")
	}
}

func TestFileStoreCorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_repos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store := NewFileStore(path, nil)
	if store.IsAlreadyPosted("anything") {
		t.Fatal("corrupt file must degrade to an empty store")
	}
	if err := store.MarkAsPosted("https://github.com/a/b", "1"); err != nil {
		t.Fatalf("store must be writable after corrupt load: %v", err)
	}
}
