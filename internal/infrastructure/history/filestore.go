package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// fileFormat is the on-disk layout. repos duplicates the last_posts keys
// so the file stays readable by the older tooling that only knew the set.
type fileFormat struct {
	Repos     []string            `json:"repos"`
	LastPosts map[string]postInfo `json:"last_posts"`
	UpdatedAt string              `json:"updated_at"`
}

type postInfo struct {
	PostID   string `json:"tweet_id"`
	PostedAt string `json:"posted_at"`
}

// FileStore keeps posted-repository records in a single JSON file,
// rewritten atomically on every change.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	posted map[string]postInfo
}

var _ ports.HistoryStore = (*FileStore)(nil)

// NewFileStore loads existing history from path. An unreadable or corrupt
// file degrades to an empty store with a warning rather than failing the
// whole process.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	s := &FileStore{
		path:   path,
		now:    time.Now,
		logger: logger,
		posted: map[string]postInfo{},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Warn("history unreadable, starting fresh",
				"step", "history_load_error", "path", path, "error", err.Error())
		}
		return s
	}

	var data fileFormat
	if err := json.Unmarshal(raw, &data); err != nil {
		if logger != nil {
			logger.Warn("history corrupt, starting fresh",
				"step", "history_load_error", "path", path, "error", err.Error())
		}
		return s
	}

	for url, info := range data.LastPosts {
		s.posted[url] = info
	}
	// Legacy entries: URLs present in the set without post metadata.
	for _, url := range data.Repos {
		if _, ok := s.posted[url]; !ok {
			s.posted[url] = postInfo{}
		}
	}

	if logger != nil {
		logger.Info("history loaded", "step", "history_loaded", "count", len(s.posted))
	}
	return s
}

// IsAlreadyPosted is a pure lookup; it never errors.
func (s *FileStore) IsAlreadyPosted(url string) bool {
	_, ok := s.posted[url]
	return ok
}

// MarkAsPosted inserts or overwrites the record for url and persists the
// full record set before returning.
func (s *FileStore) MarkAsPosted(url, postID string) error {
	s.posted[url] = postInfo{
		PostID:   postID,
		PostedAt: s.now().Format(time.RFC3339),
	}

	if err := s.save(); err != nil {
		return domain.NewPublishError(domain.ErrPersistence, err)
	}

	if s.logger != nil {
		s.logger.Info("repository marked as posted",
			"step", "repo_marked", "repo_url", url, "post_id", postID)
	}
	return nil
}

// FilterUnposted returns the candidates not yet posted, order preserved.
func (s *FileStore) FilterUnposted(candidates []domain.Repo) []domain.Repo {
	unposted := make([]domain.Repo, 0, len(candidates))
	for _, repo := range candidates {
		if !s.IsAlreadyPosted(repo.URL) {
			unposted = append(unposted, repo)
		}
	}

	if s.logger != nil {
		s.logger.Info("filtered repositories",
			"step", "repos_filtered",
			"total", len(candidates),
			"unposted", len(unposted),
			"already_posted", len(candidates)-len(unposted))
	}
	return unposted
}

// EvictOlderThan removes records older than the retention window, plus any
// record whose timestamp cannot be parsed, and persists the result.
func (s *FileStore) EvictOlderThan(days int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -days)

	removed := 0
	for url, info := range s.posted {
		postedAt, err := time.Parse(time.RFC3339, info.PostedAt)
		if err != nil || postedAt.Before(cutoff) {
			delete(s.posted, url)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	if err := s.save(); err != nil {
		return removed, domain.NewPublishError(domain.ErrPersistence, err)
	}

	if s.logger != nil {
		s.logger.Info("old history cleared",
			"step", "history_cleared", "removed", removed, "days", days)
	}
	return removed, nil
}

func (s *FileStore) save() error {
	data := fileFormat{
		Repos:     make([]string, 0, len(s.posted)),
		LastPosts: s.posted,
		UpdatedAt: s.now().Format(time.RFC3339),
	}
	for url := range s.posted {
		data.Repos = append(data.Repos, url)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp history: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
