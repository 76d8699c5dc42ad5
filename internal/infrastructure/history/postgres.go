package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const pgQueryTimeout = 5 * time.Second

// PostgresStore is the durable history variant backed by a posted_repos
// table. Same contract as FileStore; lookups that fail report the record
// as unposted (a duplicate post is preferable to a wedged scheduler).
type PostgresStore struct {
	db      *sql.DB
	logger  *slog.Logger
	builder sq.StatementBuilderType
}

var _ ports.HistoryStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB opened with the lib/pq driver.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the posted_repos table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("postgres history misconfigured")
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posted_repos (
			repo_url  TEXT PRIMARY KEY,
			post_id   TEXT NOT NULL DEFAULT '',
			posted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create posted_repos table: %w", err)
	}
	return nil
}

// IsAlreadyPosted reports key membership in posted_repos.
func (s *PostgresStore) IsAlreadyPosted(url string) bool {
	if s.db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), pgQueryTimeout)
	defer cancel()

	query, args, err := s.builder.
		Select("1").
		From("posted_repos").
		Where(sq.Eq{"repo_url": url}).
		ToSql()
	if err != nil {
		return false
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && s.logger != nil {
			s.logger.Warn("history lookup failed",
				"step", "history_lookup_error", "repo_url", url, "error", err.Error())
		}
		return false
	}
	return true
}

// MarkAsPosted upserts the record for url with the current timestamp.
func (s *PostgresStore) MarkAsPosted(url, postID string) error {
	if s.db == nil {
		return domain.NewPublishError(domain.ErrPersistence, fmt.Errorf("postgres history misconfigured"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), pgQueryTimeout)
	defer cancel()

	query, args, err := s.builder.
		Insert("posted_repos").
		Columns("repo_url", "post_id", "posted_at").
		Values(url, postID, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (repo_url) DO UPDATE SET post_id = EXCLUDED.post_id, posted_at = NOW()").
		ToSql()
	if err != nil {
		return domain.NewPublishError(domain.ErrPersistence, fmt.Errorf("build upsert: %w", err))
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewPublishError(domain.ErrPersistence, fmt.Errorf("upsert posted repo: %w", err))
	}

	if s.logger != nil {
		s.logger.Info("repository marked as posted",
			"step", "repo_marked", "repo_url", url, "post_id", postID)
	}
	return nil
}

// FilterUnposted returns the candidates without a posted_repos row, order
// preserved.
func (s *PostgresStore) FilterUnposted(candidates []domain.Repo) []domain.Repo {
	unposted := make([]domain.Repo, 0, len(candidates))
	for _, repo := range candidates {
		if !s.IsAlreadyPosted(repo.URL) {
			unposted = append(unposted, repo)
		}
	}
	return unposted
}

// EvictOlderThan deletes rows outside the retention window.
func (s *PostgresStore) EvictOlderThan(days int) (int, error) {
	if s.db == nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pgQueryTimeout)
	defer cancel()

	query, args, err := s.builder.
		Delete("posted_repos").
		Where(sq.Expr("posted_at < NOW() - ? * INTERVAL '1 day'", days)).
		ToSql()
	if err != nil {
		return 0, domain.NewPublishError(domain.ErrPersistence, fmt.Errorf("build eviction: %w", err))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.NewPublishError(domain.ErrPersistence, fmt.Errorf("evict old history: %w", err))
	}

	removed, _ := res.RowsAffected()
	if removed > 0 && s.logger != nil {
		s.logger.Info("old history cleared",
			"step", "history_cleared", "removed", removed, "days", days)
	}
	return int(removed), nil
}
