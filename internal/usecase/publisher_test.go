package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ratelimit"
)

type fakeChannel struct {
	mainID     string
	mainErr    error
	replyID    string
	replyErr   error
	mainCalls  int
	replyCalls int
	lastText   string
	lastMedia  string
	lastParent string
}

func (c *fakeChannel) PublishMain(_ context.Context, text, mediaPath string) (string, error) {
	c.mainCalls++
	c.lastText = text
	c.lastMedia = mediaPath
	return c.mainID, c.mainErr
}

func (c *fakeChannel) PublishReply(_ context.Context, parentID, _ string) (string, error) {
	c.replyCalls++
	c.lastParent = parentID
	return c.replyID, c.replyErr
}

type fakeStore struct {
	records    map[string]string
	markErr    error
	evictCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]string)}
}

func (s *fakeStore) IsAlreadyPosted(url string) bool {
	_, ok := s.records[url]
	return ok
}

func (s *fakeStore) MarkAsPosted(url, postID string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.records[url] = postID
	return nil
}

func (s *fakeStore) FilterUnposted(candidates []domain.Repo) []domain.Repo {
	var out []domain.Repo
	for _, r := range candidates {
		if !s.IsAlreadyPosted(r.URL) {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeStore) EvictOlderThan(int) (int, error) {
	s.evictCalls++
	return 0, nil
}

type env struct {
	primary   *fakeChannel
	fallback  *fakeChannel
	store     *fakeStore
	tracker   *ratelimit.Tracker
	opens     int
	releases  int
	openErr   error
	publisher *Publisher
}

func newEnv() *env {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &env{
		primary:  &fakeChannel{},
		fallback: &fakeChannel{},
		store:    newFakeStore(),
		tracker:  ratelimit.NewTracker(30*time.Minute, logger),
	}
	factory := func(ctx context.Context) (ports.PublishChannel, func(), error) {
		if e.openErr != nil {
			return nil, nil, e.openErr
		}
		e.opens++
		return e.fallback, func() { e.releases++ }, nil
	}
	e.publisher = NewPublisher(e.primary, factory, e.store, e.tracker, logger)
	return e
}

func request() domain.PublishRequest {
	return domain.PublishRequest{
		RepoURL:   "https://github.com/acme/widget",
		MainText:  "main",
		ReplyText: "reply",
	}
}

func TestPublishPrimarySuccess(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainID = "100"
	e.primary.replyID = "101"

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Channel != domain.ChannelPrimary {
		t.Errorf("channel = %q, want primary", result.Channel)
	}
	if result.MainPostID != "100" || result.ReplyPostID != "101" {
		t.Errorf("ids = %q/%q, want 100/101", result.MainPostID, result.ReplyPostID)
	}
	if e.primary.lastParent != "100" {
		t.Errorf("reply parent = %q, want 100", e.primary.lastParent)
	}
	if got := e.store.records[request().RepoURL]; got != "100" {
		t.Errorf("history record = %q, want 100", got)
	}
	if e.opens != 0 {
		t.Errorf("fallback opened %d times, want 0", e.opens)
	}
}

func TestPublishRateLimitFailsOver(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainErr = domain.NewPublishError(domain.ErrRateLimited, errors.New("429 too many requests"))
	e.fallback.mainID = "fb-1"
	e.fallback.replyID = "fb-2"

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != domain.ChannelFallback || result.MainPostID != "fb-1" {
		t.Fatalf("result = %+v, want fallback fb-1", result)
	}
	if e.tracker.ConsecutiveRateLimits() != 1 {
		t.Errorf("streak = %d, want 1", e.tracker.ConsecutiveRateLimits())
	}
	if e.primary.mainCalls != 1 {
		t.Errorf("primary main attempts = %d, want exactly 1", e.primary.mainCalls)
	}
	// The reply must not touch the primary again within the same run.
	if e.primary.replyCalls != 0 {
		t.Errorf("primary reply attempts = %d, want 0", e.primary.replyCalls)
	}
	if e.fallback.replyCalls != 1 || e.fallback.lastParent != "fb-1" {
		t.Errorf("fallback reply calls/parent = %d/%q", e.fallback.replyCalls, e.fallback.lastParent)
	}
	if e.opens != 1 || e.releases != 1 {
		t.Errorf("fallback opens/releases = %d/%d, want 1/1", e.opens, e.releases)
	}
}

func TestPublishTotalFailureLeavesHistoryUntouched(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainErr = errors.New("network down")
	e.fallback.mainErr = domain.NewPublishError(domain.ErrResourceUnavailable, errors.New("page gone"))

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded() {
		t.Fatal("expected failure")
	}
	if result.Failure == nil || result.Failure.Kind != domain.ErrTotalFailure {
		t.Fatalf("failure = %+v, want total_failure", result.Failure)
	}
	if len(e.store.records) != 0 {
		t.Errorf("history gained %d records on total failure", len(e.store.records))
	}
	if e.tracker.ConsecutiveRateLimits() != 0 {
		t.Errorf("streak = %d, want 0", e.tracker.ConsecutiveRateLimits())
	}
}

func TestPublishSkipsPrimaryWhenFallbackPreferred(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.tracker.RecordRateLimit(0)
	e.tracker.RecordRateLimit(0)
	e.fallback.mainID = "fb-9"

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.primary.mainCalls != 0 || e.primary.replyCalls != 0 {
		t.Errorf("primary touched %d/%d times, want 0/0", e.primary.mainCalls, e.primary.replyCalls)
	}
	if result.Channel != domain.ChannelFallback {
		t.Errorf("channel = %q, want fallback", result.Channel)
	}
	// A fallback run never clears the streak.
	if e.tracker.ConsecutiveRateLimits() != 2 {
		t.Errorf("streak = %d, want 2", e.tracker.ConsecutiveRateLimits())
	}
}

func TestPublishLogsWhyPrimaryWasSkipped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	e := newEnv()
	e.fallback.mainID = "fb-1"
	e.fallback.replyID = "fb-2"
	factory := func(ctx context.Context) (ports.PublishChannel, func(), error) {
		return e.fallback, func() {}, nil
	}
	pub := NewPublisher(nil, factory, e.store, e.tracker, logger)

	if _, err := pub.Publish(context.Background(), request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"reason":"not configured"`) {
		t.Errorf("skip log should name the missing channel, got: %s", buf.String())
	}

	buf.Reset()
	e.tracker.RecordRateLimit(0)
	e.tracker.RecordRateLimit(0)
	pub = NewPublisher(e.primary, factory, e.store, e.tracker, logger)
	if _, err := pub.Publish(context.Background(), request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"reason":"recent rate limits"`) {
		t.Errorf("skip log should name the tracker hint, got: %s", buf.String())
	}
}

func TestPublishIdentifierRecoveryIsStillSuccess(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainErr = errors.New("boom")
	e.fallback.mainErr = domain.NewPublishError(domain.ErrIdentifierRecovery, errors.New("id not found"))
	e.fallback.replyID = ""

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.MainPostID != "" {
		t.Errorf("main id = %q, want empty", result.MainPostID)
	}
	if _, ok := e.store.records[request().RepoURL]; !ok {
		t.Error("history missing record after identifier-recovery success")
	}
	if e.fallback.lastParent != "" {
		t.Errorf("reply parent = %q, want empty", e.fallback.lastParent)
	}
}

func TestPublishPersistenceFailureSurfaces(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainID = "100"
	e.store.markErr = errors.New("disk full")

	result, err := e.publisher.Publish(context.Background(), request())
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if domain.KindOf(err) != domain.ErrPersistence {
		t.Errorf("error kind = %q, want persistence", domain.KindOf(err))
	}
	if result.MainPostID != "100" {
		t.Errorf("main id = %q, want 100", result.MainPostID)
	}
	// No reply attempt once history recording fails.
	if e.primary.replyCalls != 0 {
		t.Errorf("reply attempts = %d, want 0", e.primary.replyCalls)
	}
}

func TestPublishReplyFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.primary.mainID = "100"
	e.primary.replyErr = errors.New("boom")
	e.fallback.replyErr = errors.New("boom again")

	result, err := e.publisher.Publish(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.ReplyPostID != "" {
		t.Errorf("reply id = %q, want empty", result.ReplyPostID)
	}
	if got := e.store.records[request().RepoURL]; got != "100" {
		t.Errorf("history record = %q, want 100", got)
	}
}
