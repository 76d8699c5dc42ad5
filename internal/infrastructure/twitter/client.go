package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const (
	defaultAPIBaseURL    = "https://api.twitter.com"
	defaultUploadBaseURL = "https://upload.twitter.com"

	// maxAttempts bounds the in-channel retry for transient failures.
	// Rate-limit errors are never retried here; the orchestrator fails
	// over instead.
	maxAttempts = 2
	retryDelay  = 2 * time.Second
)

// Credentials holds the OAuth 1.0a user-context keys required to post.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// Configured reports whether all four posting credentials are present.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != "" &&
		c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Client publishes through the X API v2. It is the primary channel; every
// failure it returns is classified so the orchestrator can decide between
// retry and failover.
type Client struct {
	apiBaseURL    string
	uploadBaseURL string
	signer        *oauth1Signer
	http          *http.Client
	logger        *slog.Logger
	retry         retrypolicy.RetryPolicy[string]
}

var _ ports.PublishChannel = (*Client)(nil)

// NewClient builds the primary channel from posting credentials.
func NewClient(creds Credentials, logger *slog.Logger) *Client {
	retry := retrypolicy.NewBuilder[string]().
		WithDelay(retryDelay).
		WithMaxRetries(maxAttempts - 1).
		HandleIf(func(_ string, err error) bool {
			// Transient failures get the bounded retry; a detected rate
			// limit aborts the remaining attempts immediately.
			return err != nil && !domain.IsRateLimitError(err)
		}).
		Build()

	return &Client{
		apiBaseURL:    defaultAPIBaseURL,
		uploadBaseURL: defaultUploadBaseURL,
		signer:        newOAuth1Signer(creds.APIKey, creds.APISecret, creds.AccessToken, creds.AccessTokenSecret),
		http:          &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
		retry:         retry,
	}
}

// PublishMain creates the main post, attaching local media when available.
// Media upload failure degrades to a text-only post rather than failing
// the whole attempt.
func (c *Client) PublishMain(ctx context.Context, text, mediaPath string) (string, error) {
	var mediaID string
	if mediaPath != "" {
		if _, err := os.Stat(mediaPath); err == nil {
			id, upErr := c.uploadMedia(ctx, mediaPath)
			if upErr != nil {
				c.warn("media upload failed, posting without image",
					"step", "media_upload_error", "error", upErr.Error())
			} else {
				mediaID = id
				c.info("media uploaded", "step", "media_upload_success", "media_id", id)
			}
		}
	}

	payload := map[string]any{"text": text}
	if mediaID != "" {
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}

	id, err := failsafe.With(c.retry).WithContext(ctx).Get(func() (string, error) {
		return c.createTweet(ctx, payload)
	})
	if err != nil {
		return "", classify(err)
	}

	c.info("tweet created", "step", "tweet_api_success", "tweet_id", id)
	return id, nil
}

// PublishReply creates a reply addressed to parentID.
func (c *Client) PublishReply(ctx context.Context, parentID, text string) (string, error) {
	payload := map[string]any{
		"text":  text,
		"reply": map[string]any{"in_reply_to_tweet_id": parentID},
	}

	id, err := failsafe.With(c.retry).WithContext(ctx).Get(func() (string, error) {
		return c.createTweet(ctx, payload)
	})
	if err != nil {
		return "", classify(err)
	}

	c.info("reply created", "step", "reply_api_success", "reply_id", id)
	return id, nil
}

func (c *Client) createTweet(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal tweet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.sign(req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", newStatusError(resp)
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("tweet response carried no id")
	}
	return out.Data.ID, nil
}

func (c *Client) uploadMedia(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.uploadBaseURL+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.signer.sign(req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", newStatusError(resp)
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("upload response carried no media id")
	}
	return out.MediaIDString, nil
}

// statusError keeps the HTTP status in the error text so the marker-based
// rate-limit matcher sees "429" and the friends.
type statusError struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("twitter api %d: %s", e.status, e.body)
}

func newStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	var retryAfter time.Duration
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	} else if v := resp.Header.Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
				retryAfter = wait
			}
		}
	}

	return &statusError{
		status:     resp.StatusCode,
		body:       string(bytes.TrimSpace(body)),
		retryAfter: retryAfter,
	}
}

func classify(err error) error {
	if domain.IsRateLimitError(err) {
		pe := domain.NewPublishError(domain.ErrRateLimited, err)
		var se *statusError
		if errors.As(err, &se) {
			pe.RetryAfter = se.retryAfter
		}
		return pe
	}
	return domain.NewPublishError(domain.ErrTransient, err)
}

func (c *Client) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
