package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/small-frappuccino/boardcore/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.trello.com/1"

	defaultTimeout     = 10 * time.Second
	defaultRetryWindow = 8 * time.Second
	maxErrorBody       = 512
)

// HTTPClient implements Client over the REST API. Requests are rate limited client-side
// and retried with exponential backoff on 429 and 5xx responses.
type HTTPClient struct {
	baseURL     string
	key         string
	http        *http.Client
	limiter     *rate.Limiter
	retryWindow time.Duration
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithRateLimit allows rps requests per second with the given burst. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryWindow bounds the total time spent retrying one call. Zero disables retries.
func WithRetryWindow(d time.Duration) Option {
	return func(c *HTTPClient) { c.retryWindow = d }
}

// NewHTTPClient creates a client for baseURL authenticated with the application key.
func NewHTTPClient(baseURL, key string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		key:         key,
		http:        &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(10), 10),
		retryWindow: defaultRetryWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Me(ctx context.Context, token string) (Member, error) {
	var m Member
	err := c.do(ctx, "me", http.MethodGet, "/members/me", token, url.Values{"fields": {"username,fullName"}}, &m)
	return m, err
}

func (c *HTTPClient) MemberBoards(ctx context.Context, token string) ([]Board, error) {
	var out []Board
	q := url.Values{"filter": {"open"}, "fields": {"name,desc,url,closed"}}
	err := c.do(ctx, "member_boards", http.MethodGet, "/members/me/boards", token, q, &out)
	return out, err
}

func (c *HTTPClient) Board(ctx context.Context, token, boardID string) (Board, error) {
	var b Board
	err := c.do(ctx, "board", http.MethodGet, "/boards/"+url.PathEscape(boardID), token,
		url.Values{"fields": {"name,desc,url,closed"}}, &b)
	return b, err
}

func (c *HTTPClient) BoardLists(ctx context.Context, token, boardID string) ([]List, error) {
	var out []List
	err := c.do(ctx, "board_lists", http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/lists", token,
		url.Values{"filter": {"open"}}, &out)
	return out, err
}

func (c *HTTPClient) BoardCards(ctx context.Context, token, boardID string) ([]Card, error) {
	var out []Card
	err := c.do(ctx, "board_cards", http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/cards", token,
		url.Values{"filter": {"open"}}, &out)
	return out, err
}

func (c *HTTPClient) BoardLabels(ctx context.Context, token, boardID string) ([]Label, error) {
	var out []Label
	err := c.do(ctx, "board_labels", http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/labels", token, nil, &out)
	return out, err
}

func (c *HTTPClient) CardAttachments(ctx context.Context, token, cardID string) ([]Attachment, error) {
	var out []Attachment
	err := c.do(ctx, "card_attachments", http.MethodGet, "/cards/"+url.PathEscape(cardID)+"/attachments", token, nil, &out)
	return out, err
}

func (c *HTTPClient) ArchiveCard(ctx context.Context, token, cardID string) error {
	return c.do(ctx, "archive_card", http.MethodPut, "/cards/"+url.PathEscape(cardID), token,
		url.Values{"closed": {"true"}}, nil)
}

func (c *HTTPClient) DeleteWebhook(ctx context.Context, token, webhookID string) error {
	return c.do(ctx, "delete_webhook", http.MethodDelete, "/webhooks/"+url.PathEscape(webhookID), token, nil, nil)
}

// do performs one logical call, retrying temporary failures within the retry window.
func (c *HTTPClient) do(ctx context.Context, endpoint, method, path, token string, query url.Values, dst any) error {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("key", c.key)
	if token != "" {
		q.Set("token", token)
	}
	target := c.baseURL + path + "?" + q.Encode()

	attempt := func() error {
		err := c.once(ctx, endpoint, method, target, dst)
		var apiErr *APIError
		if err != nil && errors.As(err, &apiErr) && !apiErr.Temporary {
			return backoff.Permanent(err)
		}
		return err
	}
	if c.retryWindow <= 0 {
		return unwrapPermanent(attempt())
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = c.retryWindow
	return unwrapPermanent(backoff.Retry(attempt, backoff.WithContext(bo, ctx)))
}

func (c *HTTPClient) once(ctx context.Context, endpoint, method, target string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return backoff.Permanent(fmt.Errorf("%s: %w", endpoint, err))
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%s: build request: %w", endpoint, err))
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveBoardRequest(endpoint, "error", started)
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%s: %w", endpoint, ctx.Err()))
		}
		return &APIError{Operation: endpoint, Class: ClassUnavailable, Temporary: true, Cause: err}
	}
	defer resp.Body.Close()
	metrics.ObserveBoardRequest(endpoint, strconv.Itoa(resp.StatusCode), started)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classify(endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return backoff.Permanent(fmt.Errorf("%s: decode response: %w", endpoint, err))
	}
	return nil
}

// unwrapPermanent strips the marker backoff leaves on errors returned without retry.
func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
