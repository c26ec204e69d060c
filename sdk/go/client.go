package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"progresskit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the progresskit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// RecordQuiz submits a completed quiz and returns the updated aggregate with
// any newly unlocked achievements.
func (c *Client) RecordQuiz(ctx context.Context, learnerID string, quiz Quiz) (QuizOutcome, error) {
	if strings.TrimSpace(learnerID) == "" {
		return QuizOutcome{}, ErrEmptyLearnerID
	}
	payload, err := json.Marshal(quiz)
	if err != nil {
		return QuizOutcome{}, err
	}
	u := fmt.Sprintf("%s/learners/%s/quizzes", c.baseURL, url.PathEscape(learnerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return QuizOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QuizOutcome{}, err
	}
	defer resp.Body.Close()

	var out QuizOutcome
	if err := decodeJSON(resp, &out); err != nil {
		return QuizOutcome{}, err
	}
	return out, nil
}

// RecordDocument counts an uploaded document as learning activity.
func (c *Client) RecordDocument(ctx context.Context, learnerID string) (QuizOutcome, error) {
	if strings.TrimSpace(learnerID) == "" {
		return QuizOutcome{}, ErrEmptyLearnerID
	}
	u := fmt.Sprintf("%s/learners/%s/documents", c.baseURL, url.PathEscape(learnerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return QuizOutcome{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QuizOutcome{}, err
	}
	defer resp.Body.Close()

	var out QuizOutcome
	if err := decodeJSON(resp, &out); err != nil {
		return QuizOutcome{}, err
	}
	return out, nil
}

// UsePoints spends amount from the learner's balance and returns what remains.
func (c *Client) UsePoints(ctx context.Context, learnerID string, amount int64) (int64, error) {
	if strings.TrimSpace(learnerID) == "" {
		return 0, ErrEmptyLearnerID
	}
	u, err := url.Parse(fmt.Sprintf("%s/learners/%s/points/use", c.baseURL, url.PathEscape(learnerID)))
	if err != nil {
		return 0, err
	}
	q := u.Query()
	q.Set("amount", fmt.Sprintf("%d", amount))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return 0, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Available int64 `json:"available"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return 0, err
	}
	return body.Available, nil
}

// GetProgress fetches the current progress aggregate for a learner.
func (c *Client) GetProgress(ctx context.Context, learnerID string) (ProgressState, error) {
	if strings.TrimSpace(learnerID) == "" {
		return ProgressState{}, ErrEmptyLearnerID
	}
	u := fmt.Sprintf("%s/learners/%s", c.baseURL, url.PathEscape(learnerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ProgressState{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProgressState{}, err
	}
	defer resp.Body.Close()

	var st ProgressState
	if err := decodeJSON(resp, &st); err != nil {
		return ProgressState{}, err
	}
	return st, nil
}

// GetAnalysis fetches subject strengths and weaknesses.
func (c *Client) GetAnalysis(ctx context.Context, learnerID string) (Analysis, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Analysis{}, ErrEmptyLearnerID
	}
	u := fmt.Sprintf("%s/learners/%s/analysis", c.baseURL, url.PathEscape(learnerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Analysis{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Analysis{}, err
	}
	defer resp.Body.Close()

	var a Analysis
	if err := decodeJSON(resp, &a); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// QuoteDiscount previews the discount the learner's balance buys on a price.
func (c *Client) QuoteDiscount(ctx context.Context, learnerID string, price float64) (DiscountQuote, error) {
	return c.discount(ctx, learnerID, price, http.MethodGet)
}

// ApplyDiscount spends points for a discount on a price.
func (c *Client) ApplyDiscount(ctx context.Context, learnerID string, price float64) (DiscountQuote, error) {
	return c.discount(ctx, learnerID, price, http.MethodPost)
}

func (c *Client) discount(ctx context.Context, learnerID string, price float64, method string) (DiscountQuote, error) {
	if strings.TrimSpace(learnerID) == "" {
		return DiscountQuote{}, ErrEmptyLearnerID
	}
	u, err := url.Parse(fmt.Sprintf("%s/learners/%s/discount", c.baseURL, url.PathEscape(learnerID)))
	if err != nil {
		return DiscountQuote{}, err
	}
	q := u.Query()
	q.Set("price", fmt.Sprintf("%g", price))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return DiscountQuote{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DiscountQuote{}, err
	}
	defer resp.Body.Close()

	var quote DiscountQuote
	if err := decodeJSON(resp, &quote); err != nil {
		return DiscountQuote{}, err
	}
	return quote, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	u := c.baseURL + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return HealthStatus{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if err := decodeJSON(resp, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
