package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/lodgio/whatsapp-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	defaultAuthorizeURL = "https://www.facebook.com/dialog/oauth"
	defaultBaseURL      = "https://graph.facebook.com/v22.0"
	oauthScopes         = "whatsapp_business_management,whatsapp_business_messaging"
)

var ErrEmptyAccessToken = errors.New("token response contained no access token")

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RequestMetrics tracks client health across calls.
type RequestMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
}

func (m *RequestMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
}

func (m *RequestMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
}

func (m *RequestMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *RequestMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type Config struct {
	AppID        string
	AppSecret    string
	RedirectURI  string
	BaseURL      string // Graph API base incl. version, e.g. https://graph.facebook.com/v22.0
	AuthorizeURL string
	Timeout      time.Duration
	MaxConns     int
}

// Client is the Meta Graph API client used for OAuth token exchange, webhook
// subscription management, phone registration and message sends. Every call
// carries a deadline; a hung upstream surfaces as an error, never a stuck
// caller.
type Client struct {
	config  Config
	http    *fasthttp.Client
	metrics *RequestMetrics
}

func NewClient(config Config) (*Client, error) {
	if config.AppID == "" || config.AppSecret == "" {
		return nil, errors.New("graph client requires app id and secret")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultAuthorizeURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxConns == 0 {
		config.MaxConns = 512
	}

	c := &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		metrics: &RequestMetrics{},
	}

	logger.Info("graph client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return c, nil
}

func (c *Client) Metrics() *RequestMetrics { return c.metrics }

// AuthorizeURL builds the embedded-signup authorization URL. The state value
// binds the browser flow back to the initiating tenant.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.config.AppID)
	q.Set("redirect_uri", c.config.RedirectURI)
	q.Set("state", state)
	q.Set("scope", oauthScopes)
	return c.config.AuthorizeURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.config.AppID)
	form.Set("client_secret", c.config.AppSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.config.RedirectURI)
	return c.requestToken(ctx, form)
}

// RefreshToken trades a refresh token for a fresh access/refresh pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.config.AppID)
	form.Set("client_secret", c.config.AppSecret)
	form.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	body, err := c.doRequest(ctx, "POST", "/oauth/access_token", []byte(form.Encode()), requestOptions{
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}
	if token.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		token.ExpiresAt = &exp
	}
	return &token, nil
}

// SubscribeWebhooks subscribes the app to the WABA's webhook notifications.
func (c *Client) SubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error {
	path := fmt.Sprintf("/%s/subscribed_apps", wabaID)
	_, err := c.doRequest(ctx, "POST", path, nil, requestOptions{bearer: accessToken})
	return err
}

// UnsubscribeWebhooks removes the app from the WABA's webhook notifications.
func (c *Client) UnsubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error {
	path := fmt.Sprintf("/%s/subscribed_apps", wabaID)
	_, err := c.doRequest(ctx, "DELETE", path, nil, requestOptions{bearer: accessToken})
	return err
}

// RegisterPhone completes two-step verification for the business phone number.
func (c *Client) RegisterPhone(ctx context.Context, phoneNumberID, accessToken, pin string) error {
	reqBody, err := json.Marshal(registerRequest{
		MessagingProduct: MessagingProduct,
		Pin:              pin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal register request: %w", err)
	}

	path := fmt.Sprintf("/%s/register", phoneNumberID)
	_, err = c.doRequest(ctx, "POST", path, reqBody, requestOptions{
		bearer:      accessToken,
		contentType: "application/json",
	})
	return err
}

// SendText sends a text message through the tenant's business phone number.
func (c *Client) SendText(ctx context.Context, phoneNumberID, accessToken, to, text string) (*SendMessageResponse, error) {
	reqBody, err := json.Marshal(SendMessageRequest{
		MessagingProduct: MessagingProduct,
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &Text{Body: text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	path := fmt.Sprintf("/%s/messages", phoneNumberID)
	body, err := c.doRequest(ctx, "POST", path, reqBody, requestOptions{
		bearer:      accessToken,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp SendMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal send response: %w", err)
	}
	return &resp, nil
}

type requestOptions struct {
	bearer      string
	contentType string
}

// doRequest performs one HTTP request against the Graph API with a deadline.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, opts requestOptions) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	if opts.contentType != "" {
		req.Header.SetContentType(opts.contentType)
	}
	if opts.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+opts.bearer)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.metrics.RecordFailure()
		return nil, fmt.Errorf("graph request %s %s failed: %w", method, path, err)
	}
	latency := time.Since(start).Milliseconds()

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		c.metrics.RecordFailure()
		return nil, &APIError{StatusCode: statusCode, Body: string(resp.Body())}
	}

	c.metrics.RecordSuccess(latency)

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
