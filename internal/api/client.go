// Package api is the HTTP gateway to the storefront REST API. Authenticated
// calls carry the current access token; a 401 triggers one token refresh and
// one retry of the original request.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1/"
	DefaultTimeout = 30 * time.Second

	headerRequestID = "X-Request-ID"
	headerClientID  = "X-Client-ID"
	userAgent       = "storefront-cli/1.0"
)

// TokenSource provides the access token attached to requests and renews it
// when the API rejects it.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

type ClientOpts struct {
	BaseURL string
	Tokens  TokenSource
	// InstallationID is sent as X-Client-ID on every request.
	InstallationID string
	Timeout        time.Duration
	Metrics        *Metrics
	Debug          bool
}

// Client is the gateway used for every storefront call except the token and
// registration endpoints.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	tokens     TokenSource
	metrics    *Metrics
}

func NewClient(opts ClientOpts) *Client {
	c := Client{
		baseURL: DefaultBaseURL,
		tokens:  opts.Tokens,
		metrics: opts.Metrics,
	}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	if c.tokens == nil {
		c.tokens = noTokens{}
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.httpClient = newRestyClient(c.baseURL, opts.InstallationID, opts.Timeout, opts.Debug)
	return &c
}

func newRestyClient(baseURL, installationID string, timeout time.Duration, debug bool) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": userAgent,
	}
	if installationID != "" {
		headers[headerClientID] = installationID
	}
	return resty.New().
		SetDebug(debug).
		SetLogger(restyLogger{}).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(headers)
}

// send issues a request, refreshing the access token and retrying once if the
// API answers 401. configure is applied to each attempt.
func (c *Client) send(ctx context.Context, method, url string, configure func(r *resty.Request)) (*resty.Response, error) {
	token := c.tokens.AccessToken()
	res, err := c.execute(ctx, method, url, token, configure)
	if err != nil || res.StatusCode() != http.StatusUnauthorized {
		return handleError(res, err)
	}

	// The token was renewed by someone else while this request was in flight
	if current := c.tokens.AccessToken(); current != "" && current != token {
		log.Debug().Str("url", url).Msg("retrying with already renewed access token")
		c.metrics.Retries.Inc()
		return handleError(c.execute(ctx, method, url, current, configure))
	}

	c.metrics.RefreshAttempts.Inc()
	fresh, refreshErr := c.tokens.Refresh(ctx)
	if refreshErr != nil {
		log.Warn().Err(refreshErr).Str("method", method).Str("url", url).
			Msg("token refresh failed, giving up on request")
		re := newRequestError(res)
		re.Err = refreshErr
		return res, re
	}

	c.metrics.Retries.Inc()
	return handleError(c.execute(ctx, method, url, fresh, configure))
}

func (c *Client) execute(ctx context.Context, method, url, token string, configure func(r *resty.Request)) (*resty.Response, error) {
	r := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader(headerRequestID, ulid.Make().String())
	if token != "" {
		r.SetAuthToken(token)
	}
	if configure != nil {
		configure(r)
	}

	res, err := r.Execute(method, url)
	c.metrics.observe(method, res, err)
	return res, err
}

type noTokens struct{}

func (noTokens) AccessToken() string { return "" }

func (noTokens) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("no token source configured")
}

// restyLogger routes resty's own diagnostics to zerolog.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) { log.Error().Msgf(format, v...) }
func (restyLogger) Warnf(format string, v ...any)  { log.Warn().Msgf(format, v...) }
func (restyLogger) Debugf(format string, v ...any) { log.Debug().Msgf(format, v...) }
