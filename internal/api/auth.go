package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"

	"github.com/raine/storefront/internal/auth"
)

var errIncompleteTokens = errors.New("token response is missing access or refresh token")

// AuthClient calls the token and registration endpoints. Its requests carry
// no access token and are never retried.
type AuthClient struct {
	httpClient *resty.Client
	metrics    *Metrics
}

// NewAuthClient creates an AuthClient. opts.Tokens is ignored.
func NewAuthClient(opts ClientOpts) *AuthClient {
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AuthClient{
		httpClient: newRestyClient(baseURL, opts.InstallationID, opts.Timeout, opts.Debug),
		metrics:    metrics,
	}
}

func (c *AuthClient) post(ctx context.Context, url string, body, result any) error {
	r := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader(headerRequestID, ulid.Make().String()).
		SetBody(body)
	if result != nil {
		r.SetResult(result)
	}

	res, err := r.Execute(http.MethodPost, url)
	c.metrics.observe(http.MethodPost, res, err)
	_, err = handleError(res, err)
	return err
}

// ObtainTokens exchanges credentials for a token pair.
func (c *AuthClient) ObtainTokens(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
	var pair auth.TokenPair
	if err := c.post(ctx, "token/", creds, &pair); err != nil {
		return auth.TokenPair{}, err
	}
	if !pair.Valid() {
		return auth.TokenPair{}, errIncompleteTokens
	}
	return pair, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// RefreshAccess exchanges a refresh token for a new access token.
func (c *AuthClient) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	var result refreshResponse
	if err := c.post(ctx, "token/refresh/", refreshRequest{Refresh: refreshToken}, &result); err != nil {
		return "", err
	}
	if result.Access == "" {
		return "", errIncompleteTokens
	}
	return result.Access, nil
}

// Register creates a customer account.
func (c *AuthClient) Register(ctx context.Context, reg auth.Registration) error {
	return c.post(ctx, "users/register/", reg, nil)
}
