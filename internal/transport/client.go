// Package transport is the HTTP layer shared by the Keyfactor and Sectigo clients.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client performs JSON requests against one remote system.
type Client struct {
	system  string
	baseURL string
	http    *http.Client

	mu   sync.RWMutex
	auth Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for system rooted at baseURL. Requests fail with
// errors.ErrNotAuthenticated until SetAuth is called.
func New(system, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewValidationError(system+" base URL", baseURL, "must be an absolute URL")
	}
	c := &Client{
		system:  system,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// System returns the name of the remote system.
func (c *Client) System() string {
	return c.system
}

// SetAuth installs the authenticator applied to every request.
func (c *Client) SetAuth(auth Authenticator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = auth
}

// Authenticated reports whether SetAuth has been called.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth != nil
}

// URL joins path and query onto the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	c.mu.RLock()
	auth := c.auth
	c.mu.RUnlock()
	if auth == nil {
		return errors.ErrNotAuthenticated
	}

	endpoint := c.URL(path, query)

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}

	var (
		req *http.Request
		err error
	)
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return errors.WrapValidation("request", err)
	}

	auth.Apply(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.ErrCanceled
		}
		return &errors.APIError{System: c.system, Endpoint: method + " " + path, Message: err.Error(), Err: err}
	}
	return DecodeResponse(c.system, method+" "+path, resp, out)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}
