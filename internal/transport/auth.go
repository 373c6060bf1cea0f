package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
	// Method names the scheme for error reporting.
	Method() string
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// Method implements the Authenticator interface for NoAuth.
func (a *NoAuth) Method() string { return "none" }

// BasicAuth implements HTTP Basic authentication with optional extra headers.
type BasicAuth struct {
	Username string
	Password string
	Headers  map[string]string
}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
}

// Method implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Method() string { return "basic" }

// HeaderAuth sends credentials as plain request headers.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) {
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
}

// Method implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Method() string { return "header" }
