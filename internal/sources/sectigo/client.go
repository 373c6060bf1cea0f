// Package sectigo is a client for the Sectigo Certificate Manager REST API.
package sectigo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/metasync/internal/transport"
	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
)

// System is the name used in logs and errors.
const System = "sectigo"

// Credentials authenticate against Sectigo Certificate Manager.
type Credentials struct {
	Login       string
	Password    string
	CustomerURI string
}

// Query selects certificates of one SSL profile.
type Query = certs.SourceQuery

// Client talks to one Sectigo Certificate Manager tenant.
type Client struct {
	t *transport.Client
}

// NewClient creates a client for the API rooted at baseURL
// (for example https://cert-manager.com/).
func NewClient(baseURL string, opts ...transport.Option) (*Client, error) {
	t, err := transport.New(System, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{t: t}, nil
}

// Authenticate sets the credential headers sent with every request.
func (c *Client) Authenticate(creds Credentials) error {
	if creds.Login == "" || creds.Password == "" || creds.CustomerURI == "" {
		return errors.NewAuthenticationError(System, "header", "login, password and customer URI are required", nil)
	}
	c.t.SetAuth(&transport.HeaderAuth{Headers: map[string]string{
		"login":       creds.Login,
		"password":    creds.Password,
		"customerUri": creds.CustomerURI,
	}})
	return nil
}

// ListCustomFields returns every custom field definition.
func (c *Client) ListCustomFields(ctx context.Context) ([]fields.SourceField, error) {
	var out []fields.SourceField
	if err := c.t.Get(ctx, "api/customField/v2", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCertificates returns up to size certificates of one profile starting
// at position.
func (c *Client) ListCertificates(ctx context.Context, q Query, position, size int) ([]certs.SourceCertificate, error) {
	if position < 0 || size < 1 {
		return nil, errors.NewValidationError("position", position, "position must not be negative and size must be positive")
	}
	query := url.Values{
		"sslTypeId": {strconv.Itoa(q.SSLTypeID)},
		"position":  {strconv.Itoa(position)},
		"size":      {strconv.Itoa(size)},
	}
	if q.IssuedOnly {
		query.Set("status", "Issued")
	}

	var out []certs.SourceCertificate
	if err := c.t.Get(ctx, "api/ssl/v1", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CertificateDetail returns the full record of one certificate.
func (c *Client) CertificateDetail(ctx context.Context, sslID int) (*certs.SourceDetail, error) {
	var out certs.SourceDetail
	if err := c.t.Get(ctx, "api/ssl/v1/"+strconv.Itoa(sslID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type customFieldsUpdate struct {
	SslID        int                      `json:"sslId"`
	CustomFields []certs.CustomFieldValue `json:"customFields"`
}

// UpdateCustomFields sets custom field values on a certificate.
func (c *Client) UpdateCustomFields(ctx context.Context, sslID int, values []certs.CustomFieldValue) error {
	if len(values) == 0 {
		return errors.NewValidationError("customFields", nil, "at least one custom field value is required")
	}
	return c.t.Do(ctx, http.MethodPut, "api/ssl/v1", nil, customFieldsUpdate{SslID: sslID, CustomFields: values}, nil)
}
