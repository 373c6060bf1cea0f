// Package keyfactor is a client for the Keyfactor Command REST API.
package keyfactor

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/metasync/internal/transport"
	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
)

// System is the name used in logs and errors.
const System = "keyfactor"

// Credentials authenticate against Keyfactor Command.
type Credentials struct {
	Username string
	Password string
}

// Query selects certificates by issuer.
type Query = certs.TargetQuery

// Client talks to one Keyfactor Command instance.
type Client struct {
	t *transport.Client
}

// NewClient creates a client for the API rooted at baseURL
// (for example https://keyfactor.example.com/KeyfactorAPI).
func NewClient(baseURL string, opts ...transport.Option) (*Client, error) {
	t, err := transport.New(System, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{t: t}, nil
}

// Authenticate sets the credentials sent with every request.
func (c *Client) Authenticate(creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return errors.NewAuthenticationError(System, "basic", "username and password are required", nil)
	}
	c.t.SetAuth(&transport.BasicAuth{
		Username: creds.Username,
		Password: creds.Password,
		Headers:  map[string]string{constants.RequestedWithHeader: constants.RequestedWithValue},
	})
	return nil
}

// ListMetadataFields returns every metadata field definition.
func (c *Client) ListMetadataFields(ctx context.Context) ([]fields.TargetField, error) {
	var out []fields.TargetField
	if err := c.t.Get(ctx, "MetadataFields", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertMetadataField creates the field when its ID is zero and updates it
// otherwise. It returns the identifier of the stored field.
func (c *Client) UpsertMetadataField(ctx context.Context, field fields.TargetField) (int, error) {
	method := http.MethodPost
	if field.ID != 0 {
		method = http.MethodPut
	}
	var out fields.TargetField
	if err := c.t.Do(ctx, method, "MetadataFields", nil, field, &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		return field.ID, nil
	}
	return out.ID, nil
}

// ListCertificates returns one page of certificates with their metadata.
// Pages are numbered from 1.
func (c *Client) ListCertificates(ctx context.Context, q Query, page, size int) ([]certs.TargetCertificate, error) {
	if page < 1 || size < 1 {
		return nil, errors.NewValidationError("page", page, "page and size must be positive")
	}
	query := url.Values{
		"QueryString":     {q.QueryString()},
		"includeMetadata": {"true"},
		"PageReturned":    {strconv.Itoa(page)},
		"ReturnLimit":     {strconv.Itoa(size)},
	}
	if q.IncludeRevokedAndExpired {
		query.Set("IncludeRevoked", "true")
		query.Set("IncludeExpired", "true")
	}

	var out []certs.TargetCertificate
	if err := c.t.Get(ctx, "Certificates", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type metadataUpdate struct {
	ID       int               `json:"Id"`
	Metadata map[string]string `json:"Metadata"`
}

// UpdateMetadata replaces the given metadata values on a certificate.
func (c *Client) UpdateMetadata(ctx context.Context, id int, metadata map[string]string) error {
	if len(metadata) == 0 {
		return errors.NewValidationError("Metadata", nil, "metadata cannot be empty")
	}
	return c.t.Do(ctx, http.MethodPut, "Certificates/Metadata", nil, metadataUpdate{ID: id, Metadata: metadata}, nil)
}
