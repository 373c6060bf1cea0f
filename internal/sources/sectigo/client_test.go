package sectigo

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metasync/internal/sources/fakeapi"
	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
)

var testCreds = Credentials{Login: "alice", Password: "secret", CustomerURI: "acme"}

func newTestClient(t *testing.T) (*Client, *fakeapi.Sectigo) {
	t.Helper()
	fake := fakeapi.NewSectigo(testCreds.Login, testCreds.Password, testCreds.CustomerURI)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	require.NoError(t, c.Authenticate(testCreds))
	return c, fake
}

func TestAuthenticate(t *testing.T) {
	c, err := NewClient("https://cert-manager.com/")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Authenticate(Credentials{Login: "alice", Password: "x"}), errors.ErrCredentialsInvalid)

	_, err = c.ListCustomFields(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestWrongCustomerURI(t *testing.T) {
	fake := fakeapi.NewSectigo("alice", "secret", "acme")
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Authenticate(Credentials{Login: "alice", Password: "secret", CustomerURI: "other"}))

	_, err = c.ListCustomFields(context.Background())
	assert.ErrorIs(t, err, errors.ErrCredentialsInvalid)
}

func TestListCustomFields(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddCustomField(fields.SourceField{
		ID:    3,
		Name:  "Department",
		State: "ACTIVE",
		Input: fields.SourceInput{Type: fields.TextSingleLine},
	})

	list, err := c.ListCustomFields(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Department", list[0].Name)
	assert.Equal(t, fields.TextSingleLine, list[0].Input.Type)
}

func TestListCertificates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		fake.AddCertificate(certs.SourceDetail{SslID: i, SerialNumber: "0A", Status: "Issued", CertType: certs.CertType{ID: 10}})
	}
	fake.AddCertificate(certs.SourceDetail{SslID: 5, Status: "Revoked", CertType: certs.CertType{ID: 10}})
	fake.AddCertificate(certs.SourceDetail{SslID: 6, Status: "Issued", CertType: certs.CertType{ID: 11}})

	q := Query{SSLTypeID: 10, IssuedOnly: true}
	first, err := c.ListCertificates(ctx, q, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 1, first[0].SslID)

	rest, err := c.ListCertificates(ctx, q, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, 4, rest[0].SslID)

	all, err := c.ListCertificates(ctx, Query{SSLTypeID: 10}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = c.ListCertificates(ctx, q, -1, 3)
	assert.True(t, errors.IsValidationError(err))
}

func TestCertificateDetailAndUpdate(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	fake.AddCertificate(certs.SourceDetail{
		SslID:              42,
		CommonName:         "www.example.com",
		CertificateDetails: &certs.CertificateDetails{NotBefore: "2024-03-04"},
		CustomFields:       []certs.CustomFieldValue{{Name: "Department", Value: "ops"}},
	})

	d, err := c.CertificateDetail(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", d.CommonName)
	require.NotNil(t, d.CertificateDetails)
	assert.Equal(t, "2024-03-04", d.CertificateDetails.NotBefore)

	err = c.UpdateCustomFields(ctx, 42, []certs.CustomFieldValue{
		{Name: "department", Value: "security"},
		{Name: "Owner", Value: "bob"},
	})
	require.NoError(t, err)

	stored, ok := fake.Certificate(42)
	require.True(t, ok)
	v, _ := stored.CustomField("Department")
	assert.Equal(t, "security", v)
	v, _ = stored.CustomField("owner")
	assert.Equal(t, "bob", v)

	_, err = c.CertificateDetail(ctx, 7)
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, errors.IsValidationError(c.UpdateCustomFields(ctx, 42, nil)))

	fake.FailDetail[42] = true
	_, err = c.CertificateDetail(ctx, 42)
	assert.True(t, errors.IsUnavailable(err))
}
