// Package certs defines the certificate records exchanged with Keyfactor
// and Sectigo, and the property accessors used to read Manual fields from
// Sectigo certificate details.
package certs

import (
	"fmt"
	"strings"
)

// SourceCertificate is a Sectigo SSL certificate as listed by api/ssl/v1.
type SourceCertificate struct {
	SslID                   int      `json:"sslId"`
	CommonName              string   `json:"commonName"`
	SubjectAlternativeNames []string `json:"subjectAlternativeNames,omitempty"`
	SerialNumber            string   `json:"serialNumber"`
}

// CertType is the Sectigo certificate profile.
type CertType struct {
	ID                  int      `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Terms               []int    `json:"terms,omitempty"`
	UseSecondaryOrgName bool     `json:"useSecondaryOrgName"`
	KeyTypes            KeyTypes `json:"keyTypes"`
}

// KeyTypes lists the key sizes a profile allows per algorithm.
type KeyTypes struct {
	RSA []string `json:"RSA,omitempty"`
	EC  []string `json:"EC,omitempty"`
}

// CertificateDetails holds issued certificate attributes.
type CertificateDetails struct {
	Issuer    string `json:"issuer"`
	Subject   string `json:"subject"`
	Sha1Hash  string `json:"sha1Hash"`
	Md5Hash   string `json:"md5Hash"`
	NotBefore string `json:"notBefore"`
	NotAfter  string `json:"notAfter"`
}

// StateDetails carries the state of an automation feature.
type StateDetails struct {
	State string `json:"state"`
}

// CustomFieldValue is one Sectigo custom field value on a certificate.
type CustomFieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SourceDetail is a Sectigo SSL certificate as returned by api/ssl/v1/{sslId}.
type SourceDetail struct {
	CommonName              string              `json:"commonName"`
	SslID                   int                 `json:"sslId"`
	ID                      int                 `json:"id"`
	OrgID                   int                 `json:"orgId"`
	Status                  string              `json:"status"`
	OrderNumber             int64               `json:"orderNumber"`
	BackendCertID           string              `json:"backendCertId"`
	Vendor                  string              `json:"vendor"`
	CertType                CertType            `json:"certType"`
	SubType                 string              `json:"subType"`
	ValidationType          string              `json:"validationType"`
	Term                    int                 `json:"term"`
	Owner                   string              `json:"owner"`
	OwnerID                 int                 `json:"ownerId"`
	Requester               string              `json:"requester"`
	RequestedVia            string              `json:"requestedVia"`
	Comments                string              `json:"comments"`
	Requested               string              `json:"requested"`
	Expires                 string              `json:"expires"`
	Renewed                 bool                `json:"renewed"`
	SerialNumber            string              `json:"serialNumber"`
	KeyAlgorithm            string              `json:"keyAlgorithm"`
	KeySize                 int                 `json:"keySize"`
	KeyType                 string              `json:"keyType"`
	SubjectAlternativeNames []string            `json:"subjectAlternativeNames,omitempty"`
	CustomFields            []CustomFieldValue  `json:"customFields,omitempty"`
	CertificateDetails      *CertificateDetails `json:"certificateDetails,omitempty"`
	AutoInstallDetails      *StateDetails       `json:"autoInstallDetails,omitempty"`
	AutoRenewDetails        *StateDetails       `json:"autoRenewDetails,omitempty"`
	SuspendNotifications    bool                `json:"suspendNotifications"`
}

// CustomField returns the value of the named custom field. Names compare
// case-insensitively.
func (d *SourceDetail) CustomField(name string) (string, bool) {
	for _, cf := range d.CustomFields {
		if strings.EqualFold(cf.Name, name) {
			return cf.Value, true
		}
	}
	return "", false
}

// TargetCertificate is a Keyfactor certificate as returned by /Certificates.
type TargetCertificate struct {
	ID                       int               `json:"Id"`
	Thumbprint               string            `json:"Thumbprint"`
	SerialNumber             string            `json:"SerialNumber"`
	IssuedDN                 string            `json:"IssuedDN"`
	IssuedCN                 string            `json:"IssuedCN"`
	IssuerDN                 string            `json:"IssuerDN"`
	NotBefore                string            `json:"NotBefore"`
	NotAfter                 string            `json:"NotAfter"`
	CertState                int               `json:"CertState"`
	CertStateString          string            `json:"CertStateString"`
	CertificateAuthorityName string            `json:"CertificateAuthorityName"`
	TemplateName             string            `json:"TemplateName"`
	Metadata                 map[string]string `json:"Metadata"`
}

// MetadataValue returns the named metadata value. Names compare
// case-insensitively; when several keys differ only by case the
// lexically smallest key wins so the result is stable.
func (c *TargetCertificate) MetadataValue(name string) (string, bool) {
	if v, ok := c.Metadata[name]; ok {
		return v, true
	}
	var (
		bestKey string
		value   string
		found   bool
	)
	for k, v := range c.Metadata {
		if strings.EqualFold(k, name) && (!found || k < bestKey) {
			bestKey, value, found = k, v, true
		}
	}
	return value, found
}

// SourceQuery selects Sectigo certificates of one SSL profile.
type SourceQuery struct {
	SSLTypeID int
	// IssuedOnly restricts the listing to certificates in Issued status.
	IssuedOnly bool
}

// TargetQuery selects Keyfactor certificates by issuer.
type TargetQuery struct {
	// IssuerDNContains is matched against the issuer DN.
	IssuerDNContains string
	// IncludeRevokedAndExpired also returns revoked and expired certificates.
	IncludeRevokedAndExpired bool
}

// QueryString renders the Keyfactor query language filter.
func (q TargetQuery) QueryString() string {
	return fmt.Sprintf("IssuerDN -contains %q", q.IssuerDNContains)
}
