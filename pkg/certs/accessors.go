package certs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Accessor reads one property of a Sectigo certificate detail as text.
// Properties below a missing nested object read as the empty string.
type Accessor func(d *SourceDetail) string

// Registry maps dotted property paths to accessors. Path segments compare
// case-insensitively.
type Registry struct {
	byPath map[string]Accessor
	paths  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]Accessor)}
}

// Register adds an accessor under path and any aliases. It panics on a
// duplicate path since registries are built once at init.
func (r *Registry) Register(path string, get Accessor, aliases ...string) *Registry {
	r.paths = append(r.paths, path)
	for _, p := range append([]string{path}, aliases...) {
		key := normalizePath(p)
		if _, dup := r.byPath[key]; dup {
			panic(fmt.Sprintf("certs: duplicate accessor path %q", p))
		}
		r.byPath[key] = get
	}
	return r
}

// Resolve returns the accessor for path.
func (r *Registry) Resolve(path string) (Accessor, error) {
	get, ok := r.byPath[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("unknown certificate property %q", path)
	}
	return get, nil
}

// Paths returns the canonical paths, sorted.
func (r *Registry) Paths() []string {
	out := append([]string(nil), r.paths...)
	sort.Strings(out)
	return out
}

func normalizePath(path string) string {
	segments := strings.Split(path, ".")
	for i, s := range segments {
		segments[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join(segments, ".")
}

// DetailProperties is the registry of readable Sectigo certificate properties.
var DetailProperties = NewRegistry().
	Register("commonName", func(d *SourceDetail) string { return d.CommonName }).
	Register("sslId", func(d *SourceDetail) string { return strconv.Itoa(d.SslID) }).
	Register("id", func(d *SourceDetail) string { return strconv.Itoa(d.ID) }).
	Register("orgId", func(d *SourceDetail) string { return strconv.Itoa(d.OrgID) }).
	Register("status", func(d *SourceDetail) string { return d.Status }).
	Register("orderNumber", func(d *SourceDetail) string { return strconv.FormatInt(d.OrderNumber, 10) }).
	Register("backendCertId", func(d *SourceDetail) string { return d.BackendCertID }).
	Register("vendor", func(d *SourceDetail) string { return d.Vendor }).
	Register("certType.id", func(d *SourceDetail) string { return strconv.Itoa(d.CertType.ID) }).
	Register("certType.name", func(d *SourceDetail) string { return d.CertType.Name }, "profile").
	Register("certType.description", func(d *SourceDetail) string { return d.CertType.Description }).
	Register("subType", func(d *SourceDetail) string { return d.SubType }).
	Register("validationType", func(d *SourceDetail) string { return d.ValidationType }).
	Register("term", func(d *SourceDetail) string { return strconv.Itoa(d.Term) }).
	Register("owner", func(d *SourceDetail) string { return d.Owner }).
	Register("ownerId", func(d *SourceDetail) string { return strconv.Itoa(d.OwnerID) }).
	Register("requester", func(d *SourceDetail) string { return d.Requester }).
	Register("requestedVia", func(d *SourceDetail) string { return d.RequestedVia }).
	Register("comments", func(d *SourceDetail) string { return d.Comments }).
	Register("requested", func(d *SourceDetail) string { return d.Requested }).
	Register("expires", func(d *SourceDetail) string { return d.Expires }).
	Register("renewed", func(d *SourceDetail) string { return strconv.FormatBool(d.Renewed) }).
	Register("serialNumber", func(d *SourceDetail) string { return d.SerialNumber }).
	Register("keyAlgorithm", func(d *SourceDetail) string { return d.KeyAlgorithm }).
	Register("keySize", func(d *SourceDetail) string { return strconv.Itoa(d.KeySize) }).
	Register("keyType", func(d *SourceDetail) string { return d.KeyType }).
	Register("subjectAlternativeNames", func(d *SourceDetail) string {
		return strings.Join(d.SubjectAlternativeNames, ",")
	}, "sans").
	Register("certificateDetails.issuer", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.Issuer
	}, "issuer").
	Register("certificateDetails.subject", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.Subject
	}, "subject").
	Register("certificateDetails.sha1Hash", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.Sha1Hash
	}, "thumbprint").
	Register("certificateDetails.md5Hash", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.Md5Hash
	}).
	Register("certificateDetails.notBefore", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.NotBefore
	}, "notBefore").
	Register("certificateDetails.notAfter", func(d *SourceDetail) string {
		if d.CertificateDetails == nil {
			return ""
		}
		return d.CertificateDetails.NotAfter
	}, "notAfter").
	Register("autoInstallDetails.state", func(d *SourceDetail) string {
		if d.AutoInstallDetails == nil {
			return ""
		}
		return d.AutoInstallDetails.State
	}).
	Register("autoRenewDetails.state", func(d *SourceDetail) string {
		if d.AutoRenewDetails == nil {
			return ""
		}
		return d.AutoRenewDetails.State
	}).
	Register("suspendNotifications", func(d *SourceDetail) string { return strconv.FormatBool(d.SuspendNotifications) })
