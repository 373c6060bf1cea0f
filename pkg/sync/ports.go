package sync

import (
	"context"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/sanitize"
	"github.com/agentstation/metasync/pkg/schema"
)

// Source is the Sectigo side of a run.
type Source interface {
	ListCustomFields(ctx context.Context) ([]fields.SourceField, error)
	ListCertificates(ctx context.Context, q certs.SourceQuery, position, size int) ([]certs.SourceCertificate, error)
	CertificateDetail(ctx context.Context, sslID int) (*certs.SourceDetail, error)
	UpdateCustomFields(ctx context.Context, sslID int, values []certs.CustomFieldValue) error
}

// Target is the Keyfactor side of a run.
type Target interface {
	schema.Target
	ListMetadataFields(ctx context.Context) ([]fields.TargetField, error)
	ListCertificates(ctx context.Context, q certs.TargetQuery, page, size int) ([]certs.TargetCertificate, error)
	UpdateMetadata(ctx context.Context, id int, metadata map[string]string) error
}

// TableStore persists the banned-character table between runs.
type TableStore interface {
	Load(ctx context.Context) (*sanitize.Table, error)
	Save(ctx context.Context, t *sanitize.Table) error
}
