package sync

import (
	"context"
	"sort"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
	"github.com/agentstation/metasync/pkg/matcher"
	"github.com/agentstation/metasync/pkg/transcode"
)

// Field and record stages reported in recoverable errors.
const (
	stageResolve   = "resolve"
	stageTranscode = "transcode"
	stageDetail    = "detail"
	stageCommit    = "commit"
)

// reconciler processes single Keyfactor certificates.
type reconciler struct {
	source     Source
	target     Target
	direction  Direction
	fields     []*fields.UnifiedField
	accessors  *certs.Registry
	transcoder *transcode.Transcoder
}

func (r *reconciler) reconcile(ctx context.Context, cert *certs.TargetCertificate, index *matcher.Index[certs.SourceCertificate]) *Outcome {
	ctx = logging.WithSerial(ctx, cert.SerialNumber)
	logger := logging.FromContext(ctx)
	out := &Outcome{Serial: cert.SerialNumber, TargetID: cert.ID}

	candidate, ok := index.Lookup(cert.SerialNumber)
	if !ok {
		logger.Debug().Msg("No matching Sectigo certificate")
		out.classify()
		return out
	}
	out.Matched = true
	out.SourceID = candidate.SslID

	detail, err := r.source.CertificateDetail(ctx, candidate.SslID)
	if err != nil {
		logger.Warn().Err(err).Int("ssl_id", candidate.SslID).Msg("Failed to fetch Sectigo certificate detail")
		out.recordError(stageDetail, err)
		out.classify()
		return out
	}

	switch r.direction {
	case SourceToTarget:
		r.toTarget(ctx, out, cert, detail)
	case TargetToSource:
		r.toSource(ctx, out, cert, detail)
	}

	out.classify()
	logger.Debug().Str("status", string(out.Status)).Strs("written", out.Written).Msg("Reconciled certificate")
	return out
}

// toTarget writes Manual and Custom values read from the Sectigo detail into
// Keyfactor metadata.
func (r *reconciler) toTarget(ctx context.Context, out *Outcome, cert *certs.TargetCertificate, detail *certs.SourceDetail) {
	logger := logging.FromContext(ctx)
	out.NoCustomFields = len(detail.CustomFields) == 0

	metadata := make(map[string]string)
	for _, uf := range r.fields {
		value, ok, err := r.sourceValue(uf, detail)
		if err != nil {
			logger.Warn().Err(err).Str("field", uf.TargetName).Msg("Failed to resolve field value")
			out.fail(errors.NewFieldError(uf.TargetName, stageResolve, err))
			continue
		}
		if !ok {
			continue
		}
		converted, err := r.transcoder.ToTarget(uf, value)
		if err != nil {
			logger.Warn().Err(err).Str("field", uf.TargetName).Msg("Failed to convert field value")
			out.fail(errors.NewFieldError(uf.TargetName, stageTranscode, err))
			continue
		}
		metadata[uf.TargetName] = converted
	}
	if len(metadata) == 0 {
		return
	}

	if err := r.target.UpdateMetadata(ctx, cert.ID, metadata); err != nil {
		logger.Warn().Err(err).Int("id", cert.ID).Msg("Failed to update Keyfactor metadata")
		out.recordError(stageCommit, err)
		return
	}
	out.Written = sortedKeys(metadata)
}

// sourceValue reads a field from the Sectigo detail. Manual fields always
// yield a value; Custom fields only when the certificate carries them.
func (r *reconciler) sourceValue(uf *fields.UnifiedField, detail *certs.SourceDetail) (string, bool, error) {
	if uf.Origin == fields.Manual {
		get, err := r.accessors.Resolve(uf.SourceName)
		if err != nil {
			return "", false, err
		}
		return get(detail), true, nil
	}
	value, ok := detail.CustomField(uf.SourceName)
	return value, ok, nil
}

// toSource writes Keyfactor metadata values into Sectigo custom fields.
func (r *reconciler) toSource(ctx context.Context, out *Outcome, cert *certs.TargetCertificate, detail *certs.SourceDetail) {
	logger := logging.FromContext(ctx)

	var values []certs.CustomFieldValue
	for _, uf := range r.fields {
		value, ok := cert.MetadataValue(uf.TargetName)
		if !ok {
			continue
		}
		converted, err := r.transcoder.ToSource(uf, value)
		if err != nil {
			logger.Warn().Err(err).Str("field", uf.TargetName).
				Str("expected", r.transcoder.Pattern()).
				Msg("Invalid date value; field not written")
			out.fail(errors.NewFieldError(uf.TargetName, stageTranscode, err))
			continue
		}
		values = append(values, certs.CustomFieldValue{Name: uf.SourceName, Value: converted})
	}
	if len(values) == 0 {
		out.NoCustomFields = true
		return
	}

	if err := r.source.UpdateCustomFields(ctx, detail.SslID, values); err != nil {
		logger.Warn().Err(err).Int("ssl_id", detail.SslID).Msg("Failed to update Sectigo custom fields")
		out.recordError(stageCommit, err)
		return
	}
	for _, v := range values {
		out.Written = append(out.Written, v.Name)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
