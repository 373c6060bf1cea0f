package sync

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
	"github.com/agentstation/metasync/pkg/matcher"
	"github.com/agentstation/metasync/pkg/sanitize"
	"github.com/agentstation/metasync/pkg/schema"
	"github.com/agentstation/metasync/pkg/transcode"
)

// Orchestrator drives sync runs between one Sectigo and one Keyfactor instance.
type Orchestrator struct {
	source     Source
	target     Target
	store      TableStore
	opts       *Options
	transcoder *transcode.Transcoder
}

// New creates an orchestrator. Invalid options are a fatal init error.
func New(source Source, target Target, store TableStore, opts ...Option) (*Orchestrator, error) {
	o := Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, errors.NewFatalError(errors.StageInit, err)
	}
	tc, err := transcode.New(o.DateFormat)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageConfig, err)
	}
	return &Orchestrator{
		source:     source,
		target:     target,
		store:      store,
		opts:       o,
		transcoder: tc,
	}, nil
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options {
	return *o.opts
}

// Plan is the canonical schema of a run before anything is written.
type Plan struct {
	Fields   []*fields.UnifiedField
	Existing []fields.TargetField
	Table    *sanitize.Table
	Report   sanitize.Report
}

// Blocked reports whether an unresolved banned character prevents the push.
func (p *Plan) Blocked() bool {
	return p.Report.Blocked()
}

// unresolvedError describes the characters that block the run.
func (p *Plan) unresolvedError() error {
	chars := make([]string, len(p.Report.Unresolved))
	for i, e := range p.Report.Unresolved {
		chars[i] = e.Character
	}
	return &errors.UnresolvedCharactersError{Characters: chars, Fields: p.Report.AffectedNames()}
}

// Prepare fetches both schemas, unifies them, loads the banned-character
// table and classifies every target name. Target names are sanitized in the
// returned plan when no character is unresolved. Nothing is written.
func (o *Orchestrator) Prepare(ctx context.Context) (*Plan, error) {
	logger := logging.FromContext(ctx)

	sourceFields, err := o.source.ListCustomFields(ctx)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageSnapshot, err)
	}
	existing, err := o.target.ListMetadataFields(ctx)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageSnapshot, err)
	}
	logger.Debug().
		Int("sectigo_fields", len(sourceFields)).
		Int("keyfactor_fields", len(existing)).
		Msg("Fetched field schemas")

	list := schema.Unify(ctx, sourceFields, o.opts.CustomDeclarations, o.opts.ManualDeclarations, o.opts.Schema)
	if !o.opts.Schema.ImportAll {
		warnUndeclared(ctx, sourceFields, fields.Select(list, fields.Custom))
	}

	table, err := o.store.Load(ctx)
	if err != nil {
		return nil, errors.NewFatalError(errors.StagePersist, err)
	}

	names := make([]string, len(list))
	for i, uf := range list {
		names[i] = uf.TargetName
	}
	report := sanitize.Scan(names, table)
	for _, line := range report.Details() {
		logger.Warn().Msg(line)
	}

	plan := &Plan{Fields: list, Existing: existing, Table: table, Report: report}
	if !plan.Blocked() {
		for _, uf := range list {
			uf.TargetName, _ = sanitize.Sanitize(uf.TargetName, table)
		}
	}
	return plan, nil
}

// Run performs one batch pass. The returned error is non-nil only for fatal
// conditions; recoverable failures are folded into the result, which is
// returned in both cases.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := newResult(uuid.NewString(), o.opts.Direction)

	ctx = logging.WithRunID(ctx, result.RunID)
	ctx = logging.WithDirection(ctx, o.opts.Direction.String())
	logger := logging.FromContext(ctx)
	logger.Info().
		Str("started_at", result.StartedAt.Format("2006-01-02T15:04:05Z")).
		Msgf("[START] metasync run (%s)", o.opts.Direction.Describe())

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	err := o.run(ctx, result)
	result.finish(err)
	if err != nil {
		logger.Error().Err(err).Str("state", string(result.State)).Msg("Run aborted")
	}
	logger.Info().
		Dur("duration", result.Duration).
		Msgf("[END] metasync run: %s", result.Summary())
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, result *Result) error {
	logger := logging.FromContext(ctx)

	result.State = StateSchemaUnification
	plan, err := o.Prepare(ctx)
	if err != nil {
		return err
	}
	result.Fields = len(plan.Fields)
	for _, e := range plan.Report.Added {
		result.Added = append(result.Added, e.Character)
	}

	// The table is persisted before anything else so that newly discovered
	// characters are recorded even when they block the run.
	result.State = StateSanitization
	if err := o.store.Save(ctx, plan.Table); err != nil {
		return errors.NewFatalError(errors.StagePersist, err)
	}
	if plan.Blocked() {
		return errors.NewFatalError(errors.StageSanitize, plan.unresolvedError())
	}

	result.State = StateSchemaPush
	result.Schema = schema.Push(ctx, o.target, plan.Fields, plan.Existing)

	result.State = StatePaginate
	candidates, err := o.candidates(ctx)
	if err != nil {
		return errors.NewFatalError(errors.StageSnapshot, err)
	}
	idx := matcher.NewIndex(candidates, func(c certs.SourceCertificate) string { return c.SerialNumber })
	result.Candidates = len(candidates)
	result.Duplicates = idx.Duplicates()
	for _, d := range result.Duplicates {
		logger.Warn().Str("serial", d.Key).Int("count", d.Count).
			Msg("Serial number shared by several Sectigo certificates; the first one is used")
	}

	selected := fields.Select(plan.Fields, o.opts.Direction.Origins()...)
	result.Written = len(selected)
	r := &reconciler{
		source:     o.source,
		target:     o.target,
		direction:  o.opts.Direction,
		fields:     selected,
		accessors:  o.opts.accessors(),
		transcoder: o.transcoder,
	}

	query := certs.TargetQuery{
		IssuerDNContains:         o.opts.IssuerDNLookupTerm,
		IncludeRevokedAndExpired: o.opts.IncludeRevokedAndExpired,
	}
	fetch := func(ctx context.Context, index int) ([]certs.TargetCertificate, error) {
		return o.target.ListCertificates(ctx, query, index+1, o.opts.TargetPageSize)
	}
	pages, err := Paginate(ctx, o.opts.TargetPageSize, fetch, func(page []certs.TargetCertificate) error {
		result.State = StatePerRecordReconcile
		for i := range page {
			result.Add(r.reconcile(ctx, &page[i], idx))
		}
		result.Pages++
		logger.Info().Int("page", result.Pages).Int("records", len(page)).
			Int("processed", result.Processed).Msg("Processed Keyfactor page")
		result.State = StatePaginate
		return nil
	})
	result.Pages = pages
	if err != nil {
		return errors.NewFatalError(errors.StageSnapshot, err)
	}

	result.State = StateSummarize
	return nil
}

// candidates collects the Sectigo certificates of every configured profile.
func (o *Orchestrator) candidates(ctx context.Context) ([]certs.SourceCertificate, error) {
	logger := logging.FromContext(ctx)

	var all []certs.SourceCertificate
	for _, id := range o.opts.SSLTypeIDs {
		q := certs.SourceQuery{SSLTypeID: id, IssuedOnly: !o.opts.IncludeRevokedAndExpired}
		size := o.opts.SourcePageSize
		list, err := Collect(ctx, size, func(ctx context.Context, index int) ([]certs.SourceCertificate, error) {
			return o.source.ListCertificates(ctx, q, index*size, size)
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Int("ssl_type_id", id).Int("count", len(list)).Msg("Fetched Sectigo certificates")
		all = append(all, list...)
	}
	return all, nil
}

// warnUndeclared logs declared Custom fields that Sectigo does not define.
func warnUndeclared(ctx context.Context, source []fields.SourceField, custom []*fields.UnifiedField) {
	fold := cases.Fold()
	known := make(map[string]struct{}, len(source))
	for _, sf := range source {
		known[fold.String(sf.Name)] = struct{}{}
	}
	for _, uf := range custom {
		if _, ok := known[fold.String(uf.SourceName)]; !ok {
			logging.FromContext(ctx).Warn().Str("field", uf.SourceName).
				Msg("Declared custom field is not defined in Sectigo")
		}
	}
}
