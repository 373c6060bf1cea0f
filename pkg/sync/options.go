// Package sync reconciles certificate metadata between Sectigo and Keyfactor.
//
// A run unifies both field schemas, sanitizes target field names against the
// banned-character table, pushes the schema to Keyfactor, then pages through
// Keyfactor certificates, pairs each with its Sectigo counterpart by serial
// number, and writes field values in the selected direction.
package sync

import (
	"time"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/schema"
	"github.com/agentstation/metasync/pkg/transcode"
)

// Options controls one run.
type Options struct {
	Direction Direction     // Which system is written
	Timeout   time.Duration // Deadline for the whole run; zero means none

	// Certificate selection
	IssuerDNLookupTerm       string // Keyfactor issuer DN filter
	SSLTypeIDs               []int  // Sectigo profiles searched for counterparts
	IncludeRevokedAndExpired bool   // Also sync revoked and expired certificates

	// Paging
	TargetPageSize int // Keyfactor certificates per page
	SourcePageSize int // Sectigo certificates per page

	// Schema
	Schema             schema.Options
	CustomDeclarations []schema.Declaration
	ManualDeclarations []schema.Declaration

	// DateFormat is the Keyfactor date pattern, for example "M/d/yyyy h:mm:ss tt".
	DateFormat string

	// Accessors resolves Manual field paths. Defaults to certs.DetailProperties.
	Accessors *certs.Registry
}

// Option is a function that configures Options.
type Option func(*Options)

// Defaults returns the default options.
func Defaults() *Options {
	return &Options{
		IssuerDNLookupTerm: constants.DefaultIssuerDNLookupTerm,
		TargetPageSize:     constants.DefaultKeyfactorPageSize,
		SourcePageSize:     constants.DefaultSectigoPageSize,
		DateFormat:         constants.DefaultKeyfactorDateFormat,
		Accessors:          certs.DetailProperties,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks that the options describe a runnable sync.
func (o *Options) Validate() error {
	if !o.Direction.Valid() {
		return errors.NewValidationError("Direction", o.Direction, "must be one of sctokf, kftosc")
	}
	if o.Timeout < 0 {
		return errors.NewValidationError("Timeout", o.Timeout, "timeout must be non-negative")
	}
	if len(o.SSLTypeIDs) == 0 {
		return errors.NewValidationError("SSLTypeIDs", o.SSLTypeIDs, "at least one Sectigo SSL profile is required")
	}
	if o.TargetPageSize < 1 {
		return errors.NewValidationError("TargetPageSize", o.TargetPageSize, "page size must be positive")
	}
	if o.SourcePageSize < 1 {
		return errors.NewValidationError("SourcePageSize", o.SourcePageSize, "page size must be positive")
	}
	_, err := transcode.New(o.DateFormat)
	return err
}

func (o *Options) accessors() *certs.Registry {
	if o.Accessors == nil {
		return certs.DetailProperties
	}
	return o.Accessors
}

// WithDirection sets the sync direction.
func WithDirection(d Direction) Option {
	return func(o *Options) {
		o.Direction = d
	}
}

// WithTimeout sets the run deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithIssuerDNLookupTerm sets the Keyfactor issuer DN filter.
func WithIssuerDNLookupTerm(term string) Option {
	return func(o *Options) {
		o.IssuerDNLookupTerm = term
	}
}

// WithSSLTypeIDs sets the Sectigo profiles searched for counterparts.
func WithSSLTypeIDs(ids ...int) Option {
	return func(o *Options) {
		o.SSLTypeIDs = ids
	}
}

// WithRevokedAndExpired includes revoked and expired certificates.
func WithRevokedAndExpired(include bool) Option {
	return func(o *Options) {
		o.IncludeRevokedAndExpired = include
	}
}

// WithPageSizes sets the Keyfactor and Sectigo page sizes.
func WithPageSizes(target, source int) Option {
	return func(o *Options) {
		o.TargetPageSize = target
		o.SourcePageSize = source
	}
}

// WithSchemaOptions sets how the canonical field list is built.
func WithSchemaOptions(opts schema.Options) Option {
	return func(o *Options) {
		o.Schema = opts
	}
}

// WithDeclarations sets the operator-declared Custom and Manual fields.
func WithDeclarations(custom, manual []schema.Declaration) Option {
	return func(o *Options) {
		o.CustomDeclarations = custom
		o.ManualDeclarations = manual
	}
}

// WithDateFormat sets the Keyfactor date pattern.
func WithDateFormat(pattern string) Option {
	return func(o *Options) {
		o.DateFormat = pattern
	}
}

// WithAccessors replaces the Manual field accessor registry.
func WithAccessors(r *certs.Registry) Option {
	return func(o *Options) {
		o.Accessors = r
	}
}
