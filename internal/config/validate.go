package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/schema"
	"github.com/agentstation/metasync/pkg/sync"
	"github.com/agentstation/metasync/pkg/transcode"
)

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	s := c.Settings
	for key, raw := range map[string]string{"sectigoAPIUrl": s.SectigoAPIURL, "keyfactorAPIUrl": s.KeyfactorAPIURL} {
		if err := validateURL(key, raw); err != nil {
			return err
		}
	}
	required := []struct{ key, value string }{
		{"sectigoLogin", s.SectigoLogin},
		{"sectigoPassword", s.SectigoPassword},
		{"sectigoCustomerUri", s.SectigoCustomerURI},
		{"keyfactorLogin", s.KeyfactorLogin},
		{"keyfactorPassword", s.KeyfactorPassword},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewValidationError(r.key, "", "is required")
		}
	}
	if len(s.SSLTypeIDs) == 0 {
		return errors.NewValidationError("sslTypeIds", s.SSLTypeIDs, "at least one Sectigo SSL profile ID is required")
	}
	if s.SectigoPageSize < 1 {
		return errors.NewValidationError("sectigoPageSize", s.SectigoPageSize, "must be positive")
	}
	if s.KeyfactorPageSize < 1 {
		return errors.NewValidationError("keyfactorPageSize", s.KeyfactorPageSize, "must be positive")
	}
	if _, err := transcode.New(s.KeyfactorDateFormat); err != nil {
		return err
	}

	if _, err := declarations("ManualFields", c.Fields.ManualFields); err != nil {
		return err
	}
	if _, err := declarations("CustomFields", c.Fields.CustomFields); err != nil {
		return err
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewValidationError(key, raw, "must be an absolute http(s) URL")
	}
	return nil
}

// Declarations converts the declared Custom and Manual fields.
func (c *Config) Declarations() (custom, manual []schema.Declaration, err error) {
	if custom, err = declarations("CustomFields", c.Fields.CustomFields); err != nil {
		return nil, nil, err
	}
	if manual, err = declarations("ManualFields", c.Fields.ManualFields); err != nil {
		return nil, nil, err
	}
	return custom, manual, nil
}

func declarations(section string, list []FieldDeclaration) ([]schema.Declaration, error) {
	out := make([]schema.Declaration, 0, len(list))
	for i, d := range list {
		if strings.TrimSpace(d.SectigoFieldName) == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("%s[%d].sectigoFieldName", section, i), "", "is required")
		}
		dt, err := fields.ParseDataType(d.KeyfactorDataType)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("%s[%d].keyfactorDataType", section, i), d.KeyfactorDataType, err.Error())
		}
		out = append(out, schema.Declaration{
			SourceName:    d.SectigoFieldName,
			TargetName:    d.KeyfactorMetadataFieldName,
			Description:   d.KeyfactorDescription,
			DataType:      dt,
			Hint:          d.KeyfactorHint,
			Validation:    d.KeyfactorValidation,
			Message:       d.KeyfactorMessage,
			Options:       d.KeyfactorOptions,
			DefaultValue:  d.KeyfactorDefaultValue,
			Enrollment:    d.KeyfactorEnrollment,
			DisplayOrder:  d.KeyfactorDisplayOrder,
			CaseSensitive: d.KeyfactorCaseSensitive,
		})
	}
	return out, nil
}

// SyncOptions returns the run options described by the configuration.
func (c *Config) SyncOptions(direction sync.Direction) ([]sync.Option, error) {
	custom, manual, err := c.Declarations()
	if err != nil {
		return nil, err
	}
	s := c.Settings
	return []sync.Option{
		sync.WithDirection(direction),
		sync.WithIssuerDNLookupTerm(s.IssuerDNLookupTerm),
		sync.WithSSLTypeIDs(s.SSLTypeIDs...),
		sync.WithRevokedAndExpired(s.SyncRevokedAndExpiredCerts),
		sync.WithPageSizes(s.KeyfactorPageSize, s.SectigoPageSize),
		sync.WithDateFormat(s.KeyfactorDateFormat),
		sync.WithDeclarations(custom, manual),
		sync.WithSchemaOptions(schema.Options{
			ImportAll:       s.ImportAllCustomFields,
			IncludeDisabled: s.EnableDisabledFieldSync,
		}),
	}, nil
}

// Redacted returns a copy of the settings with credentials masked.
func (s Settings) Redacted() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "****"
	}
	s.SectigoPassword = mask(s.SectigoPassword)
	s.KeyfactorPassword = mask(s.KeyfactorPassword)
	return s
}
