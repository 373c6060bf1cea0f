// Package schema builds the canonical field list and pushes it to Keyfactor.
//
// Unify merges Sectigo custom fields (auto-imported, or declared by the
// operator) with operator-declared Manual fields. Push creates or updates the
// matching Keyfactor metadata fields and records their identifiers.
package schema

import (
	"context"

	"github.com/agentstation/metasync/internal/utils/ptr"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
)

// Declaration is an operator-declared field mapping.
type Declaration struct {
	SourceName    string
	TargetName    string
	Description   string
	DataType      fields.DataType
	Hint          string
	Validation    string
	Message       string
	Options       []string
	DefaultValue  string
	Enrollment    int
	DisplayOrder  int
	CaseSensitive bool
}

// Options control how the canonical list is built.
type Options struct {
	// ImportAll derives Custom fields from every Sectigo custom field
	// instead of the declared Custom list.
	ImportAll bool
	// IncludeDisabled keeps disabled Sectigo custom fields when importing.
	IncludeDisabled bool
}

const (
	singleLineValidation = ".*"
	singleLineMessage    = "Please enter valid data."
	enrollmentMandatory  = "ENROLLMENT"
)

var inputDataTypes = map[fields.InputType]fields.DataType{
	fields.TextSingleLine: fields.String,
	fields.TextMultiLine:  fields.BigText,
	fields.EmailInput:     fields.Email,
	fields.Number:         fields.Integer,
	fields.TextOption:     fields.MultipleChoice,
	fields.DateInput:      fields.Date,
}

// DataTypeFor maps a Sectigo input type to a Keyfactor data type.
func DataTypeFor(input fields.InputType) (fields.DataType, bool) {
	dt, ok := inputDataTypes[input]
	return dt, ok
}

// Unify builds the canonical field list: Custom fields first, then Manual
// fields. The two groups are concatenated without deduplication.
func Unify(ctx context.Context, source []fields.SourceField, custom, manual []Declaration, opts Options) []*fields.UnifiedField {
	logger := logging.FromContext(ctx)

	var list []*fields.UnifiedField
	if opts.ImportAll {
		list = FromSourceFields(ctx, source, opts.IncludeDisabled)
		logger.Info().Int("count", len(list)).Msg("Imported custom fields from Sectigo")
	} else {
		list = FromDeclarations(custom, fields.Custom)
		logger.Info().Int("count", len(list)).Msg("Loaded declared custom fields")
	}

	manualFields := FromDeclarations(manual, fields.Manual)
	logger.Debug().Int("count", len(manualFields)).Msg("Loaded manual fields")

	return append(list, manualFields...)
}

// FromSourceFields converts Sectigo custom fields into Custom unified fields.
// Disabled fields are skipped unless includeDisabled is set; fields with an
// unknown input type are skipped with a warning.
func FromSourceFields(ctx context.Context, source []fields.SourceField, includeDisabled bool) []*fields.UnifiedField {
	logger := logging.FromContext(ctx)

	list := make([]*fields.UnifiedField, 0, len(source))
	for _, sf := range source {
		if sf.Disabled() && !includeDisabled {
			logger.Debug().Str("field", sf.Name).Msg("Skipping disabled Sectigo custom field")
			continue
		}
		dataType, ok := DataTypeFor(sf.Input.Type)
		if !ok {
			logger.Warn().Str("field", sf.Name).Str("input_type", string(sf.Input.Type)).
				Msg("Skipping Sectigo custom field with unsupported input type")
			continue
		}

		uf := &fields.UnifiedField{
			SourceName:  sf.Name,
			TargetName:  sf.Name,
			Description: sf.Name,
			DataType:    dataType,
			Hint:        ptr.NonEmpty(string(sf.Input.Type)),
			Origin:      fields.Custom,
		}
		if sf.Input.Type == fields.TextSingleLine {
			uf.Validation = ptr.To(singleLineValidation)
			uf.Message = ptr.To(singleLineMessage)
		}
		if sf.Input.Type == fields.TextOption {
			uf.Options = append([]string(nil), sf.Input.Options...)
		}
		if sf.MandatoryFor(enrollmentMandatory) {
			uf.Enrollment = 1
		}
		list = append(list, uf)
	}
	return list
}

// FromDeclarations converts declared mappings into unified fields tagged origin.
// A missing target name defaults to the source name and a missing
// description to the target name.
func FromDeclarations(decls []Declaration, origin fields.Origin) []*fields.UnifiedField {
	list := make([]*fields.UnifiedField, 0, len(decls))
	for _, d := range decls {
		target := d.TargetName
		if target == "" {
			target = d.SourceName
		}
		description := d.Description
		if description == "" {
			description = target
		}
		dataType := d.DataType
		if dataType == 0 {
			dataType = fields.String
		}
		list = append(list, &fields.UnifiedField{
			SourceName:    d.SourceName,
			TargetName:    target,
			Description:   description,
			DataType:      dataType,
			Hint:          ptr.NonEmpty(d.Hint),
			Validation:    ptr.NonEmpty(d.Validation),
			Message:       ptr.NonEmpty(d.Message),
			Options:       append([]string(nil), d.Options...),
			DefaultValue:  ptr.NonEmpty(d.DefaultValue),
			Enrollment:    d.Enrollment,
			DisplayOrder:  d.DisplayOrder,
			CaseSensitive: d.CaseSensitive,
			Origin:        origin,
		})
	}
	return list
}
