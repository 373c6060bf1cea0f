package fields

import (
	"slices"
	"strings"
)

// InputType is the Sectigo custom field input type.
type InputType string

// Sectigo custom field input types.
const (
	TextSingleLine InputType = "TEXT_SINGLE_LINE"
	TextMultiLine  InputType = "TEXT_MULTI_LINE"
	EmailInput     InputType = "EMAIL"
	Number         InputType = "NUMBER"
	TextOption     InputType = "TEXT_OPTION"
	DateInput      InputType = "DATE"
)

// SourceInput describes how a Sectigo custom field is entered.
type SourceInput struct {
	Type    InputType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// SourceField is a Sectigo custom field definition (api/customField/v2).
type SourceField struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Mandatories []string    `json:"mandatories,omitempty"`
	CertType    string      `json:"certType"`
	State       string      `json:"state"`
	Input       SourceInput `json:"input"`
}

// Disabled reports whether the field is switched off in Sectigo.
func (f SourceField) Disabled() bool {
	return strings.EqualFold(f.State, "disabled")
}

// MandatoryFor reports whether the field is mandatory for the given access method.
func (f SourceField) MandatoryFor(method string) bool {
	return slices.ContainsFunc(f.Mandatories, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// TargetField is a Keyfactor metadata field definition (/MetadataFields).
type TargetField struct {
	ID            int     `json:"Id"`
	Name          string  `json:"Name"`
	Description   string  `json:"Description"`
	DataType      int     `json:"DataType"`
	Hint          *string `json:"Hint"`
	Validation    *string `json:"Validation"`
	Enrollment    int     `json:"Enrollment"`
	Message       *string `json:"Message"`
	Options       *string `json:"Options"`
	DefaultValue  *string `json:"DefaultValue"`
	DisplayOrder  int     `json:"DisplayOrder"`
	CaseSensitive bool    `json:"CaseSensitive"`
}
