// Package fields defines the canonical field model shared by both systems.
//
// A UnifiedField pairs a Sectigo custom field (the source name) with a
// Keyfactor metadata field (the target name). The unified list is built once
// per run by the schema package, sanitized, pushed to Keyfactor, and then
// drives per-certificate value synchronization.
package fields

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is the Keyfactor metadata data type of a field.
type DataType int

// Keyfactor metadata data types. The numeric values are the wire values.
const (
	String         DataType = 1
	Integer        DataType = 2
	Date           DataType = 3
	Boolean        DataType = 4
	MultipleChoice DataType = 5
	BigText        DataType = 6
	Email          DataType = 7
)

var dataTypeNames = map[DataType]string{
	String:         "String",
	Integer:        "Integer",
	Date:           "Date",
	Boolean:        "Boolean",
	MultipleChoice: "MultipleChoice",
	BigText:        "BigText",
	Email:          "Email",
}

// String returns the name of the data type.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// Valid reports whether d is one of the known data types.
func (d DataType) Valid() bool {
	_, ok := dataTypeNames[d]
	return ok
}

// ParseDataType accepts a data type name (case-insensitive) or its numeric value.
// An empty string yields String.
func ParseDataType(s string) (DataType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return String, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if d := DataType(n); d.Valid() {
			return d, nil
		}
		return 0, fmt.Errorf("unknown data type %d", n)
	}
	for d, name := range dataTypeNames {
		if strings.EqualFold(name, s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// Origin records where a unified field came from.
type Origin int

const (
	// Manual fields are declared by the operator and read from certificate
	// properties by path.
	Manual Origin = 1
	// Custom fields map onto Sectigo custom fields.
	Custom Origin = 2
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case Manual:
		return "Manual"
	case Custom:
		return "Custom"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// UnifiedField is the canonical, system-agnostic field descriptor.
type UnifiedField struct {
	// SourceName is the Sectigo custom field name, or a property path for Manual fields.
	SourceName string `json:"sourceName" yaml:"sourceName"`
	// TargetName is the Keyfactor metadata field name. Sanitized before push.
	TargetName    string   `json:"targetName" yaml:"targetName"`
	Description   string   `json:"description" yaml:"description"`
	DataType      DataType `json:"dataType" yaml:"dataType"`
	Hint          *string  `json:"hint,omitempty" yaml:"hint,omitempty"`
	Validation    *string  `json:"validation,omitempty" yaml:"validation,omitempty"`
	Message       *string  `json:"message,omitempty" yaml:"message,omitempty"`
	Options       []string `json:"options,omitempty" yaml:"options,omitempty"`
	DefaultValue  *string  `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Enrollment    int      `json:"enrollment" yaml:"enrollment"`
	DisplayOrder  int      `json:"displayOrder" yaml:"displayOrder"`
	CaseSensitive bool     `json:"caseSensitive" yaml:"caseSensitive"`
	Origin        Origin   `json:"origin" yaml:"origin"`
	// TargetID is assigned by Keyfactor during the schema push; zero until then.
	TargetID int `json:"targetId,omitempty" yaml:"targetId,omitempty"`
}

// Pushed reports whether Keyfactor has assigned an identifier to the field.
func (f *UnifiedField) Pushed() bool {
	return f.TargetID != 0
}

// Select returns the fields whose origin is one of origins, preserving order.
func Select(list []*UnifiedField, origins ...Origin) []*UnifiedField {
	var out []*UnifiedField
	for _, f := range list {
		for _, o := range origins {
			if f.Origin == o {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
