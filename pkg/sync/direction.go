package sync

import (
	"strings"

	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
)

// Direction selects which system is written during a run.
type Direction string

const (
	// SourceToTarget copies Sectigo values into Keyfactor metadata.
	SourceToTarget Direction = "sctokf"
	// TargetToSource copies Keyfactor metadata into Sectigo custom fields.
	TargetToSource Direction = "kftosc"
)

// Directions lists the recognized directions.
var Directions = []Direction{SourceToTarget, TargetToSource}

// ParseDirection parses a direction argument case-insensitively.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", errors.NewValidationError("direction", s, "must be one of sctokf, kftosc")
	}
	return d, nil
}

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	return d == SourceToTarget || d == TargetToSource
}

// String returns the direction argument.
func (d Direction) String() string {
	return string(d)
}

// Describe returns a human-readable label.
func (d Direction) Describe() string {
	switch d {
	case SourceToTarget:
		return "Sectigo to Keyfactor"
	case TargetToSource:
		return "Keyfactor to Sectigo"
	default:
		return "unknown"
	}
}

// Origins returns the field origins written in direction d. Manual fields
// are only copied into Keyfactor.
func (d Direction) Origins() []fields.Origin {
	if d == SourceToTarget {
		return []fields.Origin{fields.Manual, fields.Custom}
	}
	return []fields.Origin{fields.Custom}
}
