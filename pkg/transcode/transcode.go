// Package transcode converts field values between Keyfactor and Sectigo.
//
// Only dates need converting: Keyfactor renders date metadata with a
// configurable pattern, while Sectigo date custom fields take yyyy-MM-dd.
// Every other data type is copied as text; the data type is advisory.
package transcode

import (
	"strings"
	"time"

	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
)

// Transcoder converts values according to a field's data type.
type Transcoder struct {
	pattern  string
	layout   string
	// meridiem is set when the layout carries an AM/PM designator, which
	// Go matches case-sensitively.
	meridiem bool
}

// New returns a Transcoder that parses Keyfactor dates with pattern.
func New(pattern string) (*Transcoder, error) {
	layout, err := Layout(pattern)
	if err != nil {
		return nil, errors.NewValidationError("keyfactorDateFormat", pattern, err.Error())
	}
	return &Transcoder{pattern: pattern, layout: layout, meridiem: strings.Contains(layout, "PM")}, nil
}

// Pattern returns the configured date pattern.
func (t *Transcoder) Pattern() string {
	return t.pattern
}

// Layout returns the Go layout the pattern translates to.
func (t *Transcoder) Layout() string {
	return t.layout
}

// Date parses value with the configured pattern and formats it as yyyy-MM-dd.
func (t *Transcoder) Date(value string) (string, error) {
	text := strings.TrimSpace(value)
	if t.meridiem {
		// Month and day names match case-insensitively, so only the
		// designator is affected.
		text = strings.ToUpper(text)
	}
	parsed, err := time.Parse(t.layout, text)
	if err != nil {
		return "", errors.NewParseError("date", "",
			"value "+quote(value)+" does not match pattern "+quote(t.pattern), err)
	}
	return parsed.Format(constants.CanonicalDateLayout), nil
}

// ToSource converts a Keyfactor value for writing to Sectigo.
func (t *Transcoder) ToSource(f *fields.UnifiedField, value string) (string, error) {
	if f.DataType == fields.Date {
		return t.Date(value)
	}
	return value, nil
}

// ToTarget converts a Sectigo value for writing to Keyfactor. Sectigo values
// are already in a form Keyfactor accepts, so they are copied verbatim.
func (t *Transcoder) ToTarget(_ *fields.UnifiedField, value string) (string, error) {
	return value, nil
}

func quote(s string) string {
	return `"` + s + `"`
}
