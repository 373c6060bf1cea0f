package sync

import "github.com/agentstation/metasync/pkg/errors"

// Status classifies how a certificate was processed.
type Status string

const (
	// StatusUpdated means every produced value was committed.
	StatusUpdated Status = "updated"
	// StatusPartial means at least one field or call failed.
	StatusPartial Status = "partial"
	// StatusSchemaAbsent means no field produced a value; nothing was written.
	StatusSchemaAbsent Status = "schema-absent"
	// StatusUnmatched means no counterpart exists in the other system.
	StatusUnmatched Status = "unmatched"
)

// Outcome is the result of reconciling one Keyfactor certificate.
type Outcome struct {
	Serial   string
	TargetID int // Keyfactor certificate Id
	SourceID int // Sectigo sslId, zero when unmatched
	Matched  bool
	Status   Status
	// Written lists the field names committed, keyed as the written system names them.
	Written []string
	// NoCustomFields is set when the Sectigo detail carried no custom fields.
	NoCustomFields bool
	// Errors holds the recoverable field and record errors.
	Errors []error
}

func (o *Outcome) fail(err error) {
	o.Errors = append(o.Errors, err)
}

// Partial reports whether any recoverable error occurred.
func (o *Outcome) Partial() bool {
	return len(o.Errors) > 0
}

// Messages returns the error messages of the outcome.
func (o *Outcome) Messages() []string {
	out := make([]string, len(o.Errors))
	for i, err := range o.Errors {
		out[i] = err.Error()
	}
	return out
}

// classify derives the status once all fields and calls are done.
// A record with errors is partial even when nothing could be written.
func (o *Outcome) classify() {
	switch {
	case !o.Matched:
		o.Status = StatusUnmatched
	case o.Partial():
		o.Status = StatusPartial
	case len(o.Written) == 0:
		o.Status = StatusSchemaAbsent
	default:
		o.Status = StatusUpdated
	}
}

// recordError wraps err as a record-level failure of the outcome's certificate.
func (o *Outcome) recordError(stage string, err error) {
	o.fail(errors.NewRecordError(o.Serial, stage, err))
}
