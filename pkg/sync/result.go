package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/metasync/pkg/matcher"
	"github.com/agentstation/metasync/pkg/schema"
)

// State is a stage of the run state machine.
type State string

// Run states in order.
const (
	StateInit               State = "init"
	StateSchemaUnification  State = "schema-unification"
	StateSanitization       State = "sanitization"
	StateSchemaPush         State = "schema-push"
	StatePaginate           State = "paginate"
	StatePerRecordReconcile State = "reconcile"
	StateSummarize          State = "summarize"
	StateTerminal           State = "terminal"
	StateAborted            State = "aborted"
)

// Result represents the complete result of a run.
type Result struct {
	// Run metadata
	RunID      string        `json:"runId" yaml:"runId"`
	Direction  Direction     `json:"direction" yaml:"direction"`
	StartedAt  utc.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt utc.Time      `json:"finishedAt" yaml:"finishedAt"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	State      State         `json:"state" yaml:"state"` // Last state reached
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`

	// Schema
	Fields     int                 `json:"fields" yaml:"fields"`
	Written    int                 `json:"writtenFields" yaml:"writtenFields"`
	Schema     schema.PushResult   `json:"schema" yaml:"schema"`
	Added      []string            `json:"addedCharacters,omitempty" yaml:"addedCharacters,omitempty"`
	Candidates int                 `json:"candidates" yaml:"candidates"`
	Duplicates []matcher.Duplicate `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`

	// Records
	Pages               int `json:"pages" yaml:"pages"`
	Processed           int `json:"processed" yaml:"processed"`
	Matched             int `json:"matched" yaml:"matched"`
	WithoutCustomFields int `json:"withoutCustomFields" yaml:"withoutCustomFields"`

	Unmatched    []string `json:"unmatched" yaml:"unmatched"`
	Partial      []string `json:"partial" yaml:"partial"`
	Updated      []string `json:"updated" yaml:"updated"`
	SchemaAbsent []string `json:"schemaAbsent" yaml:"schemaAbsent"`

	// Failures holds the recoverable error messages per serial.
	Failures map[string][]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func newResult(runID string, d Direction) *Result {
	return &Result{
		RunID:     runID,
		Direction: d,
		StartedAt: utc.Now(),
		State:     StateInit,
	}
}

// Add folds one outcome into the result.
func (r *Result) Add(o *Outcome) {
	r.Processed++
	if o.Matched {
		r.Matched++
	}
	if o.NoCustomFields {
		r.WithoutCustomFields++
	}

	switch o.Status {
	case StatusUnmatched:
		r.Unmatched = append(r.Unmatched, o.Serial)
	case StatusPartial:
		r.Partial = append(r.Partial, o.Serial)
	case StatusSchemaAbsent:
		r.SchemaAbsent = append(r.SchemaAbsent, o.Serial)
	case StatusUpdated:
		r.Updated = append(r.Updated, o.Serial)
	}

	if o.Partial() {
		if r.Failures == nil {
			r.Failures = make(map[string][]string)
		}
		r.Failures[o.Serial] = append(r.Failures[o.Serial], o.Messages()...)
	}
}

func (r *Result) finish(err error) {
	r.FinishedAt = utc.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	if err != nil {
		r.State = StateAborted
		r.Error = err.Error()
		return
	}
	r.State = StateTerminal
}

// Succeeded reports whether the run reached normal completion.
func (r *Result) Succeeded() bool {
	return r.State == StateTerminal
}

// HasIssues reports whether any record was unmatched or partially processed.
func (r *Result) HasIssues() bool {
	return len(r.Unmatched) > 0 || len(r.Partial) > 0 || r.Schema.Failed > 0
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	var parts []string
	parts = append(parts,
		fmt.Sprintf("%d processed", r.Processed),
		fmt.Sprintf("%d updated", len(r.Updated)),
		fmt.Sprintf("%d partial", len(r.Partial)),
		fmt.Sprintf("%d unmatched", len(r.Unmatched)),
		fmt.Sprintf("%d without values", len(r.SchemaAbsent)),
	)
	summary := fmt.Sprintf("%s: %s", r.Direction.Describe(), strings.Join(parts, ", "))
	if r.Schema.Failed > 0 {
		summary += fmt.Sprintf(" (%d metadata field push failures)", r.Schema.Failed)
	}
	if !r.Succeeded() {
		summary += " (aborted)"
	}
	return summary
}
