package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/metasync/pkg/sync"
)

// SummaryTables renders a run result as a counts table followed by one
// table listing the serial numbers of every record needing attention.
func SummaryTables(r *sync.Result) []Data {
	counts := Data{
		Title:           fmt.Sprintf("Run %s (%s)", r.RunID, r.Direction.Describe()),
		Headers:         []string{"Metric", "Value"},
		ColumnAlignment: []tw.Align{tw.AlignLeft, tw.AlignRight},
		Rows: [][]string{
			{"State", string(r.State)},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 UTC")},
			{"Duration", r.Duration.Round(1e6).String()},
			{"Canonical fields", strconv.Itoa(r.Fields)},
			{"Fields written", strconv.Itoa(r.Written)},
			{"Metadata fields created", strconv.Itoa(r.Schema.Created)},
			{"Metadata fields updated", strconv.Itoa(r.Schema.Updated)},
			{"Metadata field failures", strconv.Itoa(r.Schema.Failed)},
			{"Sectigo candidates", strconv.Itoa(r.Candidates)},
			{"Pages", strconv.Itoa(r.Pages)},
			{"Processed", strconv.Itoa(r.Processed)},
			{"Matched", strconv.Itoa(r.Matched)},
			{"Updated", strconv.Itoa(len(r.Updated))},
			{"Partially processed", strconv.Itoa(len(r.Partial))},
			{"Unmatched", strconv.Itoa(len(r.Unmatched))},
			{"Without values", strconv.Itoa(len(r.SchemaAbsent))},
			{"Without custom fields", strconv.Itoa(r.WithoutCustomFields)},
		},
	}
	if r.Error != "" {
		counts.Rows = append(counts.Rows, []string{"Error", r.Error})
	}

	tables := []Data{counts}

	var rows [][]string
	for _, serial := range r.Partial {
		rows = append(rows, []string{"partial", serial, strings.Join(r.Failures[serial], "; ")})
	}
	for _, serial := range r.Unmatched {
		rows = append(rows, []string{"unmatched", serial, ""})
	}
	for _, d := range r.Duplicates {
		rows = append(rows, []string{"duplicate serial", d.Key, fmt.Sprintf("%d Sectigo certificates", d.Count)})
	}
	if len(rows) > 0 {
		tables = append(tables, Data{
			Title:   "Records needing attention",
			Headers: []string{"Category", "Serial", "Detail"},
			Rows:    rows,
		})
	}
	return tables
}

// WriteSummary writes a run result in the given format.
func WriteSummary(w io.Writer, format Format, r *sync.Result) error {
	if format == FormatJSON || format == FormatYAML {
		return NewFormatter(format).Format(w, r)
	}
	return NewFormatter(FormatTable).Format(w, SummaryTables(r))
}

// FieldRow is one canonical field as shown by the fields command.
type FieldRow struct {
	Origin     string   `json:"origin" yaml:"origin"`
	SourceName string   `json:"sourceName" yaml:"sourceName"`
	TargetName string   `json:"targetName" yaml:"targetName"`
	DataType   string   `json:"dataType" yaml:"dataType"`
	Status     string   `json:"status" yaml:"status"`
	Banned     []string `json:"bannedCharacters,omitempty" yaml:"bannedCharacters,omitempty"`
}

// FieldRows describes a plan field by field.
func FieldRows(plan *sync.Plan) []FieldRow {
	existing := make(map[string]bool, len(plan.Existing))
	for _, tf := range plan.Existing {
		existing[strings.ToLower(tf.Name)] = true
	}
	banned := make(map[string][]string, len(plan.Report.Findings))
	for _, f := range plan.Report.Findings {
		for _, e := range f.Entries {
			banned[f.Name] = append(banned[f.Name], e.Describe())
		}
	}

	rows := make([]FieldRow, 0, len(plan.Fields))
	for _, uf := range plan.Fields {
		row := FieldRow{
			Origin:     uf.Origin.String(),
			SourceName: uf.SourceName,
			TargetName: uf.TargetName,
			DataType:   uf.DataType.String(),
			Banned:     banned[uf.TargetName],
		}
		switch {
		case plan.Blocked() && len(row.Banned) > 0:
			row.Status = "blocked"
		case existing[strings.ToLower(uf.TargetName)]:
			row.Status = "update"
		default:
			row.Status = "create"
		}
		rows = append(rows, row)
	}
	return rows
}

// FieldsTable renders field rows as a table.
func FieldsTable(rows []FieldRow) Data {
	data := Data{Headers: []string{"Origin", "Sectigo", "Keyfactor", "Type", "Status", "Banned"}}
	for _, r := range rows {
		data.Rows = append(data.Rows, []string{
			r.Origin, r.SourceName, r.TargetName, r.DataType, r.Status, strings.Join(r.Banned, " "),
		})
	}
	return data
}

// WriteFields writes the canonical field list in the given format.
func WriteFields(w io.Writer, format Format, plan *sync.Plan) error {
	rows := FieldRows(plan)
	if format == FormatJSON || format == FormatYAML {
		return NewFormatter(format).Format(w, rows)
	}
	return NewFormatter(FormatTable).Format(w, FieldsTable(rows))
}
