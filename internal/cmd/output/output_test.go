package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/matcher"
	"github.com/agentstation/metasync/pkg/sanitize"
	"github.com/agentstation/metasync/pkg/sync"
)

func testResult() *sync.Result {
	start := time.Date(2024, 3, 4, 13, 2, 3, 0, time.UTC)
	return &sync.Result{
		RunID:      "run-1",
		Direction:  sync.SourceToTarget,
		StartedAt:  utc.Time{Time: start},
		FinishedAt: utc.Time{Time: start.Add(2 * time.Second)},
		Duration:   2 * time.Second,
		State:      sync.StateTerminal,
		Fields:     3,
		Processed:  4,
		Matched:    3,
		Unmatched:  []string{"FF"},
		Partial:    []string{"0B2"},
		Updated:    []string{"0A1", "0C3"},
		Duplicates: []matcher.Duplicate{{Key: "0A1", Count: 2}},
		Added:      []string{"#"},
		Failures:   map[string][]string{"0B2": {"commit: boom"}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := Data{Title: "Fields", Headers: []string{"Name", "Type"}, Rows: [][]string{{"dept", "String"}}}
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
	out := buf.String()
	assert.Contains(t, out, "Fields")
	assert.Contains(t, out, "dept")
	assert.Contains(t, out, "String")
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatTable, testResult()))
	out := buf.String()
	assert.Contains(t, out, "Sectigo to Keyfactor")
	assert.Contains(t, out, "Records needing attention")
	assert.Contains(t, out, "commit: boom")
	assert.Contains(t, out, "unmatched")
	assert.Contains(t, out, "duplicate serial")
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatJSON, testResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Equal(t, "sctokf", decoded["direction"])
}

func TestSummaryTablesWithoutIssues(t *testing.T) {
	r := &sync.Result{RunID: "x", Direction: sync.TargetToSource, State: sync.StateTerminal}
	tables := SummaryTables(r)
	require.Len(t, tables, 1)
	assert.Contains(t, tables[0].Title, "Keyfactor to Sectigo")
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	r := testResult()
	r.Error = "fatal at stage snapshot"
	require.NoError(t, WriteReport(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "# metasync run run-1")
	assert.Contains(t, out, "[!CAUTION]")
	assert.Contains(t, out, "## New banned characters")
	assert.Contains(t, out, "`#`")
	assert.Contains(t, out, "## Updated certificates")
	assert.Contains(t, strings.ToLower(out), "metric")
}

func TestFieldRows(t *testing.T) {
	plan := &sync.Plan{
		Fields: []*fields.UnifiedField{
			{SourceName: "Department", TargetName: "dept", DataType: fields.String, Origin: fields.Custom},
			{SourceName: "notBefore", TargetName: "NotBefore", DataType: fields.Date, Origin: fields.Manual},
		},
		Existing: []fields.TargetField{{ID: 1, Name: "DEPT"}},
	}
	rows := FieldRows(plan)
	require.Len(t, rows, 2)
	assert.Equal(t, "update", rows[0].Status)
	assert.Equal(t, "Custom", rows[0].Origin)
	assert.Equal(t, "create", rows[1].Status)

	var buf bytes.Buffer
	require.NoError(t, WriteFields(&buf, FormatTable, plan))
	assert.Contains(t, buf.String(), "NotBefore")
}

func TestFieldRowsBlocked(t *testing.T) {
	dollar := sanitize.Entry{Character: "$"}
	plan := &sync.Plan{
		Fields: []*fields.UnifiedField{
			{SourceName: "Cost$", TargetName: "Cost$", Origin: fields.Custom},
			{SourceName: "ok", TargetName: "ok", Origin: fields.Custom},
		},
		Report: sanitize.Report{
			Findings:   []sanitize.Finding{{Name: "Cost$", Entries: []sanitize.Entry{dollar}}},
			Unresolved: []sanitize.Entry{dollar},
		},
	}
	rows := FieldRows(plan)
	assert.Equal(t, "blocked", rows[0].Status)
	assert.NotEmpty(t, rows[0].Banned)
	assert.Equal(t, "create", rows[1].Status)
}
