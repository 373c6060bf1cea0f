package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/agentstation/metasync/pkg/sync"
)

// WriteReport writes a Markdown run report.
func WriteReport(w io.Writer, r *sync.Result) error {
	doc := md.NewMarkdown(w)
	doc.H1(fmt.Sprintf("metasync run %s", r.RunID)).LF()
	doc.PlainTextf("%s, started %s, finished in %s.",
		md.Bold(r.Direction.Describe()),
		r.StartedAt.Format("2006-01-02 15:04:05 UTC"),
		r.Duration.Round(1e6)).LF()

	if r.Error != "" {
		doc.PlainText(fmt.Sprintf("> [!CAUTION]\n> %s", r.Error)).LF().LF()
	}

	for _, table := range SummaryTables(r) {
		doc.H2(table.Title)
		doc.Table(md.TableSet{Header: table.Headers, Rows: table.Rows})
	}

	if len(r.Added) > 0 {
		doc.H2("New banned characters")
		doc.PlainText("Add a replacement for each of these to the banned character table before the next run.").LF()
		doc.BulletList(codes(r.Added)...)
	}

	if len(r.Updated) > 0 {
		doc.H2("Updated certificates")
		doc.PlainText(strings.Join(codes(r.Updated), ", ")).LF()
	}
	return doc.Build()
}

// WriteReportFile writes the Markdown report to path, creating parent
// directories as needed.
func WriteReportFile(path string, r *sync.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReport(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func codes(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = md.Code(s)
	}
	return out
}
