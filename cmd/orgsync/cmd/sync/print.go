package sync

import (
	"fmt"
	"io"

	"github.com/agentstation/orgsync/internal/cmd/output"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// printer renders sync results in the selected format.
type printer struct {
	w      io.Writer
	format output.Format
	quiet  bool
}

func (p *printer) result(r *pkgsync.Result) error {
	if p.format != output.FormatTable {
		return output.NewFormatter(p.format).Format(p.w, r)
	}

	formatter := output.NewFormatter(output.FormatTable)
	if !p.quiet {
		source := "Feishu"
		if r.Extract.FromExtracts {
			source = "existing extracts"
		}
		fmt.Fprintf(p.w, "Source: %s (%d departments, %d users)\n\n", source, r.Extract.Departments, r.Extract.Users)
		if err := formatter.Format(p.w, output.ResultToTableData(r)); err != nil {
			return err
		}
	}

	if d := r.Departments; d != nil {
		if err := p.changes(formatter, "Departments", output.ChangesToTableData(d.Changes)); err != nil {
			return err
		}
	}
	if u := r.Users; u != nil {
		if err := p.changes(formatter, "Users", output.ChangesToTableData(u.Changes)); err != nil {
			return err
		}
	}

	fmt.Fprintf(p.w, "\n%s\n", r.Summary())
	return nil
}

func (p *printer) changes(formatter output.Formatter, title string, data output.Data) error {
	if len(data.Rows) == 0 {
		return nil
	}
	fmt.Fprintf(p.w, "\n%s:\n", title)
	return formatter.Format(p.w, data)
}
