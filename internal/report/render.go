package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/calderdata/intentgate/internal/sqlscan"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	dim    = color.New(color.Faint)
)

// RenderText writes one report as human text: a verdict line, then the
// findings. Verbose also spells out what a passing template satisfied.
func RenderText(w io.Writer, r Report, verbose bool) {
	if r.IsMalformed() {
		yellow.Fprintf(w, "! %s\n", r.TemplateID)
		fmt.Fprintf(w, "    malformed: %s\n", r.Error)
		return
	}

	if r.Pass {
		green.Fprintf(w, "✓ %s", r.TemplateID)
	} else {
		red.Fprintf(w, "✗ %s", r.TemplateID)
	}
	if r.Exempt {
		fmt.Fprintf(w, " %s", dim.Sprint("(exempt)"))
	}
	fmt.Fprintln(w)

	if !r.Exempt {
		if !r.TemporalFilterFound {
			if !r.WhereFound {
				fmt.Fprintf(w, "    no WHERE clause\n")
			} else {
				fmt.Fprintf(w, "    no parameterized temporal filter in WHERE\n")
			}
		} else if verbose {
			for _, f := range r.FiltersFound {
				fmt.Fprintf(w, "    temporal filter: %s\n", formatFilter(f))
			}
		}
		if !r.TenantScoped {
			fmt.Fprintf(w, "    missing tenant_id scoping predicate\n")
		}
	}

	for _, v := range r.ActionViolations {
		fmt.Fprintf(w, "    %s %s\n", v.Code, v.Message)
	}
	for _, findings := range [][]string{r.RowLimitViolations, r.InjectionFindings, r.WindowViolations} {
		for _, f := range findings {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
	for _, v := range r.ContractViolations {
		fmt.Fprintf(w, "    %s\n", v.Error())
	}
}

func formatFilter(f sqlscan.TemporalFilter) string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = "@" + p
	}
	return fmt.Sprintf("%s %s (%s)", f.Column, f.Operator, strings.Join(params, ", "))
}

// RenderSummary writes the aggregate counts as a compact table.
func RenderSummary(w io.Writer, s Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Total", "Passed", "Failed", "Exempt", "Malformed"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("  ")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.Append([]string{
		fmt.Sprint(s.Total),
		fmt.Sprint(s.Passed),
		fmt.Sprint(s.Failed),
		fmt.Sprint(s.Exempt),
		fmt.Sprint(s.Malformed),
	})
	table.Render()
}
