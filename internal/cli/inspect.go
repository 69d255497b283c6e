package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calderdata/intentgate/internal/intent"
	"github.com/calderdata/intentgate/internal/sqlscan"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Render bool     // include a rendered preview
	Params []string // name=value preview overrides
}

// InspectResult is the static-analysis view of one template: what the gate
// sees before any policy is applied.
type InspectResult struct {
	TemplateID   string                   `json:"template_id"`
	Path         string                   `json:"path"`
	MetadataPath string                   `json:"metadata_path,omitempty"`
	Fingerprint  string                   `json:"fingerprint"`
	Actions      []sqlscan.Action         `json:"actions"`
	Parameters   []string                 `json:"parameters"`
	DateColumns  []string                 `json:"date_columns"`
	WhereFound   bool                     `json:"where_found"`
	TenantScoped bool                     `json:"tenant_scoped"`
	Filters      []sqlscan.TemporalFilter `json:"filters"`
	RowBounds    []sqlscan.RowBound       `json:"row_bounds"`
	Constructs   []sqlscan.Construct      `json:"constructs"`
	Rendered     string                   `json:"rendered,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <template-file>",
		Short: "Show what the gate sees in a single template",
		Long: `Inspect one query template: its actions, parameters, date columns,
temporal filters, row bounds, and any forbidden constructs.

With --render, prints a preview of the template with its metadata
defaults substituted for the parameter markers. Individual values can
be supplied with --param name=value; unbound parameters stay as
placeholders. The preview is for human review only and never reaches
a database.

Examples:
  intentgate inspect templates/ar_aging_daily.sql.tmpl
  intentgate inspect templates/ar_aging_daily.sql.tmpl --render
  intentgate inspect templates/ar_aging_daily.sql.tmpl --render --param tenant_id=t_042
  intentgate inspect templates/ar_aging_daily.sql.tmpl --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Render, "render", false, "include a rendered preview")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "preview override (name=value, repeatable)")

	return cmd
}

func runInspect(opts *InspectOptions, templatePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("template not found: %s", templatePath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("template not found: %s", templatePath))
	}

	in := intent.LoadFile(templatePath)
	if in.Err != nil {
		_ = formatter.Error(ErrCodeGeneric, in.Err.Error(), nil)
		return NewExitError(ExitCommandError, in.Err.Error())
	}

	result, err := inspectIntent(in)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if opts.Render || len(opts.Params) > 0 {
		overrides, err := parseParamOverrides(opts.Params)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		rendered, err := intent.RenderPreview(in, overrides)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("render preview: %v", err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("render preview: %v", err))
		}
		result.Rendered = rendered
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputInspectText(formatter, result)
	return nil
}

// inspectIntent computes the derived views over one loaded intent. Filters
// and tenant scoping are read from the comment-stripped text the way the
// gate reads them; forbidden constructs scan the raw text, comments included.
func inspectIntent(in intent.Intent) (*InspectResult, error) {
	fingerprint, err := intent.Fingerprint(in)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	stripped := sqlscan.Strip(in.SQL)
	_, whereFound := sqlscan.WhereClause(stripped)

	return &InspectResult{
		TemplateID:   in.ID,
		Path:         in.Path,
		MetadataPath: in.MetaPath,
		Fingerprint:  fingerprint,
		Actions:      sqlscan.FindActions(stripped),
		Parameters:   sqlscan.FindParams(stripped),
		DateColumns:  sqlscan.FindDateColumns(stripped),
		WhereFound:   whereFound,
		TenantScoped: sqlscan.HasTenantPredicate(stripped),
		Filters:      sqlscan.ExtractTemporalFilters(stripped),
		RowBounds:    sqlscan.FindRowBounds(stripped),
		Constructs:   sqlscan.FindForbiddenConstructs(in.SQL),
	}, nil
}

// parseParamOverrides parses repeated --param name=value flags.
func parseParamOverrides(params []string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(params))
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", p)
		}
		overrides[name] = value
	}
	return overrides, nil
}

func outputInspectText(formatter *OutputFormatter, result *InspectResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Template: %s\n", result.TemplateID)
	fmt.Fprintf(w, "Path: %s\n", result.Path)
	if result.MetadataPath != "" {
		fmt.Fprintf(w, "Metadata: %s\n", result.MetadataPath)
	} else {
		fmt.Fprintln(w, "Metadata: (missing)")
	}
	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(w, "Actions: %s\n", joinActions(result.Actions))
	fmt.Fprintf(w, "Parameters: %s\n", joinOrNone(prefixParams(result.Parameters)))
	fmt.Fprintf(w, "Date columns: %s\n", joinOrNone(result.DateColumns))
	fmt.Fprintf(w, "WHERE clause: %s\n", yesNo(result.WhereFound))
	fmt.Fprintf(w, "Tenant scoped: %s\n", yesNo(result.TenantScoped))

	fmt.Fprintln(w, "Temporal filters:")
	if len(result.Filters) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, f := range result.Filters {
		fmt.Fprintf(w, "  %s\n", f.Raw)
	}

	fmt.Fprintln(w, "Row bounds:")
	if len(result.RowBounds) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, b := range result.RowBounds {
		fmt.Fprintf(w, "  %s\n", b.Raw)
	}

	if len(result.Constructs) > 0 {
		fmt.Fprintln(w, "Forbidden constructs:")
		for _, c := range result.Constructs {
			fmt.Fprintf(w, "  %s: %s\n", c.Kind, c.Snippet)
		}
	}

	if result.Rendered != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rendered preview:")
		fmt.Fprintln(w, result.Rendered)
	}
}

func joinActions(actions []sqlscan.Action) string {
	if len(actions) == 0 {
		return "(none)"
	}
	words := make([]string, len(actions))
	for i, a := range actions {
		words[i] = string(a)
	}
	return strings.Join(words, ", ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// prefixParams restores the @ sigil for display, keeping the scanner's
// first-occurrence order.
func prefixParams(params []string) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = "@" + p
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
