package cli

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/calderdata/intentgate/internal/registry"
)

// ApprovalsOptions holds flags for the approvals subcommands.
type ApprovalsOptions struct {
	*RootOptions
	DBPath string
}

// NewApprovalsCommand creates the approvals command group.
func NewApprovalsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Inspect recorded approvals",
		Long:  "List and show approvals recorded by the register command.",
	}

	cmd.AddCommand(newApprovalsListCommand(rootOpts))
	cmd.AddCommand(newApprovalsShowCommand(rootOpts))

	return cmd
}

func newApprovalsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApprovalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every recorded approval",
		Long: `List every approval in the registry, ordered by template id and
fingerprint.

Examples:
  intentgate approvals list --db approvals.db
  intentgate approvals list --db approvals.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovalsList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "approval registry database")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func newApprovalsShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApprovalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show the approvals recorded for one template",
		Long: `Show every approval recorded for one template, oldest revision first.
With --verbose, includes the stored compliance report for each revision.

Examples:
  intentgate approvals show ar_aging_daily --db approvals.db
  intentgate approvals show ar_aging_daily --db approvals.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovalsShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "approval registry database")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runApprovalsList(opts *ApprovalsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := registry.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer reg.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	approvals, err := reg.List(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(approvals)
	}

	w := cmd.OutOrStdout()
	if len(approvals) == 0 {
		fmt.Fprintln(w, "No approvals recorded.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Template", "Fingerprint", "Policy", "Recorded At"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("  ")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, a := range approvals {
		table.Append([]string{a.TemplateID, shortFingerprint(a.Fingerprint), a.PolicyVersion, a.RecordedAt})
	}
	table.Render()

	return nil
}

func runApprovalsShow(opts *ApprovalsOptions, templateID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := registry.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer reg.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	approvals, err := reg.Get(ctx, templateID)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if len(approvals) == 0 {
		_ = formatter.Error("E_NOT_FOUND", fmt.Sprintf("no approvals recorded for %s", templateID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no approvals recorded for %s", templateID))
	}

	if opts.Format == "json" {
		return formatter.Success(approvals)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Template: %s\n", templateID)
	fmt.Fprintf(w, "Approvals: %d\n", len(approvals))
	for _, a := range approvals {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  fingerprint: %s\n", a.Fingerprint)
		fmt.Fprintf(w, "  policy_version: %s\n", a.PolicyVersion)
		fmt.Fprintf(w, "  run_id: %s\n", a.RunID)
		fmt.Fprintf(w, "  recorded_at: %s\n", a.RecordedAt)
		if opts.Verbose {
			fmt.Fprintf(w, "  report: %s\n", a.Report)
		}
	}

	return nil
}

// shortFingerprint truncates a content fingerprint for table display, the
// way short commit hashes are shown.
func shortFingerprint(fp string) string {
	if len(fp) <= 12 {
		return fp
	}
	return fp[:12]
}
