package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/calderdata/intentgate/internal/intent"
	"github.com/calderdata/intentgate/internal/registry"
	"github.com/calderdata/intentgate/internal/report"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	PolicyPath string
	DBPath     string
	Exempt     []string
	Jobs       int
}

// RegisterResult summarizes an approval-recording run.
type RegisterResult struct {
	RunID      string          `json:"run_id"`
	Reports    []report.Report `json:"reports"`
	Summary    report.Summary  `json:"summary"`
	Registered []string        `json:"registered"` // template ids recorded this run
	Skipped    []string        `json:"skipped"`    // revisions already approved
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <templates-dir>",
		Short: "Check templates and record approvals for the ones that pass",
		Long: `Run the gate over a directory of templates and record an approval for
every non-exempt template that passes, keyed by template id and content
fingerprint. Re-registering an already-approved revision is a no-op.

Failing templates still fail the run: approvals are recorded for the
passing templates and the command exits 1.

Exit codes:
  0 - Every non-exempt template passed
  1 - One or more non-exempt templates failed
  2 - Command error (invalid paths, malformed policy, registry errors)

Examples:
  intentgate register ./templates --policy policy.json --db approvals.db
  intentgate register ./templates --policy policy.json --db approvals.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", "", "policy file to enforce")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "approval registry database")
	cmd.Flags().StringSliceVar(&opts.Exempt, "exempt", nil, "additional exempt template ids")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max concurrent evaluations (default GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRegister(opts *RegisterOptions, templatesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	checkOpts := &CheckOptions{
		RootOptions: opts.RootOptions,
		PolicyPath:  opts.PolicyPath,
		Exempt:      opts.Exempt,
		Jobs:        opts.Jobs,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loaded, doc, reports, err := evaluateTemplates(ctx, checkOpts, templatesDir, formatter)
	if err != nil {
		return err
	}

	reg, err := registry.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer reg.Close()

	result := RegisterResult{
		RunID:      uuid.NewString(),
		Reports:    reports,
		Summary:    report.Aggregate(reports),
		Registered: []string{},
		Skipped:    []string{},
	}

	policyVersion := ""
	if opts.PolicyPath != "" {
		policyVersion = doc.Version
	}
	recordedAt := time.Now().UTC().Format(time.RFC3339)

	// Reports are parallel to the loaded intents; pair them by index.
	for i, r := range reports {
		if !r.Pass || r.Exempt {
			continue
		}
		fingerprint, err := intent.Fingerprint(loaded.Intents[i])
		if err != nil {
			_ = formatter.Error(ErrCodeRegistry, fmt.Sprintf("fingerprint %s: %v", r.TemplateID, err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("fingerprint %s: %v", r.TemplateID, err))
		}
		reportJSON, err := r.MarshalCanonical()
		if err != nil {
			_ = formatter.Error(ErrCodeRegistry, fmt.Sprintf("encode report %s: %v", r.TemplateID, err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("encode report %s: %v", r.TemplateID, err))
		}

		inserted, err := reg.WriteApproval(ctx, registry.Approval{
			TemplateID:    r.TemplateID,
			Fingerprint:   fingerprint,
			PolicyVersion: policyVersion,
			RunID:         result.RunID,
			Report:        string(reportJSON),
			RecordedAt:    recordedAt,
		})
		if err != nil {
			_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		if inserted {
			result.Registered = append(result.Registered, r.TemplateID)
		} else {
			result.Skipped = append(result.Skipped, r.TemplateID)
		}
	}

	if opts.Format == "json" {
		return outputRegisterJSON(cmd, result)
	}
	return outputRegisterText(cmd, opts, result)
}

// outputRegisterJSON outputs the register run as JSON.
func outputRegisterJSON(cmd *cobra.Command, result RegisterResult) error {
	blocked := report.FailuresBlockRun(result.Reports)

	response := CLIResponse{Status: "ok", Data: result}
	if blocked {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_CHECK_FAILED",
			Message: fmt.Sprintf("%d of %d template(s) failed", result.Summary.Failed, result.Summary.Total),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if blocked {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d template(s) failed", result.Summary.Failed, result.Summary.Total))
	}
	return nil
}

// outputRegisterText outputs the register run as text: per-template verdicts,
// the run summary, then what was recorded.
func outputRegisterText(cmd *cobra.Command, opts *RegisterOptions, result RegisterResult) error {
	w := cmd.OutOrStdout()

	for _, r := range result.Reports {
		report.RenderText(w, r, opts.Verbose)
	}

	fmt.Fprintln(w)
	report.RenderSummary(w, result.Summary)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Registered %d approval(s), %d already recorded (run %s)\n",
		len(result.Registered), len(result.Skipped), result.RunID)

	if report.FailuresBlockRun(result.Reports) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d template(s) failed", result.Summary.Failed, result.Summary.Total))
	}
	return nil
}
