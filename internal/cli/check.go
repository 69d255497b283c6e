package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calderdata/intentgate/internal/gate"
	"github.com/calderdata/intentgate/internal/policy"
	"github.com/calderdata/intentgate/internal/report"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	PolicyPath string   // policy file to enforce (optional)
	Exempt     []string // extra exempt template ids
	Jobs       int      // max concurrent evaluations (0 = GOMAXPROCS)
}

// CheckResult holds the full gate run output.
type CheckResult struct {
	Reports []report.Report `json:"reports"`
	Summary report.Summary  `json:"summary"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <templates-dir>",
		Short: "Check query templates against policy and contract rules",
		Long: `Check every query template in a directory against the policy rules
and its metadata contract.

Every template gets a full report; evaluation never stops at the first
finding. Exempt templates are reported but never block the run.

Exit codes:
  0 - Every non-exempt template passed
  1 - One or more non-exempt templates failed
  2 - Command error (invalid paths, malformed policy, etc.)

Examples:
  intentgate check ./templates --policy policy.json
  intentgate check ./templates --policy policy.json --exempt ops_probe
  intentgate check ./templates --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", "", "policy file to enforce")
	cmd.Flags().StringSliceVar(&opts.Exempt, "exempt", nil, "additional exempt template ids")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max concurrent evaluations (default GOMAXPROCS)")

	return cmd
}

func runCheck(opts *CheckOptions, templatesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	_, _, reports, err := evaluateTemplates(cmd.Context(), opts, templatesDir, formatter)
	if err != nil {
		return err
	}

	result := CheckResult{Reports: reports, Summary: report.Aggregate(reports)}

	if opts.Format == "json" {
		return outputCheckJSON(cmd, result)
	}
	return outputCheckText(cmd, opts, result)
}

// evaluateTemplates is the shared load-and-check flow: load the policy, load
// the templates, run the gate. Reports come back ordered by template id,
// parallel to the loaded intents. Shared by check and register.
func evaluateTemplates(ctx context.Context, opts *CheckOptions, templatesDir string, formatter *OutputFormatter) (*LoadResult, *policy.Document, []report.Report, error) {
	doc, err := LoadPolicyFile(opts.PolicyPath)
	if err != nil {
		return nil, nil, nil, outputLoadError(formatter, err)
	}
	if opts.PolicyPath != "" {
		formatter.VerboseLog("Policy %s loaded (version %s)", opts.PolicyPath, doc.Version)
	}

	loaded, err := LoadIntents(templatesDir)
	if err != nil {
		return nil, nil, nil, outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d template(s) in %s", loaded.FileCount, templatesDir)

	gateOpts := []gate.Option{gate.WithExemptSet(policy.NewExemptSet(opts.Exempt...))}
	if opts.Jobs > 0 {
		gateOpts = append(gateOpts, gate.WithJobs(opts.Jobs))
	}
	g := gate.New(doc, gateOpts...)

	if ctx == nil {
		ctx = context.Background()
	}
	reports, err := g.Check(ctx, loaded.Intents)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, nil, nil, NewExitError(ExitCommandError, err.Error())
	}
	return loaded, doc, reports, nil
}

// outputCheckJSON outputs the gate run as JSON.
func outputCheckJSON(cmd *cobra.Command, result CheckResult) error {
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
		// Gate failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d template(s) failed", result.Summary.Failed, result.Summary.Total))
	}
	return nil
}

// outputCheckText outputs the gate run as text: one block per template,
// then the run summary.
func outputCheckText(cmd *cobra.Command, opts *CheckOptions, result CheckResult) error {
	w := cmd.OutOrStdout()

	for _, r := range result.Reports {
		report.RenderText(w, r, opts.Verbose)
	}

	fmt.Fprintln(w)
	report.RenderSummary(w, result.Summary)

	if report.FailuresBlockRun(result.Reports) {
		// Gate failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d template(s) failed", result.Summary.Failed, result.Summary.Total))
	}
	return nil
}
