package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calderdata/intentgate/internal/sqlscan"
)

// PolicyView is the JSON projection of a normalized policy document.
// Absent rules marshal as null: absent means not enforced.
type PolicyView struct {
	Version            string           `json:"version"`
	AllowedActions     []sqlscan.Action `json:"allowed_actions"`
	DisallowedActions  []sqlscan.Action `json:"disallowed_actions"`
	RowLimit           *int             `json:"row_limit"`
	MaxWindowDays      *int             `json:"max_window_days"`
	DisallowFutureAsOf *bool            `json:"disallow_future_as_of"`
}

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect policy documents",
		Long:  "Validate and display policy documents the way the gate reads them.",
	}

	cmd.AddCommand(newPolicyShowCommand(rootOpts))

	return cmd
}

func newPolicyShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <policy-file>",
		Short: "Show a policy document in normalized form",
		Long: `Validate a policy file and show the normalized rules the gate would
enforce: flat rule keys merged over query_behavior, action words
canonicalized to upper case.

A malformed policy is a command error (exit code 2), exactly as it
would be during a gate run.

Examples:
  intentgate policy show policy.json
  intentgate policy show policy.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyShow(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPolicyShow(opts *RootOptions, policyPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := LoadPolicyFile(policyPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	view := PolicyView{
		Version:            doc.Version,
		AllowedActions:     doc.AllowedActions,
		DisallowedActions:  doc.DisallowedActions,
		RowLimit:           doc.RowLimit,
		MaxWindowDays:      doc.MaxWindowDays,
		DisallowFutureAsOf: doc.DisallowFutureAsOf,
	}

	if opts.Format == "json" {
		return formatter.Success(view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Version: %s\n", doc.Version)
	fmt.Fprintf(w, "Allowed actions: %s\n", formatActionRule(doc.AllowedActions))
	fmt.Fprintf(w, "Disallowed actions: %s\n", formatActionRule(doc.DisallowedActions))
	fmt.Fprintf(w, "Row limit: %s\n", formatIntRule(doc.RowLimit))
	fmt.Fprintf(w, "Max window days: %s\n", formatIntRule(doc.MaxWindowDays))
	fmt.Fprintf(w, "Disallow future as-of: %s\n", formatBoolRule(doc.DisallowFutureAsOf))

	return nil
}

// formatActionRule distinguishes the three states of an action list: absent
// (not enforced), empty (enforced, allows nothing), and populated.
func formatActionRule(actions []sqlscan.Action) string {
	if actions == nil {
		return "(not enforced)"
	}
	if len(actions) == 0 {
		return "(none)"
	}
	words := make([]string, len(actions))
	for i, a := range actions {
		words[i] = string(a)
	}
	return strings.Join(words, ", ")
}

func formatIntRule(v *int) string {
	if v == nil {
		return "(not enforced)"
	}
	return fmt.Sprint(*v)
}

func formatBoolRule(v *bool) string {
	if v == nil {
		return "(not enforced)"
	}
	return fmt.Sprint(*v)
}
