package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderdata/intentgate/internal/sqlscan"
)

func runPolicyCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewPolicyCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writePolicyJSON(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestPolicyShowText(t *testing.T) {
	policyPath := writePolicy(t, t.TempDir())

	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", policyPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Version: 2024.1")
	assert.Contains(t, out, "Allowed actions: SELECT, WITH")
	assert.Contains(t, out, "Disallowed actions: (not enforced)")
	assert.Contains(t, out, "Row limit: 1000")
	assert.Contains(t, out, "Max window days: 90")
	assert.Contains(t, out, "Disallow future as-of: true")
}

func TestPolicyShowNormalizesNestedRules(t *testing.T) {
	policyPath := writePolicyJSON(t, `{
  "version": "legacy.3",
  "rules": {
    "row_limit": 500,
    "query_behavior": {
      "allowed_actions": ["select"],
      "row_limit": 250,
      "max_window_days": 30
    }
  }
}`)

	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", policyPath)
	require.NoError(t, err)

	// Action words canonicalize; flat keys win over query_behavior.
	assert.Contains(t, out, "Allowed actions: SELECT")
	assert.Contains(t, out, "Row limit: 500")
	assert.Contains(t, out, "Max window days: 30")
	assert.Contains(t, out, "Disallow future as-of: (not enforced)")
}

func TestPolicyShowEmptyAllowList(t *testing.T) {
	policyPath := writePolicyJSON(t, `{
  "version": "lockdown.1",
  "rules": {
    "allowed_actions": []
  }
}`)

	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", policyPath)
	require.NoError(t, err)

	// Present-but-empty is enforced and allows nothing; absent is not enforced.
	assert.Contains(t, out, "Allowed actions: (none)")
	assert.Contains(t, out, "Disallowed actions: (not enforced)")
	assert.Contains(t, out, "Row limit: (not enforced)")
}

func TestPolicyShowUnknownActionWord(t *testing.T) {
	policyPath := writePolicyJSON(t, `{
  "version": "v1",
  "rules": {
    "allowed_actions": ["GRANT"]
  }
}`)

	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", policyPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, err.Error(), "unknown action word")
}

func TestPolicyShowMalformed(t *testing.T) {
	policyPath := writePolicyJSON(t, `{"max_rows": 10}`)

	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", policyPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestPolicyShowMissingFile(t *testing.T) {
	out, err := runPolicyCommand(t, &RootOptions{Format: "text"}, "show", "/nonexistent/policy.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestPolicyShowJSON(t *testing.T) {
	policyPath := writePolicy(t, t.TempDir())

	out, err := runPolicyCommand(t, &RootOptions{Format: "json"}, "show", policyPath)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PolicyView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "2024.1", resp.Data.Version)
	assert.Equal(t, []sqlscan.Action{sqlscan.ActionSelect, sqlscan.ActionWith}, resp.Data.AllowedActions)
	assert.Nil(t, resp.Data.DisallowedActions)
	require.NotNil(t, resp.Data.RowLimit)
	assert.Equal(t, 1000, *resp.Data.RowLimit)
	require.NotNil(t, resp.Data.DisallowFutureAsOf)
	assert.True(t, *resp.Data.DisallowFutureAsOf)
}

func TestFormatRuleHelpers(t *testing.T) {
	assert.Equal(t, "(not enforced)", formatActionRule(nil))
	assert.Equal(t, "(none)", formatActionRule([]sqlscan.Action{}))
	assert.Equal(t, "SELECT, WITH", formatActionRule([]sqlscan.Action{sqlscan.ActionSelect, sqlscan.ActionWith}))

	assert.Equal(t, "(not enforced)", formatIntRule(nil))
	limit := 90
	assert.Equal(t, "90", formatIntRule(&limit))

	assert.Equal(t, "(not enforced)", formatBoolRule(nil))
	off := false
	assert.Equal(t, "false", formatBoolRule(&off))
}
