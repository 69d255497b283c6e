package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderdata/intentgate/internal/registry"
)

func runApprovalsCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewApprovalsCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func seedApproval(t *testing.T, dbPath string, a registry.Approval) {
	t.Helper()
	reg, err := registry.Open(dbPath)
	require.NoError(t, err)
	defer reg.Close()
	inserted, err := reg.WriteApproval(context.Background(), a)
	require.NoError(t, err)
	require.True(t, inserted)
}

var (
	fingerprintA = strings.Repeat("ab12", 16)
	fingerprintB = strings.Repeat("cd34", 16)
)

func TestApprovalsListTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "orders_snapshot",
		Fingerprint:   fingerprintB,
		PolicyVersion: "2024.1",
		RunID:         "run-2",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-07-01T00:00:00Z",
	})
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "text"}, "list", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "TEMPLATE")
	assert.Contains(t, out, "FINGERPRINT")
	assert.Contains(t, out, "RECORDED AT")

	// Fingerprints display truncated, like short commit hashes.
	assert.Contains(t, out, fingerprintA[:12])
	assert.NotContains(t, out, fingerprintA)

	// Ordered by template id regardless of insertion order.
	assert.Less(t, strings.Index(out, "ar_aging_daily"), strings.Index(out, "orders_snapshot"))
}

func TestApprovalsListEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")

	out, err := runApprovalsCommand(t, &RootOptions{Format: "text"}, "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No approvals recorded.")
}

func TestApprovalsListJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "json"}, "list", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   []registry.Approval `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ar_aging_daily", resp.Data[0].TemplateID)
	assert.Equal(t, fingerprintA, resp.Data[0].Fingerprint)
}

func TestApprovalsListMissingDBFlag(t *testing.T) {
	_, err := runApprovalsCommand(t, &RootOptions{Format: "text"}, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestApprovalsShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintB,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.2",
		RunID:         "run-2",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-07-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "text"}, "show", "ar_aging_daily", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Template: ar_aging_daily")
	assert.Contains(t, out, "Approvals: 2")
	assert.Contains(t, out, "fingerprint: "+fingerprintA)
	assert.Contains(t, out, "policy_version: 2024.1")
	assert.Contains(t, out, "run_id: run-2")
	assert.NotContains(t, out, "report:")

	// Oldest revision first.
	assert.Less(t, strings.Index(out, fingerprintB), strings.Index(out, fingerprintA))
}

func TestApprovalsShowVerbose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "text", Verbose: true},
		"show", "ar_aging_daily", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `report: {"pass":true}`)
}

func TestApprovalsShowNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "text"}, "show", "unknown_template", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
	assert.Contains(t, err.Error(), "no approvals recorded for unknown_template")
}

func TestApprovalsShowJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "approvals.db")
	seedApproval(t, dbPath, registry.Approval{
		TemplateID:    "ar_aging_daily",
		Fingerprint:   fingerprintA,
		PolicyVersion: "2024.1",
		RunID:         "run-1",
		Report:        `{"pass":true}`,
		RecordedAt:    "2024-06-01T00:00:00Z",
	})

	out, err := runApprovalsCommand(t, &RootOptions{Format: "json"}, "show", "ar_aging_daily", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   []registry.Approval `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "run-1", resp.Data[0].RunID)
}
