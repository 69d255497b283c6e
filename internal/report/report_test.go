package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderdata/intentgate/internal/contract"
	"github.com/calderdata/intentgate/internal/policy"
	"github.com/calderdata/intentgate/internal/sqlscan"
)

// disableColor pins color handling so rendered bytes are stable under
// test regardless of the terminal.
func disableColor(t *testing.T) func() {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	return func() { color.NoColor = prev }
}

func cleanEval() policy.EvalResult {
	return policy.EvalResult{
		WhereFound:          true,
		TemporalFilterFound: true,
		TenantScoped:        true,
		Filters: []sqlscan.TemporalFilter{{
			Column:     "order_date",
			Operator:   "BETWEEN",
			Parameters: []string{"start_date", "end_date"},
			Raw:        "order_date BETWEEN @start_date AND @end_date",
		}},
	}
}

func TestComposePassingReport(t *testing.T) {
	r := Compose("daily_orders", false, cleanEval(), nil)

	assert.True(t, r.Pass)
	assert.False(t, r.IsMalformed())
	assert.Nil(t, r.Codes())
	// sequences serialize as empty, never null
	require.NotNil(t, r.ActionViolations)
	require.NotNil(t, r.ContractViolations)
}

func TestComposeFailingReport(t *testing.T) {
	eval := cleanEval()
	eval.TemporalFilterFound = false
	eval.Filters = nil

	r := Compose("daily_orders", false, eval, nil)

	assert.False(t, r.Pass)
	assert.Equal(t, []string{policy.ErrNoTemporalFilter}, r.Codes())
}

func TestComposeContractViolationsFailReport(t *testing.T) {
	r := Compose("daily_orders", false, cleanEval(), []contract.Violation{contract.MissingSidecar()})

	assert.False(t, r.Pass)
	assert.Equal(t, []string{contract.ErrSidecarMissing}, r.Codes())
}

func TestCodesDerivation(t *testing.T) {
	eval := policy.EvalResult{
		WhereFound:          false,
		TemporalFilterFound: false,
		TenantScoped:        false,
		ActionViolations: []policy.ActionViolation{{
			Action: sqlscan.ActionDelete, Code: policy.ErrActionNotAllowed,
			Message: "action DELETE is not in the allowed set",
		}},
		RowLimitViolations: []string{"G401 LIMIT 5000 exceeds row limit 1000"},
		InjectionFindings:  []string{"G201 wildcard projection: SELECT *", "G103 hardcoded date literal: d = '2024-01-01'"},
		WindowViolations:   []string{"G501 default window_days=120 exceeds max window of 90 days"},
	}
	violations := []contract.Violation{{Field: "partitions", Message: "m", Code: contract.ErrPartitionScheme}}

	codes := Compose("t", false, eval, violations).Codes()

	assert.Equal(t, []string{"C103", "G101", "G103", "G104", "G201", "G301", "G401", "G501"}, codes)
}

func TestCodesNoWhereSubsumesNoFilter(t *testing.T) {
	eval := cleanEval()
	eval.WhereFound = false
	eval.TemporalFilterFound = false
	eval.TenantScoped = false
	eval.Filters = nil

	codes := Compose("t", false, eval, nil).Codes()
	assert.Contains(t, codes, policy.ErrNoWhere)
	assert.NotContains(t, codes, policy.ErrNoTemporalFilter)
}

func TestExemptReportSkipsStructuralCodes(t *testing.T) {
	eval := policy.EvalResult{
		WhereFound:          true,
		TemporalFilterFound: true,
		TenantScoped:        true,
		RowLimitViolations:  []string{"G402 no LIMIT/TOP literal, aggregation, or application-controlled marker"},
	}

	r := Compose("qa_unfiltered_probe", true, eval, nil)

	assert.False(t, r.Pass)
	assert.Equal(t, []string{policy.ErrNoRowBound}, r.Codes())
}

func TestMalformedReport(t *testing.T) {
	r := Malformed("broken", errors.New("metadata broken.meta.json: decode: unexpected EOF"))

	assert.True(t, r.IsMalformed())
	assert.False(t, r.Pass)
	assert.Nil(t, r.Codes())
	assert.NotEmpty(t, r.Error)
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	r := Compose("daily_orders", false, cleanEval(), nil)

	a, err := r.MarshalCanonical()
	require.NoError(t, err)
	b, err := r.MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"action_violations":[]`)
	assert.Contains(t, string(a), `"template_id":"daily_orders"`)
}

func TestAggregateCounts(t *testing.T) {
	pass := Compose("a", false, cleanEval(), nil)
	fail := Compose("b", false, policy.EvalResult{}, nil)
	exemptFail := Compose("c", true, policy.EvalResult{
		WhereFound: true, TemporalFilterFound: true, TenantScoped: true,
		RowLimitViolations: []string{"G402 unbounded"},
	}, nil)
	malformed := Malformed("d", errors.New("boom"))

	s := Aggregate([]Report{pass, fail, exemptFail, malformed})

	assert.Equal(t, Summary{Total: 4, Passed: 1, Failed: 3, Exempt: 1, Malformed: 1}, s)
}

func TestFailuresBlockRun(t *testing.T) {
	pass := Compose("a", false, cleanEval(), nil)
	exemptFail := Compose("c", true, policy.EvalResult{
		WhereFound: true, TemporalFilterFound: true, TenantScoped: true,
		RowLimitViolations: []string{"G402 unbounded"},
	}, nil)

	assert.False(t, FailuresBlockRun([]Report{pass, exemptFail}))

	fail := Compose("b", false, policy.EvalResult{}, nil)
	assert.True(t, FailuresBlockRun([]Report{pass, exemptFail, fail}))
}

func TestRenderTextFailingReport(t *testing.T) {
	restoreColor := disableColor(t)
	defer restoreColor()

	eval := policy.EvalResult{
		WhereFound:          true,
		TemporalFilterFound: false,
		TenantScoped:        false,
		ActionViolations: []policy.ActionViolation{{
			Action: sqlscan.ActionDelete, Code: policy.ErrActionNotAllowed,
			Message: "action DELETE is not in the allowed set",
		}},
		RowLimitViolations: []string{"G401 LIMIT 5000 exceeds row limit 1000"},
		InjectionFindings:  []string{"G201 wildcard projection: SELECT *"},
	}
	violations := []contract.Violation{{
		Field: "partitions", Message: `partitions must be non-empty and include "yyyy_mm"`, Code: contract.ErrPartitionScheme,
	}}
	r := Compose("ar_aging_daily", false, eval, violations)

	var buf bytes.Buffer
	RenderText(&buf, r, false)

	want := `✗ ar_aging_daily
    no parameterized temporal filter in WHERE
    missing tenant_id scoping predicate
    G301 action DELETE is not in the allowed set
    G401 LIMIT 5000 exceeds row limit 1000
    G201 wildcard projection: SELECT *
    [C103] partitions: partitions must be non-empty and include "yyyy_mm"
`
	assert.Equal(t, want, buf.String())
}

func TestRenderTextPassingVerbose(t *testing.T) {
	restoreColor := disableColor(t)
	defer restoreColor()

	r := Compose("daily_orders", false, cleanEval(), nil)

	var buf bytes.Buffer
	RenderText(&buf, r, true)

	want := `✓ daily_orders
    temporal filter: order_date BETWEEN (@start_date, @end_date)
`
	assert.Equal(t, want, buf.String())
}

func TestRenderTextMalformed(t *testing.T) {
	restoreColor := disableColor(t)
	defer restoreColor()

	var buf bytes.Buffer
	RenderText(&buf, Malformed("broken", errors.New("decode: unexpected EOF")), false)

	assert.Equal(t, "! broken\n    malformed: decode: unexpected EOF\n", buf.String())
}

func TestRenderTextExemptMarker(t *testing.T) {
	restoreColor := disableColor(t)
	defer restoreColor()

	eval := policy.EvalResult{WhereFound: true, TemporalFilterFound: true, TenantScoped: true}
	r := Compose("qa_unfiltered_probe", true, eval, nil)

	var buf bytes.Buffer
	RenderText(&buf, r, false)

	assert.Equal(t, "✓ qa_unfiltered_probe (exempt)\n", buf.String())
}

func TestRenderSummaryCounts(t *testing.T) {
	restoreColor := disableColor(t)
	defer restoreColor()

	var buf bytes.Buffer
	RenderSummary(&buf, Summary{Total: 5, Passed: 3, Failed: 2, Exempt: 1, Malformed: 1})

	out := buf.String()
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "2")
}
