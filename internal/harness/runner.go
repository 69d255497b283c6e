package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/calderdata/intentgate/internal/gate"
	"github.com/calderdata/intentgate/internal/intent"
	"github.com/calderdata/intentgate/internal/policy"
	"github.com/calderdata/intentgate/internal/report"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Pass indicates every expectation matched.
	Pass bool `json:"pass"`

	// Report is the composed compliance report the expectations ran against.
	Report report.Report `json:"report"`

	// Failures lists the expectations that did not match.
	// Empty if Pass is true.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a passing result for a report.
func NewResult(rep report.Report) *Result {
	return &Result{
		Pass:     true,
		Report:   rep,
		Failures: []string{},
	}
}

// AddFailure records a failed expectation and marks the result as failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}

// Run executes a scenario through the gate pipeline and returns the result.
//
// A malformed policy aborts the run with an error, mirroring the gate's
// fatal policy handling. Template problems never abort: they surface in the
// report (malformed state or findings) where expectations can assert on them.
func Run(scenario *Scenario) (*Result, error) {
	doc, err := loadPolicy(scenario)
	if err != nil {
		return nil, err
	}

	in, err := buildIntent(scenario)
	if err != nil {
		return nil, err
	}

	g := gate.New(doc, gate.WithExemptSet(policy.NewExemptSet(scenario.Exempt...)))
	rep := g.CheckOne(in)

	result := NewResult(rep)
	result.checkExpectations(scenario.Expect)
	return result, nil
}

// checkExpectations compares the report against the scenario's expect
// clause. Nil fields are skipped; codes must match exactly when present.
func (r *Result) checkExpectations(expect ExpectClause) {
	if expect.Pass != nil && r.Report.Pass != *expect.Pass {
		r.AddFailure(fmt.Sprintf("pass = %v, want %v", r.Report.Pass, *expect.Pass))
	}
	if expect.TemporalFilterFound != nil && r.Report.TemporalFilterFound != *expect.TemporalFilterFound {
		r.AddFailure(fmt.Sprintf("temporal_filter_found = %v, want %v",
			r.Report.TemporalFilterFound, *expect.TemporalFilterFound))
	}
	if expect.TenantScoped != nil && r.Report.TenantScoped != *expect.TenantScoped {
		r.AddFailure(fmt.Sprintf("tenant_scoped = %v, want %v", r.Report.TenantScoped, *expect.TenantScoped))
	}
	if expect.Codes != nil {
		got := r.Report.Codes()
		want := append([]string(nil), expect.Codes...)
		sort.Strings(want)
		if !equalCodes(got, want) {
			r.AddFailure(fmt.Sprintf("codes = %v, want %v", got, want))
		}
	}
}

func equalCodes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// buildIntent assembles the in-memory intent a scenario describes. Broken
// file references abort the run; metadata that fails structural validation
// becomes the malformed report state, exactly as it would loading from disk.
func buildIntent(s *Scenario) (intent.Intent, error) {
	in := intent.Intent{
		Template: intent.Template{
			ID:   s.Template.ID,
			Path: s.Template.ID + intent.TemplateExt,
		},
	}

	if s.Template.SQLFile != "" {
		data, err := os.ReadFile(s.Template.SQLFile)
		if err != nil {
			return intent.Intent{}, fmt.Errorf("read template: %w", err)
		}
		in.SQL = string(data)
	} else {
		in.SQL = s.Template.SQL
	}

	var sidecar []byte
	switch {
	case s.Template.MetadataFile != "":
		data, err := os.ReadFile(s.Template.MetadataFile)
		if err != nil {
			return intent.Intent{}, fmt.Errorf("read metadata: %w", err)
		}
		sidecar = data
		in.MetaPath = s.Template.MetadataFile
	case s.Template.Metadata != nil:
		data, err := json.Marshal(s.Template.Metadata)
		if err != nil {
			return intent.Intent{}, fmt.Errorf("encode inline metadata: %w", err)
		}
		sidecar = data
	}

	if sidecar != nil {
		meta, err := intent.ParseMetadata(sidecar)
		if err != nil {
			in.Err = fmt.Errorf("metadata: %w", err)
			return in, nil
		}
		in.Meta = meta
	}

	return in, nil
}

// loadPolicy resolves the scenario's policy document, nil when none is
// configured.
func loadPolicy(s *Scenario) (*policy.Document, error) {
	switch {
	case s.PolicyFile != "":
		return policy.Load(s.PolicyFile)
	case s.Policy != nil:
		data, err := json.Marshal(s.Policy)
		if err != nil {
			return nil, fmt.Errorf("encode inline policy: %w", err)
		}
		doc, err := policy.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("inline policy: %w", err)
		}
		return doc, nil
	}
	return nil, nil
}
