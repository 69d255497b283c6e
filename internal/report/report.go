// Package report assembles per-template compliance reports and the run
// summary. It is pure aggregation: every finding is produced elsewhere
// and combined here into the single verdict callers consume.
package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/calderdata/intentgate/internal/canonical"
	"github.com/calderdata/intentgate/internal/contract"
	"github.com/calderdata/intentgate/internal/policy"
	"github.com/calderdata/intentgate/internal/sqlscan"
)

// Report is the authoritative per-template verdict. Pass is true iff the
// template is clean on every check that applies to it; for exempt
// templates the bypassed categories are vacuously clean, so only the
// action and row-limit rules can fail them.
type Report struct {
	TemplateID          string                   `json:"template_id"`
	Exempt              bool                     `json:"exempt"`
	WhereFound          bool                     `json:"where_found"`
	TemporalFilterFound bool                     `json:"temporal_filter_found"`
	FiltersFound        []sqlscan.TemporalFilter `json:"filters_found"`
	TenantScoped        bool                     `json:"tenant_scoped"`
	ActionViolations    []policy.ActionViolation `json:"action_violations"`
	RowLimitViolations  []string                 `json:"row_limit_violations"`
	InjectionFindings   []string                 `json:"injection_findings"`
	WindowViolations    []string                 `json:"window_violations"`
	ContractViolations  []contract.Violation     `json:"contract_violations"`
	Error               string                   `json:"error,omitempty"`
	Pass                bool                     `json:"pass"`
}

// Compose combines one template's policy evaluation and contract
// validation into its report and computes the verdict.
func Compose(templateID string, exempt bool, eval policy.EvalResult, contractViolations []contract.Violation) Report {
	r := Report{
		TemplateID:          templateID,
		Exempt:              exempt,
		WhereFound:          eval.WhereFound,
		TemporalFilterFound: eval.TemporalFilterFound,
		FiltersFound:        eval.Filters,
		TenantScoped:        eval.TenantScoped,
		ActionViolations:    eval.ActionViolations,
		RowLimitViolations:  eval.RowLimitViolations,
		InjectionFindings:   eval.InjectionFindings,
		WindowViolations:    eval.WindowViolations,
		ContractViolations:  contractViolations,
	}
	r.normalize()
	r.Pass = r.TemporalFilterFound &&
		r.TenantScoped &&
		len(r.ActionViolations) == 0 &&
		len(r.RowLimitViolations) == 0 &&
		len(r.InjectionFindings) == 0 &&
		len(r.WindowViolations) == 0 &&
		len(r.ContractViolations) == 0
	return r
}

// Malformed builds the report for a template the gate could not read or
// decode. No partial check results are reported for it.
func Malformed(templateID string, err error) Report {
	r := Report{TemplateID: templateID, Error: err.Error()}
	r.normalize()
	return r
}

// normalize pins every sequence to empty-not-null so serialized reports
// are byte-identical regardless of how the findings were produced.
func (r *Report) normalize() {
	if r.FiltersFound == nil {
		r.FiltersFound = []sqlscan.TemporalFilter{}
	}
	if r.ActionViolations == nil {
		r.ActionViolations = []policy.ActionViolation{}
	}
	if r.RowLimitViolations == nil {
		r.RowLimitViolations = []string{}
	}
	if r.InjectionFindings == nil {
		r.InjectionFindings = []string{}
	}
	if r.WindowViolations == nil {
		r.WindowViolations = []string{}
	}
	if r.ContractViolations == nil {
		r.ContractViolations = []contract.Violation{}
	}
}

// IsMalformed reports the distinct error state: the template was
// unreadable or its sidecar undecodable, and no checks ran.
func (r Report) IsMalformed() bool {
	return r.Error != ""
}

var codeToken = regexp.MustCompile(`^[GC][0-9]{3}$`)

// Codes derives the failing rule identifiers from the report state,
// sorted and de-duplicated. Malformed reports carry no codes: nothing
// was checked.
func (r Report) Codes() []string {
	if r.IsMalformed() {
		return nil
	}

	set := make(map[string]bool)
	if !r.Exempt {
		if !r.WhereFound {
			set[policy.ErrNoWhere] = true
		} else if !r.TemporalFilterFound {
			set[policy.ErrNoTemporalFilter] = true
		}
		if !r.TenantScoped {
			set[policy.ErrNoTenantScope] = true
		}
	}
	for _, v := range r.ActionViolations {
		set[v.Code] = true
	}
	for _, findings := range [][]string{r.RowLimitViolations, r.InjectionFindings, r.WindowViolations} {
		for _, f := range findings {
			if fields := strings.Fields(f); len(fields) > 0 && codeToken.MatchString(fields[0]) {
				set[fields[0]] = true
			}
		}
	}
	for _, v := range r.ContractViolations {
		set[v.Code] = true
	}

	if len(set) == 0 {
		return nil
	}
	codes := make([]string, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// MarshalCanonical serializes the report as canonical JSON: identical
// report values always produce identical bytes.
func (r Report) MarshalCanonical() ([]byte, error) {
	return canonical.Marshal(r)
}

// Summary aggregates a gate run. Malformed counts the subset of failed
// reports that never got checked.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Exempt    int `json:"exempt"`
	Malformed int `json:"malformed"`
}

// Aggregate counts verdicts. Callers keep reports ordered by template id;
// aggregation itself is order-independent.
func Aggregate(reports []Report) Summary {
	s := Summary{Total: len(reports)}
	for _, r := range reports {
		if r.Pass {
			s.Passed++
		} else {
			s.Failed++
		}
		if r.Exempt {
			s.Exempt++
		}
		if r.IsMalformed() {
			s.Malformed++
		}
	}
	return s
}

// FailuresBlockRun reports whether any non-exempt template failed: the
// condition that turns a gate run into a non-zero exit.
func FailuresBlockRun(reports []Report) bool {
	for _, r := range reports {
		if !r.Pass && !r.Exempt {
			return true
		}
	}
	return false
}
