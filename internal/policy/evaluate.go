package policy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/calderdata/intentgate/internal/sqlscan"
)

// Rule violation codes (G101-G502). Finding strings are prefixed with
// their code so reports and scenario assertions can recover it.
const (
	ErrNoWhere          = "G101" // template has no WHERE clause
	ErrNoTemporalFilter = "G102" // no parameterized temporal filter
	ErrHardcodedDate    = "G103" // date predicate bound to a literal
	ErrNoTenantScope    = "G104" // tenant_id equality predicate missing
	ErrWildcard         = "G201" // wildcard projection
	ErrJoin             = "G202" // join between tables
	ErrDynamicSQL       = "G203" // dynamic SQL construct
	ErrParamConcat      = "G204" // parameter concatenated into a string
	ErrActionNotAllowed = "G301" // action outside the allow list
	ErrActionDenied     = "G302" // action on the deny list
	ErrRowLimitExceeded = "G401" // LIMIT/TOP literal above the policy limit
	ErrNoRowBound       = "G402" // no row-bounding construct at all
	ErrWindowTooWide    = "G501" // window default above max_window_days
	ErrFutureAsOf       = "G502" // literal as-of default forbidden
)

// ActionViolation is one allow/deny list hit.
type ActionViolation struct {
	Action  sqlscan.Action `json:"action"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Count   int            `json:"count,omitempty"`
}

// EvalResult carries every policy finding for one template. Check
// categories are independent: each reports everything it found.
type EvalResult struct {
	WhereFound          bool
	TemporalFilterFound bool
	Filters             []sqlscan.TemporalFilter
	TenantScoped        bool
	ActionViolations    []ActionViolation
	RowLimitViolations  []string
	InjectionFindings   []string
	WindowViolations    []string
}

// Input is one template's scan material. Stripped is the comment-free
// text; Raw keeps comments so documentation markers and commented-out
// statements stay visible to the checks that want them.
type Input struct {
	TemplateID string
	Raw        string
	Stripped   string
	Defaults   map[string]any
	Exempt     bool
}

// Evaluate applies the hard rules and the document's configured rules to
// one template. Exempt templates skip the temporal, tenant, injection,
// and window categories (vacuously clean so the pass verdict composes)
// but are always held to the action and row-limit rules.
func Evaluate(doc *Document, in Input) EvalResult {
	var res EvalResult

	if in.Exempt {
		res.WhereFound = true
		res.TemporalFilterFound = true
		res.TenantScoped = true
	} else {
		_, res.WhereFound = sqlscan.WhereClause(in.Stripped)
		res.Filters = sqlscan.ExtractTemporalFilters(in.Stripped)
		res.TemporalFilterFound = len(res.Filters) > 0
		res.TenantScoped = sqlscan.HasTenantPredicate(in.Stripped)
		res.InjectionFindings = injectionFindings(in.Raw, in.Stripped)
		res.WindowViolations = windowViolations(doc, in.Defaults)
	}

	res.ActionViolations = actionViolations(doc, in.Raw, in.Stripped)
	res.RowLimitViolations = rowLimitViolations(doc, in.Raw, in.Stripped)

	return res
}

// injectionFindings scans the raw text for forbidden constructs and the
// stripped WHERE region for hardcoded date literals.
func injectionFindings(raw, stripped string) []string {
	var findings []string

	for _, c := range sqlscan.FindForbiddenConstructs(raw) {
		findings = append(findings, fmt.Sprintf("%s %s: %s", constructCode(c.Kind), constructLabel(c.Kind), c.Snippet))
	}
	for _, snippet := range sqlscan.FindHardcodedDateFilters(stripped) {
		findings = append(findings, fmt.Sprintf("%s hardcoded date literal: %s", ErrHardcodedDate, snippet))
	}

	return findings
}

func constructCode(kind sqlscan.ConstructKind) string {
	switch kind {
	case sqlscan.ConstructWildcard:
		return ErrWildcard
	case sqlscan.ConstructJoin:
		return ErrJoin
	case sqlscan.ConstructDynamicSQL:
		return ErrDynamicSQL
	case sqlscan.ConstructConcatParam:
		return ErrParamConcat
	}
	return ErrDynamicSQL
}

func constructLabel(kind sqlscan.ConstructKind) string {
	switch kind {
	case sqlscan.ConstructWildcard:
		return "wildcard projection"
	case sqlscan.ConstructJoin:
		return "join construct"
	case sqlscan.ConstructDynamicSQL:
		return "dynamic SQL construct"
	case sqlscan.ConstructConcatParam:
		return "parameter concatenation"
	}
	return string(kind)
}

// actionViolations applies the allow list to the raw text (a commented
// DELETE still counts) and the deny list to the stripped text with
// occurrence counts.
func actionViolations(doc *Document, raw, stripped string) []ActionViolation {
	var violations []ActionViolation

	if doc.AllowedActions != nil {
		allowed := make(map[sqlscan.Action]bool, len(doc.AllowedActions))
		for _, a := range doc.AllowedActions {
			allowed[a] = true
		}
		for _, a := range sqlscan.FindActions(raw) {
			if !allowed[a] {
				violations = append(violations, ActionViolation{
					Action:  a,
					Code:    ErrActionNotAllowed,
					Message: fmt.Sprintf("action %s is not in the allowed set", a),
				})
			}
		}
	}

	for _, a := range doc.DisallowedActions {
		count := sqlscan.CountActionOccurrences(stripped, a)
		if count > 0 {
			violations = append(violations, ActionViolation{
				Action:  a,
				Code:    ErrActionDenied,
				Message: fmt.Sprintf("disallowed action %s appears %d time(s)", a, count),
				Count:   count,
			})
		}
	}

	return violations
}

// rowLimitViolations enforces the literal row bound and, when the rule is
// active, requires some row-bounding construct: a LIMIT/TOP literal, an
// aggregation, or the documentation marker (markers live in comments, so
// the raw text is consulted).
func rowLimitViolations(doc *Document, raw, stripped string) []string {
	if doc.RowLimit == nil {
		return nil
	}
	limit := *doc.RowLimit

	bounds := sqlscan.FindRowBounds(stripped)
	var violations []string
	for _, b := range bounds {
		if b.Value > limit {
			violations = append(violations, fmt.Sprintf("%s %s %d exceeds row limit %d",
				ErrRowLimitExceeded, strings.ToUpper(b.Keyword), b.Value, limit))
		}
	}

	if len(bounds) == 0 && !sqlscan.HasAggregation(stripped) && !sqlscan.HasRowBoundMarker(raw) {
		violations = append(violations, fmt.Sprintf(
			"%s no LIMIT/TOP literal, aggregation, or application-controlled marker", ErrNoRowBound))
	}

	return violations
}

// windowViolations bounds the window-vocabulary defaults declared in the
// sidecar and, when configured, forbids literal as-of defaults so the
// as-of instant stays request-supplied.
func windowViolations(doc *Document, defaults map[string]any) []string {
	var violations []string

	if doc.MaxWindowDays != nil {
		max := *doc.MaxWindowDays
		for _, key := range sortedDefaultKeys(defaults) {
			if !sqlscan.IsWindowParam(key) {
				continue
			}
			days, ok := numericValue(defaults[key])
			if !ok {
				continue
			}
			if days > float64(max) || -days > float64(max) {
				violations = append(violations, fmt.Sprintf("%s default %s=%v exceeds max window of %d days",
					ErrWindowTooWide, key, defaults[key], max))
			}
		}
	}

	if doc.DisallowFutureAsOf != nil && *doc.DisallowFutureAsOf {
		for _, key := range sortedDefaultKeys(defaults) {
			if key == "as_of" || strings.HasPrefix(key, "as_of_") {
				violations = append(violations, fmt.Sprintf("%s default for %s must be request-supplied, not a literal",
					ErrFutureAsOf, key))
			}
		}
	}

	return violations
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func sortedDefaultKeys(defaults map[string]any) []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
