package sqlscan

import (
	"regexp"
	"strings"
)

// TemporalFilter is a WHERE-clause predicate over a date column that binds
// at least one date-related parameter.
type TemporalFilter struct {
	Column     string   `json:"column"`
	Operator   string   `json:"operator"`
	Parameters []string `json:"parameters"`
	Raw        string   `json:"raw"`
}

// OpBetween and OpIn name the range operators; comparison filters carry the
// operator token itself (=, >=, <=, >, <).
const (
	OpBetween = "BETWEEN"
	OpIn      = "IN"
)

// The column term of a predicate may be wrapped in a single cast:
// CAST(as_of_date AS DATE) BETWEEN ... is the form the AR templates use.
const columnTerm = `(?:CAST\s*\(\s*)?([A-Za-z_][A-Za-z0-9_]*)(?:\s+AS\s+[A-Za-z0-9_]+\s*\))?`

var (
	wherePattern   = regexp.MustCompile(`(?i)\bWHERE\b`)
	betweenPattern = regexp.MustCompile(`(?i)\b` + columnTerm + `\s+BETWEEN\s+`)
	inPattern      = regexp.MustCompile(`(?i)\b` + columnTerm + `\s+IN\s*\(`)
	comparePattern = regexp.MustCompile(`(?i)\b` + columnTerm + `\s*(>=|<=|=|>|<)\s*`)
	tenantPattern  = regexp.MustCompile(`(?i)\btenant_id\s*=\s*@[A-Za-z_][A-Za-z0-9_]*`)
	quotedLiteral  = regexp.MustCompile(`'[^']*'`)
)

// boundaryWords terminate an expression span at paren depth zero.
var boundaryWords = map[string]bool{
	"AND":     true,
	"OR":      true,
	"GROUP":   true,
	"ORDER":   true,
	"HAVING":  true,
	"LIMIT":   true,
	"UNION":   true,
	"QUALIFY": true,
}

// WhereClause returns the text following the first WHERE keyword and whether
// one exists. All temporal and tenant checks are scoped to this region.
func WhereClause(text string) (string, bool) {
	loc := wherePattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[1]:], true
}

// HasTenantPredicate reports whether the WHERE region binds tenant_id to a
// parameter with an equality predicate (tenant_id = @ident).
func HasTenantPredicate(text string) bool {
	where, ok := WhereClause(text)
	if !ok {
		return false
	}
	return tenantPattern.MatchString(where)
}

// ExtractTemporalFilters returns the valid temporal filters in the WHERE
// region of comment-stripped text, scanned in BETWEEN, IN, comparison order.
// A candidate is valid when it references at least one parameter and every
// referenced parameter is date-related. Overlapping candidates are all
// reported; nothing de-duplicates them.
func ExtractTemporalFilters(text string) []TemporalFilter {
	var out []TemporalFilter
	for _, c := range temporalCandidates(text) {
		if len(c.params) == 0 || !allDateParams(c.params) {
			continue
		}
		out = append(out, TemporalFilter{
			Column:     c.column,
			Operator:   c.operator,
			Parameters: c.params,
			Raw:        c.raw,
		})
	}
	return out
}

// FindHardcodedDateFilters returns the raw text of date-column predicates
// that compare against a quoted literal and bind no parameter at all, such
// as order_date = '2024-01-01'. These defeat windowed execution and are
// flagged by policy evaluation.
func FindHardcodedDateFilters(text string) []string {
	var out []string
	for _, c := range temporalCandidates(text) {
		if len(c.params) == 0 && quotedLiteral.MatchString(c.expr) {
			out = append(out, c.raw)
		}
	}
	return out
}

// candidate is a date-column predicate before validity classification.
type candidate struct {
	column   string
	operator string
	expr     string
	raw      string
	params   []string
}

func temporalCandidates(text string) []candidate {
	where, ok := WhereClause(text)
	if !ok {
		return nil
	}
	var out []candidate
	out = append(out, betweenCandidates(where)...)
	out = append(out, inCandidates(where)...)
	out = append(out, compareCandidates(where)...)
	return out
}

func betweenCandidates(where string) []candidate {
	var out []candidate
	for _, m := range betweenPattern.FindAllStringSubmatchIndex(where, -1) {
		col, ok := dateColumnAt(where, m[2], m[3])
		if !ok {
			continue
		}
		rest := where[m[1]:]
		lowEnd, word, wordEnd := scanExpr(rest)
		if word != "AND" {
			continue
		}
		highLen, _, _ := scanExpr(rest[wordEnd:])
		low := strings.TrimSpace(rest[:lowEnd])
		high := strings.TrimSpace(rest[wordEnd : wordEnd+highLen])
		if low == "" || high == "" {
			continue
		}
		expr := low + " " + high
		out = append(out, candidate{
			column:   col,
			operator: OpBetween,
			expr:     expr,
			raw:      strings.TrimSpace(where[m[0] : m[1]+wordEnd+highLen]),
			params:   FindParams(expr),
		})
	}
	return out
}

func inCandidates(where string) []candidate {
	var out []candidate
	for _, m := range inPattern.FindAllStringSubmatchIndex(where, -1) {
		col, ok := dateColumnAt(where, m[2], m[3])
		if !ok {
			continue
		}
		rest := where[m[1]:]
		closing, ok := parenSpan(rest)
		if !ok {
			continue
		}
		list := strings.TrimSpace(rest[:closing])
		if list == "" {
			continue
		}
		out = append(out, candidate{
			column:   col,
			operator: OpIn,
			expr:     list,
			raw:      strings.TrimSpace(where[m[0] : m[1]+closing+1]),
			params:   FindParams(list),
		})
	}
	return out
}

func compareCandidates(where string) []candidate {
	var out []candidate
	for _, m := range comparePattern.FindAllStringSubmatchIndex(where, -1) {
		col, ok := dateColumnAt(where, m[2], m[3])
		if !ok {
			continue
		}
		op := where[m[4]:m[5]]
		rest := where[m[1]:]
		end, _, _ := scanExpr(rest)
		expr := strings.TrimSpace(rest[:end])
		if expr == "" {
			continue
		}
		out = append(out, candidate{
			column:   col,
			operator: op,
			expr:     expr,
			raw:      strings.TrimSpace(where[m[0] : m[1]+end]),
			params:   FindParams(expr),
		})
	}
	return out
}

// dateColumnAt validates the captured column term: it must carry a date
// suffix and must not be a parameter reference.
func dateColumnAt(where string, start, end int) (string, bool) {
	if start < 0 {
		return "", false
	}
	if start > 0 && where[start-1] == '@' {
		return "", false
	}
	col := strings.ToLower(where[start:end])
	if !hasDateSuffix(col) {
		return "", false
	}
	return col, true
}

// scanExpr walks text from its start and returns the end index of the
// expression, together with the boundary word that terminated it ("" when
// the span ran to a semicolon, an unbalanced closing paren, or the end of
// input) and the index just past that word. Boundary words only count at
// paren depth zero.
func scanExpr(text string) (exprEnd int, boundary string, boundaryEnd int) {
	depth := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth == 0 {
				return i, "", i
			}
			depth--
			i++
		case c == ';' && depth == 0:
			return i, "", i
		case isWordStart(c) && (i == 0 || !isWordByte(text[i-1])):
			j := i
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			if depth == 0 {
				w := strings.ToUpper(text[i:j])
				if boundaryWords[w] {
					return i, w, j
				}
			}
			i = j
		default:
			i++
		}
	}
	return len(text), "", len(text)
}

// parenSpan returns the index of the closing paren matching an already
// consumed opening paren.
func parenSpan(text string) (int, bool) {
	depth := 1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func allDateParams(params []string) bool {
	for _, p := range params {
		if !IsDateParam(p) {
			return false
		}
	}
	return true
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
