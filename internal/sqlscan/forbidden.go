package sqlscan

import (
	"regexp"
	"strings"
)

// ConstructKind classifies a construct the gate rejects outright.
type ConstructKind string

const (
	ConstructWildcard    ConstructKind = "wildcard_projection"
	ConstructJoin        ConstructKind = "join"
	ConstructDynamicSQL  ConstructKind = "dynamic_sql"
	ConstructConcatParam ConstructKind = "param_concatenation"
)

// Construct is one forbidden-construct match with its offending snippet.
type Construct struct {
	Kind    ConstructKind `json:"kind"`
	Snippet string        `json:"snippet"`
}

// Forbidden constructs are matched against the RAW template text, comments
// included: a wildcard or EXEC hiding in a comment is still grounds for a
// human to look at the template before it ships.
var forbiddenPatterns = []struct {
	kind    ConstructKind
	pattern *regexp.Regexp
}{
	{ConstructWildcard, regexp.MustCompile(`(?i)\bSELECT\s+(?:[A-Za-z_][A-Za-z0-9_]*\s*\.\s*)?\*`)},
	{ConstructJoin, regexp.MustCompile(`(?i)\bJOIN\b`)},
	{ConstructDynamicSQL, regexp.MustCompile(`(?i)\bEXEC\s*\(|\bEXECUTE\s*\(|\bEXECUTE\s+IMMEDIATE\b|\bsp_executesql\b`)},
	{ConstructConcatParam, regexp.MustCompile(`(?i)\|\|\s*@[A-Za-z_]|@[A-Za-z0-9_]+\s*\|\||'\s*\+\s*@[A-Za-z_]|@[A-Za-z0-9_]+\s*\+\s*'|\bCONCAT\s*\([^)]*@`)},
}

// FindForbiddenConstructs scans raw template text for wildcard projections,
// joins, dynamic SQL, and parameter concatenation. Matches are conservative
// flags, not proofs: anything matched is reported.
func FindForbiddenConstructs(text string) []Construct {
	var out []Construct
	for _, fp := range forbiddenPatterns {
		for _, m := range fp.pattern.FindAllString(text, -1) {
			out = append(out, Construct{Kind: fp.kind, Snippet: strings.TrimSpace(m)})
		}
	}
	return out
}
