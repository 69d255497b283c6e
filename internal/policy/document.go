// Package policy loads and evaluates gate policy documents. A policy is
// a JSON file validated against an embedded CUE schema. A document that
// fails to load is fatal to the whole run, never a per-template finding.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/calderdata/intentgate/internal/sqlscan"
)

//go:embed schema.cue
var schemaCUE string

// Document is a normalized policy: flat rule values merged over
// query_behavior, action lists canonicalized to upper case. Nil pointers
// and nil slices mean the rule is absent and not enforced; an empty
// non-nil allow list is enforced and allows nothing.
type Document struct {
	Version            string
	AllowedActions     []sqlscan.Action
	DisallowedActions  []sqlscan.Action
	RowLimit           *int
	MaxWindowDays      *int
	DisallowFutureAsOf *bool
}

// ruleSet mirrors the recognized rule keys of the document. Only the
// top-level rules object may carry query_behavior; the schema rejects
// deeper nesting.
type ruleSet struct {
	AllowedActions     []string `json:"allowed_actions"`
	DisallowedActions  []string `json:"disallowed_actions"`
	RowLimit           *int     `json:"row_limit"`
	MaxWindowDays      *int     `json:"max_window_days"`
	DisallowFutureAsOf *bool    `json:"disallow_future_as_of"`
	QueryBehavior      *ruleSet `json:"query_behavior"`
}

type policyFile struct {
	Version string  `json:"version"`
	Rules   ruleSet `json:"rules"`
}

// Load reads, validates, and normalizes a policy file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return doc, nil
}

// Parse validates a policy document against the embedded schema and
// normalizes it. Every defect in the document is a hard error: the gate
// never evaluates templates against a policy it only partly understood.
func Parse(data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile policy schema: %w", err)
	}

	expr, err := cuejson.Extract("policy.json", data)
	if err != nil {
		return nil, cueError("parse", err)
	}
	val := ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return nil, cueError("parse", err)
	}

	if !val.LookupPath(cue.ParsePath("rules")).Exists() {
		return nil, fmt.Errorf("policy must carry a rules object")
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError("validate", err)
	}

	var file policyFile
	if err := unified.Decode(&file); err != nil {
		return nil, cueError("decode", err)
	}

	// A present-but-empty action list enforces the rule (nothing is
	// allowed); only a truly absent key disables it. Pin that
	// distinction from the document itself.
	presentList := func(list []string, path string) []string {
		if list == nil && val.LookupPath(cue.ParsePath(path)).Exists() {
			return []string{}
		}
		return list
	}
	file.Rules.AllowedActions = presentList(file.Rules.AllowedActions, "rules.allowed_actions")
	file.Rules.DisallowedActions = presentList(file.Rules.DisallowedActions, "rules.disallowed_actions")
	if qb := file.Rules.QueryBehavior; qb != nil {
		qb.AllowedActions = presentList(qb.AllowedActions, `rules.query_behavior.allowed_actions`)
		qb.DisallowedActions = presentList(qb.DisallowedActions, `rules.query_behavior.disallowed_actions`)
	}

	return normalize(&file)
}

// normalize merges the flat rule keys over query_behavior (flat wins)
// and canonicalizes action words.
func normalize(file *policyFile) (*Document, error) {
	flat := file.Rules
	nested := flat.QueryBehavior
	if nested == nil {
		nested = &ruleSet{}
	}

	doc := &Document{Version: file.Version}

	var err error
	if doc.AllowedActions, err = canonicalActions("allowed_actions", pickList(flat.AllowedActions, nested.AllowedActions)); err != nil {
		return nil, err
	}
	if doc.DisallowedActions, err = canonicalActions("disallowed_actions", pickList(flat.DisallowedActions, nested.DisallowedActions)); err != nil {
		return nil, err
	}
	doc.RowLimit = pickInt(flat.RowLimit, nested.RowLimit)
	doc.MaxWindowDays = pickInt(flat.MaxWindowDays, nested.MaxWindowDays)
	doc.DisallowFutureAsOf = pickBool(flat.DisallowFutureAsOf, nested.DisallowFutureAsOf)

	return doc, nil
}

// canonicalActions upper-cases a policy action list and rejects words
// outside the action vocabulary. A nil list stays nil (rule absent); an
// empty list stays empty (rule enforced).
func canonicalActions(field string, words []string) ([]sqlscan.Action, error) {
	if words == nil {
		return nil, nil
	}
	actions := make([]sqlscan.Action, 0, len(words))
	for _, w := range words {
		a, ok := sqlscan.ParseAction(w)
		if !ok {
			return nil, fmt.Errorf("%s: unknown action word %q", field, w)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func pickList(flat, nested []string) []string {
	if flat != nil {
		return flat
	}
	return nested
}

func pickInt(flat, nested *int) *int {
	if flat != nil {
		return flat
	}
	return nested
}

func pickBool(flat, nested *bool) *bool {
	if flat != nil {
		return flat
	}
	return nested
}

// cueError flattens a CUE error list into one message. CUE reports every
// conflict it found; keeping them all mirrors the gate's own
// report-everything stance.
func cueError(stage string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %v", stage, err)
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return fmt.Errorf("%s: %s", stage, strings.Join(parts, "; "))
}
