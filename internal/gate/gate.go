// Package gate drives the compliance pipeline over a batch of intents.
//
// For each intent the gate strips comments, evaluates the policy rules,
// validates the metadata contract, and composes one report. Evaluation never
// fails fast: every intent yields a report, and per-intent load problems
// (unreadable template, undecodable sidecar) surface as malformed report
// states rather than run errors.
package gate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/calderdata/intentgate/internal/contract"
	"github.com/calderdata/intentgate/internal/intent"
	"github.com/calderdata/intentgate/internal/policy"
	"github.com/calderdata/intentgate/internal/report"
	"github.com/calderdata/intentgate/internal/sqlscan"
)

// Gate evaluates intents against a policy document.
//
// Check fans evaluation out across a bounded worker pool. Results are
// assigned by input index, so the output order matches the input order no
// matter how the workers interleave.
type Gate struct {
	doc    *policy.Document
	exempt policy.ExemptSet
	jobs   int
}

// Option configures a Gate.
type Option func(*Gate)

// WithJobs caps the number of concurrent evaluations.
// Values below 1 are treated as 1.
func WithJobs(n int) Option {
	return func(g *Gate) {
		if n < 1 {
			n = 1
		}
		g.jobs = n
	}
}

// WithExemptSet replaces the default exemption set (the built-in
// negative-path fixtures with no extra identifiers).
func WithExemptSet(set policy.ExemptSet) Option {
	return func(g *Gate) {
		g.exempt = set
	}
}

// New creates a Gate for the given policy document. A nil document enforces
// no policy rules; structural and contract checks still run.
func New(doc *policy.Document, opts ...Option) *Gate {
	if doc == nil {
		doc = &policy.Document{}
	}
	g := &Gate{
		doc:    doc,
		exempt: policy.NewExemptSet(),
		jobs:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates every intent and returns one report per intent, in input
// order. The only error is context cancellation; per-intent problems are
// reported, never returned.
func (g *Gate) Check(ctx context.Context, intents []intent.Intent) ([]report.Report, error) {
	reports := make([]report.Report, len(intents))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs)

	for i, in := range intents {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = g.CheckOne(in)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// CheckOne runs the full pipeline for a single intent.
func (g *Gate) CheckOne(in intent.Intent) report.Report {
	if in.Err != nil {
		return report.Malformed(in.ID, in.Err)
	}

	exempt := g.exempt.Contains(in.ID)

	var defaults map[string]any
	if in.Meta != nil {
		defaults = in.Meta.Defaults
	}

	eval := policy.Evaluate(g.doc, policy.Input{
		TemplateID: in.ID,
		Raw:        in.SQL,
		Stripped:   sqlscan.Strip(in.SQL),
		Defaults:   defaults,
		Exempt:     exempt,
	})

	// Exempt templates bypass the contract entirely; for everyone else a
	// missing sidecar is a normal failure, not a malformed state.
	var violations []contract.Violation
	if !exempt {
		if in.Meta == nil {
			violations = append(violations, contract.MissingSidecar())
		} else {
			violations = contract.Validate(in.Meta)
			violations = append(violations, contract.ValidateIdentity(in.Meta, in.ID)...)
		}
	}

	return report.Compose(in.ID, exempt, eval, violations)
}
