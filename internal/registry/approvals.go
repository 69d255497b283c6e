package registry

import (
	"context"
	"database/sql"
	"fmt"
)

// Approval is one recorded gate pass for a template revision.
type Approval struct {
	TemplateID    string `json:"template_id"`
	Fingerprint   string `json:"fingerprint"`
	PolicyVersion string `json:"policy_version"`
	RunID         string `json:"run_id"`
	Report        string `json:"report"`
	RecordedAt    string `json:"recorded_at"`
}

// WriteApproval inserts an approval record.
// Uses ON CONFLICT DO NOTHING for idempotency: re-registering the same
// (template_id, fingerprint) pair is silently ignored. Returns whether a new
// row was actually inserted.
func (r *Registry) WriteApproval(ctx context.Context, a Approval) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO approvals
		(template_id, fingerprint, policy_version, run_id, report, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(template_id, fingerprint) DO NOTHING
	`,
		a.TemplateID,
		a.Fingerprint,
		a.PolicyVersion,
		a.RunID,
		a.Report,
		a.RecordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("write approval: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write approval: rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Has reports whether an approval exists for the given revision.
func (r *Registry) Has(ctx context.Context, templateID, fingerprint string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM approvals
		WHERE template_id = ? AND fingerprint = ?
	`, templateID, fingerprint).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check approval: %w", err)
	}
	return count > 0, nil
}

// List returns every approval with deterministic ordering.
// Returns an empty slice (not nil) when the registry is empty.
func (r *Registry) List(ctx context.Context) ([]Approval, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT template_id, fingerprint, policy_version, run_id, report, recorded_at
		FROM approvals
		ORDER BY template_id ASC, fingerprint COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	return collectApprovals(rows)
}

// Get returns all approvals recorded for one template, oldest revision first.
// Returns an empty slice (not nil) when none exist.
func (r *Registry) Get(ctx context.Context, templateID string) ([]Approval, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT template_id, fingerprint, policy_version, run_id, report, recorded_at
		FROM approvals
		WHERE template_id = ?
		ORDER BY recorded_at ASC, fingerprint COLLATE BINARY ASC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("query approvals for %s: %w", templateID, err)
	}
	defer rows.Close()

	return collectApprovals(rows)
}

func collectApprovals(rows *sql.Rows) ([]Approval, error) {
	approvals := []Approval{}
	for rows.Next() {
		var a Approval
		if err := rows.Scan(
			&a.TemplateID,
			&a.Fingerprint,
			&a.PolicyVersion,
			&a.RunID,
			&a.Report,
			&a.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}

	return approvals, nil
}
