// Package intent loads SQL query templates and their metadata sidecars from
// disk. A template is a <stem>.sql.tmpl file using @name parameter markers;
// its sidecar is <stem>.meta.json. The pair is the unit the gate evaluates
// and, on success, registers for execution by the downstream query service.
package intent

import "sort"

// Template is the SQL half of an intent. ID is the file stem.
type Template struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	SQL  string `json:"sql"`
}

// Metadata is the decoded sidecar contract for a template.
type Metadata struct {
	TemplateID       string            `json:"template_id"`
	RequiredFilters  []string          `json:"required_filters"`
	ProjectedColumns []string          `json:"projected_columns"`
	Partitions       []string          `json:"partitions"`
	Defaults         map[string]any    `json:"defaults"`
	ParamFormats     map[string]string `json:"param_formats"`
	OutputSchema     map[string]string `json:"output_schema"`
	ParquetViews     map[string]string `json:"parquet_views"`

	// Raw retains the undecoded document for legacy-key checks and
	// fingerprinting. Number values stay json.Number.
	Raw map[string]any `json:"-"`
}

// DeclaredSchemaKeys returns the output_schema keys in sorted order: the
// fields a consuming system expects to read back.
func (m *Metadata) DeclaredSchemaKeys() []string {
	keys := make([]string, 0, len(m.OutputSchema))
	for k := range m.OutputSchema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Intent pairs a template with its sidecar.
type Intent struct {
	Template
	Meta     *Metadata `json:"metadata,omitempty"`
	MetaPath string    `json:"metadata_path,omitempty"`

	// Err is the malformed-input state: an unreadable template, an
	// undecodable sidecar, or a sidecar failing structural validation.
	// A malformed intent skips evaluation and reports as failed. A simply
	// MISSING sidecar is not malformed; it surfaces as a contract violation.
	Err error `json:"-"`
}
