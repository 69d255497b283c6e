package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one gate conformance scenario: a template (with optional
// metadata sidecar), an optional policy, and the expected verdict.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Template is the intent under test.
	Template TemplateSpec `yaml:"template"`

	// Policy is an inline policy document. Mutually exclusive with
	// PolicyFile; when neither is set, no policy rules are enforced.
	Policy map[string]any `yaml:"policy,omitempty"`

	// PolicyFile is a path to a policy JSON file, relative to the
	// scenario file.
	PolicyFile string `yaml:"policy_file,omitempty"`

	// Exempt lists extra template identifiers to exempt, on top of the
	// built-in negative-path fixtures.
	Exempt []string `yaml:"exempt,omitempty"`

	// Expect holds the assertions checked against the composed report.
	Expect ExpectClause `yaml:"expect"`
}

// TemplateSpec describes the template side of a scenario. SQL and metadata
// may be inline or referenced by file path (relative to the scenario file).
type TemplateSpec struct {
	// ID is the template identifier (the file stem a loader would derive).
	ID string `yaml:"id"`

	// SQL is the inline template text. Mutually exclusive with SQLFile.
	SQL string `yaml:"sql,omitempty"`

	// SQLFile is a path to a .sql.tmpl file.
	SQLFile string `yaml:"sql_file,omitempty"`

	// Metadata is the inline sidecar document. Mutually exclusive with
	// MetadataFile; when neither is set the template has no sidecar.
	Metadata map[string]any `yaml:"metadata,omitempty"`

	// MetadataFile is a path to a .meta.json sidecar.
	MetadataFile string `yaml:"metadata_file,omitempty"`
}

// ExpectClause specifies the expected report state. Nil fields are not
// checked, so scenarios assert only what they care about. Codes, when
// present (an empty list counts), must match the report's derived codes
// exactly.
type ExpectClause struct {
	Pass                *bool    `yaml:"pass,omitempty"`
	TemporalFilterFound *bool    `yaml:"temporal_filter_found,omitempty"`
	TenantScoped        *bool    `yaml:"tenant_scoped,omitempty"`
	Codes               []string `yaml:"codes,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. File references
// (sql_file, metadata_file, policy_file) are resolved relative to the
// scenario file's directory. Returns an error if the file is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Template.SQLFile = resolvePath(base, scenario.Template.SQLFile)
	scenario.Template.MetadataFile = resolvePath(base, scenario.Template.MetadataFile)
	scenario.PolicyFile = resolvePath(base, scenario.PolicyFile)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Template.ID == "" {
		return fmt.Errorf("template.id is required")
	}

	hasSQL := s.Template.SQL != ""
	hasSQLFile := s.Template.SQLFile != ""
	if hasSQL == hasSQLFile {
		return fmt.Errorf("template: exactly one of sql or sql_file is required")
	}

	if s.Template.Metadata != nil && s.Template.MetadataFile != "" {
		return fmt.Errorf("template: metadata and metadata_file are mutually exclusive")
	}

	if s.Policy != nil && s.PolicyFile != "" {
		return fmt.Errorf("policy and policy_file are mutually exclusive")
	}

	e := s.Expect
	if e.Pass == nil && e.TemporalFilterFound == nil && e.TenantScoped == nil && e.Codes == nil {
		return fmt.Errorf("expect: at least one expectation is required")
	}

	// Referenced files must exist at load time so a typo fails the
	// scenario rather than masquerading as a malformed template.
	for _, ref := range []string{s.Template.SQLFile, s.Template.MetadataFile, s.PolicyFile} {
		if ref == "" {
			continue
		}
		if _, err := os.Stat(ref); os.IsNotExist(err) {
			return fmt.Errorf("referenced file not found: %s", ref)
		}
	}

	return nil
}
