// Package contract validates metadata sidecars against the publishing
// contract. Checks are purely structural: no template SQL is consulted
// except for the identity check against the file stem.
package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/calderdata/intentgate/internal/intent"
)

// Contract violation codes (C101-C122)
const (
	ErrTemplateIDFormat    = "C101" // template_id not lower_snake_case
	ErrLegacyNameKey       = "C102" // legacy name key present
	ErrPartitionScheme     = "C103" // partitions missing yyyy_mm
	ErrTenantFilterMissing = "C104" // required_filters lacks tenant_id
	ErrDateFilterMissing   = "C105" // required_filters lacks a date key
	ErrFilterProjected     = "C106" // required filter also projected
	ErrDefaultUndeclared   = "C107" // defaults key missing from param_formats
	ErrFilterUndeclared    = "C108" // required filter missing from param_formats
	ErrFormatUnused        = "C109" // param_formats key not referenced anywhere
	ErrFormatUnknown       = "C110" // descriptor names no known kind
	ErrDateFormatHint      = "C111" // date descriptor lacks a pattern hint
	ErrDefaultTypeMismatch = "C112" // default value type contradicts descriptor
	ErrLimitNotPositive    = "C113" // limit/count default must be positive
	ErrIntegerNegative     = "C114" // integer default must not be negative
	ErrPercentNegative     = "C115" // pct/percentage default must not be negative
	ErrSortCase            = "C116" // direction/sort/order default not upper-case
	ErrSchemaMismatch      = "C117" // output_schema and projected_columns differ
	ErrNoProjection        = "C118" // projected_columns empty
	ErrDuplicateColumn     = "C119" // duplicate projected column or partition
	ErrSidecarMissing      = "C120" // no metadata sidecar next to the template
	ErrIdentityMismatch    = "C121" // template_id differs from the file stem
	ErrViewInvalid         = "C122" // parquet view name or path invalid
)

// Violation represents a single contract violation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
}

var (
	lowerSnakePattern   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	sqlIdentPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	formatHintPattern   = regexp.MustCompile(`\(.+\)`)
	descriptorKinds     = []string{"decimal", "integer", "boolean", "string", "date", "array", "object"}
	monthlyPartitionKey = "yyyy_mm"
)

// MissingSidecar returns the violation the gate attaches when a template
// has no metadata sidecar on disk.
func MissingSidecar() Violation {
	return Violation{
		Field:   "metadata",
		Message: "metadata sidecar not found next to template",
		Code:    ErrSidecarMissing,
	}
}

// ValidateIdentity checks that the sidecar names the template it sits
// next to. The stem is the template file name without its extension.
func ValidateIdentity(meta *intent.Metadata, stem string) []Violation {
	if meta.TemplateID == stem {
		return nil
	}
	return []Violation{{
		Field:   "template_id",
		Message: fmt.Sprintf("template_id %q does not match template file stem %q", meta.TemplateID, stem),
		Code:    ErrIdentityMismatch,
	}}
}

// Validate checks a decoded sidecar against the publishing contract.
// Returns all violations found (does not fail-fast). The caller handles
// the missing-sidecar case; meta must be non-nil here.
func Validate(meta *intent.Metadata) []Violation {
	var errs []Violation

	// C101: template_id naming
	if !lowerSnakePattern.MatchString(meta.TemplateID) {
		errs = append(errs, Violation{
			Field:   "template_id",
			Message: fmt.Sprintf("template_id %q must be lower_snake_case", meta.TemplateID),
			Code:    ErrTemplateIDFormat,
		})
	}

	// C102: the legacy name key was replaced by template_id
	if _, ok := meta.Raw["name"]; ok {
		errs = append(errs, Violation{
			Field:   "name",
			Message: "legacy \"name\" key is no longer accepted, use template_id",
			Code:    ErrLegacyNameKey,
		})
	}

	errs = append(errs, validatePartitions(meta)...)
	errs = append(errs, validateFilters(meta)...)
	errs = append(errs, validateFormats(meta)...)
	errs = append(errs, validateDefaults(meta)...)
	errs = append(errs, validateProjection(meta)...)
	errs = append(errs, validateViews(meta)...)

	return errs
}

// validatePartitions enforces the monthly partition scheme.
func validatePartitions(meta *intent.Metadata) []Violation {
	var errs []Violation

	// C103: monthly partitioning is mandatory
	if !containsString(meta.Partitions, monthlyPartitionKey) {
		errs = append(errs, Violation{
			Field:   "partitions",
			Message: fmt.Sprintf("partitions must be non-empty and include %q", monthlyPartitionKey),
			Code:    ErrPartitionScheme,
		})
	}

	// C119: duplicate partition keys
	for _, dup := range duplicates(meta.Partitions) {
		errs = append(errs, Violation{
			Field:   "partitions",
			Message: fmt.Sprintf("duplicate partition key %q", dup),
			Code:    ErrDuplicateColumn,
		})
	}

	return errs
}

// validateFilters checks required_filters composition and the filter /
// projection boundary.
func validateFilters(meta *intent.Metadata) []Violation {
	var errs []Violation

	// C104: tenant scoping is mandatory for every template
	if !containsString(meta.RequiredFilters, "tenant_id") {
		errs = append(errs, Violation{
			Field:   "required_filters",
			Message: "required_filters must include tenant_id",
			Code:    ErrTenantFilterMissing,
		})
	}

	// C105: every template must be filterable by a date
	hasDate := false
	for _, f := range meta.RequiredFilters {
		if strings.Contains(f, "date") {
			hasDate = true
			break
		}
	}
	if !hasDate {
		errs = append(errs, Violation{
			Field:   "required_filters",
			Message: "required_filters must include at least one date key",
			Code:    ErrDateFilterMissing,
		})
	}

	// C106: a filter parameter can never also be a projected column
	projected := stringSet(meta.ProjectedColumns)
	for _, f := range meta.RequiredFilters {
		if projected[f] {
			errs = append(errs, Violation{
				Field:   "required_filters",
				Message: fmt.Sprintf("%q appears in both required_filters and projected_columns", f),
				Code:    ErrFilterProjected,
			})
		}
	}

	return errs
}

// validateFormats cross-checks param_formats against the keys it must
// declare and the keys it may declare.
func validateFormats(meta *intent.Metadata) []Violation {
	var errs []Violation

	// C107: every default needs a declared format
	for _, key := range sortedKeys(meta.Defaults) {
		if _, ok := meta.ParamFormats[key]; !ok {
			errs = append(errs, Violation{
				Field:   "defaults." + key,
				Message: fmt.Sprintf("default %q has no param_formats entry", key),
				Code:    ErrDefaultUndeclared,
			})
		}
	}

	// C108: every required filter needs a declared format
	for _, f := range meta.RequiredFilters {
		if _, ok := meta.ParamFormats[f]; !ok {
			errs = append(errs, Violation{
				Field:   "required_filters",
				Message: fmt.Sprintf("required filter %q has no param_formats entry", f),
				Code:    ErrFilterUndeclared,
			})
		}
	}

	known := stringSet(meta.RequiredFilters)
	for k := range meta.Defaults {
		known[k] = true
	}
	for _, c := range meta.ProjectedColumns {
		known[c] = true
	}

	for _, key := range sortedKeys(meta.ParamFormats) {
		desc := meta.ParamFormats[key]

		// C109: formats may only describe known keys
		if !known[key] {
			errs = append(errs, Violation{
				Field:   "param_formats." + key,
				Message: fmt.Sprintf("param_formats key %q is not a required filter, default, or projected column", key),
				Code:    ErrFormatUnused,
			})
		}

		kind, ok := descriptorKind(desc)
		if !ok {
			// C110: descriptor must name a kind
			errs = append(errs, Violation{
				Field:   "param_formats." + key,
				Message: fmt.Sprintf("descriptor %q names none of %s", desc, strings.Join(descriptorKinds, ", ")),
				Code:    ErrFormatUnknown,
			})
			continue
		}

		// C111: date descriptors document their pattern
		if kind == "date" && !formatHintPattern.MatchString(desc) {
			errs = append(errs, Violation{
				Field:   "param_formats." + key,
				Message: fmt.Sprintf("date descriptor %q must carry a pattern hint such as \"date (YYYY-MM-DD)\"", desc),
				Code:    ErrDateFormatHint,
			})
		}
	}

	return errs
}

// validateDefaults checks each default value against its descriptor and
// the name-based value rules.
func validateDefaults(meta *intent.Metadata) []Violation {
	var errs []Violation

	for _, key := range sortedKeys(meta.Defaults) {
		value := meta.Defaults[key]
		field := "defaults." + key

		// C112: value type must match the declared descriptor
		if desc, ok := meta.ParamFormats[key]; ok {
			if kind, ok := descriptorKind(desc); ok && !valueMatchesKind(value, kind) {
				errs = append(errs, Violation{
					Field:   field,
					Message: fmt.Sprintf("default %v does not match declared format %q", value, desc),
					Code:    ErrDefaultTypeMismatch,
				})
			}
		}

		switch v := value.(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				errs = append(errs, validateIntegerDefault(field, key, i)...)
			} else if f, err := v.Float64(); err == nil {
				errs = append(errs, validateDecimalDefault(field, key, f)...)
			}
		case string:
			errs = append(errs, validateStringDefault(field, key, v)...)
		}
	}

	return errs
}

func validateIntegerDefault(field, key string, v int64) []Violation {
	// C113: limits and counts of zero would return nothing by default
	if (strings.Contains(key, "limit") || strings.Contains(key, "count")) && v <= 0 {
		return []Violation{{
			Field:   field,
			Message: fmt.Sprintf("%q default must be positive, got %d", key, v),
			Code:    ErrLimitNotPositive,
		}}
	}

	// C114: deltas and offsets may point backwards, nothing else may
	if strings.Contains(key, "delta") || strings.Contains(key, "offset") {
		return nil
	}
	if v < 0 {
		return []Violation{{
			Field:   field,
			Message: fmt.Sprintf("%q default must not be negative, got %d", key, v),
			Code:    ErrIntegerNegative,
		}}
	}
	return nil
}

func validateDecimalDefault(field, key string, v float64) []Violation {
	// C115: percentages are never negative
	if (strings.Contains(key, "pct") || strings.Contains(key, "percentage")) && v < 0 {
		return []Violation{{
			Field:   field,
			Message: fmt.Sprintf("%q default must not be negative, got %v", key, v),
			Code:    ErrPercentNegative,
		}}
	}
	return nil
}

func validateStringDefault(field, key, v string) []Violation {
	// C116: sort directions are written upper-case (ASC, DESC, ...)
	if strings.Contains(key, "direction") || strings.Contains(key, "sort") || strings.Contains(key, "order") {
		if v != strings.ToUpper(v) {
			return []Violation{{
				Field:   field,
				Message: fmt.Sprintf("%q default %q must be upper-case", key, v),
				Code:    ErrSortCase,
			}}
		}
	}
	return nil
}

// validateProjection checks projected_columns and their agreement with
// output_schema.
func validateProjection(meta *intent.Metadata) []Violation {
	var errs []Violation

	// C118: a template that projects nothing publishes nothing
	if len(meta.ProjectedColumns) == 0 {
		errs = append(errs, Violation{
			Field:   "projected_columns",
			Message: "projected_columns must be non-empty",
			Code:    ErrNoProjection,
		})
	}

	// C119: duplicate projected columns
	for _, dup := range duplicates(meta.ProjectedColumns) {
		errs = append(errs, Violation{
			Field:   "projected_columns",
			Message: fmt.Sprintf("duplicate projected column %q", dup),
			Code:    ErrDuplicateColumn,
		})
	}

	// C117: output_schema and projected_columns must agree exactly,
	// reported in both directions so the fix is unambiguous.
	schema := meta.OutputSchema
	for _, c := range meta.ProjectedColumns {
		if _, ok := schema[c]; !ok {
			errs = append(errs, Violation{
				Field:   "output_schema",
				Message: fmt.Sprintf("projected column %q missing from output_schema", c),
				Code:    ErrSchemaMismatch,
			})
		}
	}
	projected := stringSet(meta.ProjectedColumns)
	for _, key := range sortedKeys(schema) {
		if !projected[key] {
			errs = append(errs, Violation{
				Field:   "output_schema." + key,
				Message: fmt.Sprintf("output_schema key %q is not a projected column", key),
				Code:    ErrSchemaMismatch,
			})
		}
	}

	return errs
}

// validateViews checks parquet_views naming and paths.
func validateViews(meta *intent.Metadata) []Violation {
	var errs []Violation

	for _, name := range sortedKeys(meta.ParquetViews) {
		path := meta.ParquetViews[name]

		// C122: view names become SQL identifiers downstream
		if !sqlIdentPattern.MatchString(name) {
			errs = append(errs, Violation{
				Field:   "parquet_views." + name,
				Message: fmt.Sprintf("view name %q is not a valid SQL identifier", name),
				Code:    ErrViewInvalid,
			})
		}
		if strings.TrimSpace(path) == "" {
			errs = append(errs, Violation{
				Field:   "parquet_views." + name,
				Message: "view path must be non-empty",
				Code:    ErrViewInvalid,
			})
		}
	}

	return errs
}

// descriptorKind extracts the value kind a format descriptor names.
func descriptorKind(desc string) (string, bool) {
	lower := strings.ToLower(desc)
	for _, kind := range descriptorKinds {
		if strings.Contains(lower, kind) {
			return kind, true
		}
	}
	return "", false
}

// valueMatchesKind reports whether a decoded JSON default value is
// representable as the descriptor kind. Numbers arrive as json.Number.
func valueMatchesKind(value any, kind string) bool {
	switch kind {
	case "decimal":
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Float64()
		return err == nil
	case "integer":
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "string", "date":
		_, ok := value.(string)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func stringSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}

func duplicates(list []string) []string {
	seen := make(map[string]bool, len(list))
	var dups []string
	for _, s := range list {
		if seen[s] && !containsString(dups, s) {
			dups = append(dups, s)
		}
		seen[s] = true
	}
	return dups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
