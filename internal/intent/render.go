package intent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	paramRef      = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)
	numberLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// RenderPreview substitutes parameter values into a template for human
// inspection. Values come from the sidecar defaults overlaid with the
// caller's overrides. Required filters must all have a value; other
// parameters without one are left as their @name placeholder so the gap
// is visible in the preview. The result is a preview, never an
// executable statement handed to a database.
func RenderPreview(in Intent, overrides map[string]string) (string, error) {
	values := map[string]any{}
	if in.Meta != nil {
		for k, v := range in.Meta.Defaults {
			values[k] = v
		}
	}
	for k, v := range overrides {
		values[k] = parseOverride(v)
	}

	if in.Meta != nil {
		var missing []string
		for _, f := range in.Meta.RequiredFilters {
			if _, ok := values[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return "", fmt.Errorf("missing values for required filters: %s", strings.Join(missing, ", "))
		}
	}

	var substErr error
	rendered := paramRef.ReplaceAllStringFunc(in.SQL, func(m string) string {
		name := m[1:]
		v, ok := values[name]
		if !ok {
			return m
		}
		lit, err := sqlLiteral(v)
		if err != nil {
			if substErr == nil {
				substErr = fmt.Errorf("parameter %s: %w", name, err)
			}
			return m
		}
		return lit
	})
	if substErr != nil {
		return "", substErr
	}
	return rendered, nil
}

// parseOverride types a command-line override: bare booleans and JSON
// numbers keep their type, everything else substitutes as a string.
func parseOverride(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if numberLiteral.MatchString(s) {
		return json.Number(s)
	}
	return s
}

// sqlLiteral renders a parameter value as a SQL literal. Strings escape
// embedded single quotes by doubling them. Composite values have no
// literal form and are rejected.
func sqlLiteral(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("value %v has no SQL literal form", v)
	}
}
