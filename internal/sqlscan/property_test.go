package sqlscan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("stripping is idempotent", prop.ForAll(
		func(text string) bool {
			once := Strip(text)
			return Strip(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("stripped text never grows", prop.ForAll(
		func(text string) bool {
			return len(Strip(text)) <= len(text)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestExtractionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("extraction is deterministic", prop.ForAll(
		func(column, param string) bool {
			sql := "SELECT c FROM t WHERE " + column + "_date >= @" + param + "_date"
			first := ExtractTemporalFilters(sql)
			second := ExtractTemporalFilters(sql)
			return reflect.DeepEqual(first, second)
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("valid filters always bind a date-related parameter", prop.ForAll(
		func(column, param string) bool {
			sql := "SELECT c FROM t WHERE " + column + " BETWEEN @" + param + " AND @" + param
			for _, f := range ExtractTemporalFilters(sql) {
				if len(f.Parameters) == 0 {
					return false
				}
				for _, p := range f.Parameters {
					if !IsDateParam(p) {
						return false
					}
				}
			}
			return true
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("date-suffixed comparison always extracts", prop.ForAll(
		func(base string) bool {
			col := strings.ToLower(base) + "_date"
			sql := "SELECT c FROM t WHERE " + col + " >= @start_date"
			filters := ExtractTemporalFilters(sql)
			return len(filters) == 1 && filters[0].Column == col
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
