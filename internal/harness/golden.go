package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ReportSnapshot renders the canonical JSON bytes for a result's report.
// Golden files store exactly these bytes, so comparison is byte-exact and
// independent of map iteration order.
func ReportSnapshot(result *Result) ([]byte, error) {
	return result.Report.MarshalCanonical()
}

// RunWithGolden executes a scenario and compares its canonical report
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the report doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's canonical report against a golden
// file. Useful when a test has already run a scenario and wants the golden
// comparison without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := ReportSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
