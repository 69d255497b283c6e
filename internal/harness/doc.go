// Package harness runs gate scenarios as executable contract tests.
//
// A scenario feeds one SQL template (with optional metadata sidecar and
// policy document) through the full compliance pipeline and checks the
// composed report against declared expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	template:
//	  id: ar_aging_daily
//	  sql: |
//	    SELECT customer_id, total_due FROM ar_invoices
//	    WHERE tenant_id = @tenant_id AND due_date BETWEEN @start_date AND @end_date
//	    LIMIT 1000
//	  metadata:
//	    template_id: ar_aging_daily
//	    required_filters: [tenant_id, as_of_date]
//	policy:
//	  version: "2024.1"
//	  allowed_actions: [SELECT, WITH]
//	exempt: [qa_probe_extra]
//	expect:
//	  pass: true
//	  tenant_scoped: true
//	  codes: []
//
// Template SQL, metadata, and policy may come inline or from files
// (sql_file, metadata_file, policy_file), resolved relative to the
// scenario file.
//
// # Expectations
//
// The expect clause supports:
//
//   - pass: the overall report verdict
//   - temporal_filter_found: whether a WHERE-scoped temporal filter was found
//   - tenant_scoped: whether the tenant equality predicate was found
//   - codes: the exact sorted set of violation codes (an empty list asserts none)
//
// Omitted fields are not checked. At least one expectation is required.
//
// # Golden Reports
//
// Each scenario's report renders to canonical JSON, so golden files under
// testdata/golden compare byte-for-byte across runs and platforms.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/windowed_tenant_query_passes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Failures {
//	        log.Println(msg)
//	    }
//	}
package harness
