// Package harness runs report conformance scenarios.
//
// A scenario names a report definition and a list of assertions about the
// resolution: execution order, result rows, totals, captured errors and
// dependency cycles. Every run uses a fixed pass id and a step clock, so
// results can also be compared against golden files.
//
// Scenario files are YAML:
//
//	name: sales-by-region
//	description: Regions are summed and ordered by revenue
//	report: ../reports/sales.yaml
//	assertions:
//	  - type: order
//	    sections: [by-region, summary]
//	  - type: result_contains
//	    section: by-region
//	    where: {region: north, amount: 160}
//	  - type: total_rows
//	    section: apples
//	    count: 2
package harness
