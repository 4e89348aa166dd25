// Package query defines the declarative description of what a report
// section asks for, and the result it gets back.
//
// A DataQuery names a data source and lists dimensions (fields to group or
// project by), measures (fields to reduce), filters, sort keys and optional
// pagination. Queries are built per render/export request and are treated
// as immutable by every consumer in this module.
//
// Validate is the pre-flight check callers run before execution. It never
// mutates the query and separates blocking errors from advisory warnings.
//
// ResolveMode turns the implicit "measures present or not" branching into
// an explicit tag computed once per execution:
//
//	measures or explicit aggregations  → ModeAggregation
//	dimensions only                    → ModeProjection
//	neither                            → ModePassThrough
//
// Fingerprint derives a stable content hash of a query for caller-side
// result caches.
package query
