// Package engine implements the analytical query execution core.
//
// The engine turns a declarative query.DataQuery into a query.QueryResult
// and drives a set of inter-dependent report sections in dependency order.
//
// ARCHITECTURE:
//
// Per-query pipeline (Orchestrator.Execute), in fixed order:
//  1. Fetch raw rows for the query's data source
//  2. Keep rows that satisfy every filter (Evaluate / ApplyFilters)
//  3. Aggregate, project or pass rows through, per query.ResolveMode
//  4. Sort by the query's sort keys (Sorter)
//  5. Record TotalRows
//  6. Slice the requested page
//  7. Stamp the wall-clock duration
//
// Per-report resolution (Resolver.Resolve): depth-first traversal with
// three-coloring over section dependencies. A section executes only after
// all of its transitive dependencies completed, and exactly once. Reaching
// a section that is still on the recursion path is a cycle.
//
// ERROR POLICY:
//
// Per-query failures never escape Execute. Fetch errors, cancelled
// contexts and panics inside a data source are captured into
// QueryResult.Error. Uncoercible values degrade silently (a comparison that
// cannot be made is false). The only batch-level failures Resolve returns
// are a cycle (no results at all) and cancellation (results completed so
// far remain valid).
//
// CONCURRENCY:
//
// Resolution is single-flow by default. WithParallelism(n) plans the full
// graph first, then runs independent sections on a bounded worker pool;
// the per-pass result map is guarded by a mutex. Nothing is shared across
// passes.
package engine
