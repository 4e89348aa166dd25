// Package record defines the flat row type consumed and produced by the
// query engine, together with the value semantics every other package
// relies on.
//
// A Record is a map from field id to a loosely typed value. Values arrive
// from heterogeneous data sources (JSON documents, SQLite rows, literals in
// report definitions), so the package centralises three decisions:
//
//   - Null: a missing key and an explicit nil are the same thing (IsNull).
//   - Coercion: AsNumber and AsTime decide whether a value can take part in
//     numeric or chronological comparison. Failure is reported, never
//     panicked on.
//   - Identity: Equal and KeyOf decide when two values are "the same" for
//     filtering and grouping.
//
// Group keys are structured rather than joined with a separator. Each
// element is type-tagged and length-prefixed, so a dimension value that
// happens to contain a separator character can never collide with a
// different tuple, and nil never collides with the string "null".
package record
