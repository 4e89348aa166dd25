// Package datasource provides the raw-row collaborator of the query engine.
//
// A Source answers one question: given a data source id, what are its rows?
// The engine never knows where rows come from. Variants are chosen when the
// Source is constructed, never per call:
//
//   - MemorySource: rows held in process (fixtures, inline report data)
//   - SQLiteSource: rows read from tables of a SQLite database file
//   - HTTPSource:   rows fetched as JSON from a remote endpoint
//   - Mux:          routes ids to any of the above
//
// An id a Source does not serve yields an error wrapping ErrUnknownSource.
// Every Fetch takes a context so an abandoned resolution pass stops issuing
// further I/O.
package datasource
