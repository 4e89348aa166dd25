// Package report loads report definitions: the data sources a report reads
// and the sections it renders.
//
// A definition may be written in YAML, JSON or CUE; the file extension
// selects the decoder. All three decode into the same Definition:
//
//	name: quarterly
//	dataSources:
//	  - id: sales
//	    kind: inline
//	    rows:
//	      - {region: north, amount: 120}
//	sections:
//	  - id: by-region
//	    dataQuery:
//	      dataSourceId: sales
//	      dimensions: [{id: region}]
//	      measures: [{id: amount, aggregation: sum}]
//
// Data source kinds:
//   - inline: rows embedded in the definition
//   - sqlite: a data set in a SQLite database (path relative to the file)
//   - http:   rows fetched from GET {url}/{id}
package report
