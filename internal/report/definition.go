package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/reportcore/internal/query"
)

// Data source kinds.
const (
	KindInline = "inline"
	KindSQLite = "sqlite"
	KindHTTP   = "http"
)

// Definition is a complete report: where rows come from and what to render.
type Definition struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	DataSources []DataSourceSpec `json:"dataSources,omitempty" yaml:"dataSources,omitempty"`
	Sections    []query.Section  `json:"sections" yaml:"sections"`
}

// DataSourceSpec declares one data source of a report.
type DataSourceSpec struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`

	// Rows holds the data of an inline source.
	Rows []map[string]any `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Path is the SQLite database of a sqlite source. Relative paths are
	// resolved against the definition file's directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// URL is the base endpoint of an http source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers are sent with every request of an http source.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Section returns the section with id, if defined. The first definition
// wins when ids repeat.
func (d *Definition) Section(id string) (query.Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return query.Section{}, false
}

// SectionIDs lists section ids in definition order.
func (d *Definition) SectionIDs() []string {
	ids := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		ids[i] = s.ID
	}
	return ids
}

// CacheScope identifies the data behind the definition's sources. Two
// definitions share a scope only when their names and data source
// declarations (inline rows, paths, URLs and headers) are identical.
func (d *Definition) CacheScope() (string, error) {
	data, err := json.Marshal(struct {
		Name        string           `json:"name"`
		DataSources []DataSourceSpec `json:"dataSources"`
	}{d.Name, d.DataSources})
	if err != nil {
		return "", fmt.Errorf("cache scope: %w", err)
	}
	sum := sha256.Sum256(data)
	return "report:" + hex.EncodeToString(sum[:8]), nil
}
