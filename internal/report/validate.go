package report

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
)

// Issue codes (E2xx block validation, W3xx are advisory).
const (
	ErrDuplicateSection    = "E201" // section id defined twice
	ErrUnknownDataSource   = "E203" // query reads an undeclared source
	ErrInvalidQuery        = "E204" // query.Validate reported errors
	ErrDependencyCycle     = "E205" // sections depend on each other
	ErrDuplicateDataSource = "E206" // data source id declared twice
	ErrInvalidDataSource   = "E207" // data source declaration incomplete
	ErrMissingSectionID    = "E208" // section without id

	WarnUnknownDependency = "W301" // dependency names no section
	WarnQuery             = "W302" // query.Validate reported warnings
	WarnNoSections        = "W303" // report renders nothing
)

// Issue is one finding of Check.
type Issue struct {
	Code    string `json:"code"`
	Section string `json:"section,omitempty"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	switch {
	case i.Section != "":
		return fmt.Sprintf("[%s] section %s: %s", i.Code, i.Section, i.Message)
	case i.Source != "":
		return fmt.Sprintf("[%s] data source %s: %s", i.Code, i.Source, i.Message)
	default:
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
}

// CheckResult collects every finding. Valid is false when Errors is
// non-empty; warnings never affect it.
type CheckResult struct {
	Valid    bool     `json:"valid"`
	Errors   []Issue  `json:"errors"`
	Warnings []Issue  `json:"warnings"`
	Order    []string `json:"order,omitempty"` // execution plan when acyclic
}

// Check validates the whole definition without executing anything: data
// source declarations, every section query, references between them and
// the dependency graph. It does not fail fast.
//
// Data source references are only checked when the definition declares
// sources; a report without declarations runs against a caller-supplied
// source.
func Check(d *Definition) CheckResult {
	c := &checker{res: CheckResult{Errors: []Issue{}, Warnings: []Issue{}}}

	sources := c.checkSources(d.DataSources)
	c.checkSections(d.Sections, sources)

	if len(d.Sections) == 0 {
		c.warn(Issue{Code: WarnNoSections, Message: "report has no sections"})
	}

	quiet := slog.New(slog.DiscardHandler)
	order, err := engine.NewResolver(nil, engine.WithResolverLogger(quiet)).Plan(d.Sections)
	if err != nil {
		issue := Issue{Code: ErrDependencyCycle, Message: err.Error()}
		var ee *engine.EngineError
		if errors.As(err, &ee) {
			issue.Section = ee.SectionID
			issue.Message = ee.Message
		}
		c.error(issue)
	} else {
		c.res.Order = order
	}

	c.res.Valid = len(c.res.Errors) == 0
	return c.res
}

type checker struct {
	res CheckResult
}

func (c *checker) error(i Issue) { c.res.Errors = append(c.res.Errors, i) }
func (c *checker) warn(i Issue)  { c.res.Warnings = append(c.res.Warnings, i) }

func (c *checker) checkSources(specs []DataSourceSpec) map[string]bool {
	declared := make(map[string]bool, len(specs))
	for i, ds := range specs {
		if ds.ID == "" {
			c.error(Issue{Code: ErrInvalidDataSource, Message: fmt.Sprintf("data source %d: missing id", i)})
			continue
		}
		if declared[ds.ID] {
			c.error(Issue{Code: ErrDuplicateDataSource, Source: ds.ID, Message: "declared more than once"})
			continue
		}
		declared[ds.ID] = true

		switch ds.Kind {
		case KindInline, "":
		case KindSQLite:
			if ds.Path == "" {
				c.error(Issue{Code: ErrInvalidDataSource, Source: ds.ID, Message: "sqlite source needs a path"})
			}
		case KindHTTP:
			if ds.URL == "" {
				c.error(Issue{Code: ErrInvalidDataSource, Source: ds.ID, Message: "http source needs a url"})
			}
		default:
			c.error(Issue{Code: ErrInvalidDataSource, Source: ds.ID, Message: fmt.Sprintf("unknown kind %q", ds.Kind)})
		}
	}
	return declared
}

func (c *checker) checkSections(sections []query.Section, sources map[string]bool) {
	ids := make(map[string]bool, len(sections))
	for i, s := range sections {
		if s.ID == "" {
			c.error(Issue{Code: ErrMissingSectionID, Message: fmt.Sprintf("section %d: missing id", i)})
			continue
		}
		if ids[s.ID] {
			c.error(Issue{Code: ErrDuplicateSection, Section: s.ID, Message: "defined more than once; the first definition is used"})
			continue
		}
		ids[s.ID] = true
	}

	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		for _, dep := range s.Dependencies {
			if !ids[dep] {
				c.warn(Issue{Code: WarnUnknownDependency, Section: s.ID, Message: fmt.Sprintf("dependency %q names no section and is ignored", dep)})
			}
		}

		if s.DataQuery == nil {
			continue
		}
		v := query.Validate(*s.DataQuery)
		for _, msg := range v.Errors {
			c.error(Issue{Code: ErrInvalidQuery, Section: s.ID, Message: msg})
		}
		for _, msg := range v.Warnings {
			c.warn(Issue{Code: WarnQuery, Section: s.ID, Message: msg})
		}
		if id := s.DataQuery.DataSourceID; id != "" && len(sources) > 0 && !sources[id] {
			c.error(Issue{Code: ErrUnknownDataSource, Section: s.ID, Message: fmt.Sprintf("data source %q is not declared", id)})
		}
	}
}
