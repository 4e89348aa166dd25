package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/record"
)

// SourceOptions tunes the sources built for a definition.
type SourceOptions struct {
	// HTTPTimeout bounds each remote fetch. Zero uses the datasource default.
	HTTPTimeout time.Duration
}

// Sources builds a router serving every data source of the definition.
//
// SQLite databases opened here are closed by the returned closer; call it
// when the report is no longer executed. The closer is never nil.
func (d *Definition) Sources(opts SourceOptions) (*datasource.Mux, func() error, error) {
	mux := datasource.NewMux()
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	inline := make(map[string][]record.Record)
	for i, ds := range d.DataSources {
		if ds.ID == "" {
			_ = closeAll()
			return nil, func() error { return nil }, fmt.Errorf("data source %d: missing id", i)
		}

		switch ds.Kind {
		case KindInline, "":
			rows := make([]record.Record, len(ds.Rows))
			for j, r := range ds.Rows {
				rows[j] = record.FromMap(r)
			}
			inline[ds.ID] = rows

		case KindSQLite:
			if ds.Path == "" {
				_ = closeAll()
				return nil, func() error { return nil }, fmt.Errorf("data source %q: sqlite source needs a path", ds.ID)
			}
			src, err := datasource.OpenSQLite(ds.Path)
			if err != nil {
				_ = closeAll()
				return nil, func() error { return nil }, fmt.Errorf("data source %q: %w", ds.ID, err)
			}
			closers = append(closers, src.Close)
			mux.Register(ds.ID, src)

		case KindHTTP:
			if ds.URL == "" {
				_ = closeAll()
				return nil, func() error { return nil }, fmt.Errorf("data source %q: http source needs a url", ds.ID)
			}
			var httpOpts []datasource.HTTPOption
			if opts.HTTPTimeout > 0 {
				httpOpts = append(httpOpts, datasource.WithTimeout(opts.HTTPTimeout))
			}
			for k, v := range ds.Headers {
				httpOpts = append(httpOpts, datasource.WithHeader(k, v))
			}
			mux.Register(ds.ID, datasource.NewHTTPSource(ds.URL, httpOpts...))

		default:
			_ = closeAll()
			return nil, func() error { return nil }, fmt.Errorf("data source %q: unknown kind %q", ds.ID, ds.Kind)
		}
	}

	if len(inline) > 0 {
		mem := datasource.NewMemorySource(inline)
		for id := range inline {
			mux.Register(id, mem)
		}
	}
	return mux, closeAll, nil
}
