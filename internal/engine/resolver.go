package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Resolution is the outcome of one resolution pass.
//
// Order lists sections in completion order, which is a valid topological
// order. Results holds one entry per section that has a data query.
// Callers render from Results; Order is for diagnostics and sequencing.
type Resolution struct {
	PassID  string                       `json:"passId"`
	Order   []string                     `json:"order"`
	Results map[string]query.QueryResult `json:"results"`
}

// color is the DFS three-coloring state of a section.
type color uint8

const (
	white color = iota // unvisited
	grey               // on the active recursion path
	black              // done
)

// Resolver executes a set of inter-dependent sections in dependency order.
//
// Thread-safety: a Resolver is safe for concurrent use. All mutable state
// (colors, stack, results) belongs to a single pass.
type Resolver struct {
	exec        Executor
	parallelism int
	passIDs     PassIDGenerator
	logger      *slog.Logger
	validate    bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithParallelism sets how many independent sections may execute at once.
//
// Default: 1 (sequential depth-first execution).
// With n > 1 the whole graph is planned first, so a cycle is reported
// before any section runs.
func WithParallelism(n int) ResolverOption {
	return func(r *Resolver) {
		r.parallelism = n
	}
}

// WithPassIDGenerator sets the generator for Resolution.PassID.
func WithPassIDGenerator(g PassIDGenerator) ResolverOption {
	return func(r *Resolver) {
		r.passIDs = g
	}
}

// WithResolverLogger sets the logger. Default: slog.Default().
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithValidation toggles the pre-flight query.Validate gate. Default: on.
func WithValidation(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.validate = enabled
	}
}

// NewResolver creates a resolver that runs section queries through exec.
func NewResolver(exec Executor, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		exec:        exec,
		parallelism: 1,
		passIDs:     UUIDv7Generator{},
		logger:      slog.Default(),
		validate:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallelism < 1 {
		r.parallelism = 1
	}
	return r
}

// pass holds the state of one resolution.
type pass struct {
	r       *Resolver
	id      string
	logger  *slog.Logger
	index   map[string]query.Section
	roots   []string // section ids in input order, duplicates dropped
	colors  map[string]color
	stack   []string
	run     bool // execute sections while visiting
	mu      sync.Mutex
	order   []string
	results map[string]query.QueryResult
}

func (r *Resolver) newPass(sections []query.Section, run bool) *pass {
	p := &pass{
		r:       r,
		index:   make(map[string]query.Section, len(sections)),
		colors:  make(map[string]color, len(sections)),
		run:     run,
		order:   make([]string, 0, len(sections)),
		results: make(map[string]query.QueryResult),
	}
	if run {
		p.id = r.passIDs.Generate()
		p.logger = r.logger.With("pass", p.id)
	} else {
		p.logger = r.logger
	}

	for _, s := range sections {
		if _, dup := p.index[s.ID]; dup {
			p.logger.Warn("duplicate section id ignored", "section", s.ID)
			continue
		}
		p.index[s.ID] = s
		p.roots = append(p.roots, s.ID)
	}
	return p
}

// Resolve executes every section after its dependencies and returns the
// completion order with the per-section results.
//
// Errors:
//   - cycle: returns nil and a CYCLE_DETECTED *EngineError; results of the
//     pass are discarded
//   - ctx done: returns the partial Resolution and a CANCELLED *EngineError
//
// Per-query failures are never returned here; they live in the results.
// A dependency naming no section is skipped with a warning.
func (r *Resolver) Resolve(ctx context.Context, sections []query.Section) (*Resolution, error) {
	if r.parallelism > 1 {
		return r.resolveParallel(ctx, sections)
	}

	p := r.newPass(sections, true)
	p.logger.Debug("resolution started", "sections", len(p.roots))

	for _, id := range p.roots {
		if err := p.visit(ctx, id); err != nil {
			if IsCycleError(err) {
				p.logger.Error("resolution aborted", "error", err)
				return nil, err
			}
			return p.resolution(), err
		}
	}

	p.logger.Debug("resolution finished", "completed", len(p.order))
	return p.resolution(), nil
}

// Plan returns a valid execution order without executing anything, or a
// CYCLE_DETECTED error.
func (r *Resolver) Plan(sections []query.Section) ([]string, error) {
	p := r.newPass(sections, false)
	for _, id := range p.roots {
		if err := p.visit(context.Background(), id); err != nil {
			return nil, err
		}
	}
	return p.order, nil
}

// visit is the three-coloring depth-first traversal.
func (p *pass) visit(ctx context.Context, id string) error {
	switch p.colors[id] {
	case black:
		return nil
	case grey:
		return NewCycleError(p.cyclePath(id))
	}

	p.colors[id] = grey
	p.stack = append(p.stack, id)

	sec := p.index[id]
	for _, dep := range sec.Dependencies {
		if _, ok := p.index[dep]; !ok {
			p.logger.Warn("unknown dependency skipped", "section", id, "dependency", dep)
			continue
		}
		if err := p.visit(ctx, dep); err != nil {
			return err
		}
	}

	if p.run {
		if err := ctx.Err(); err != nil {
			return NewCancelledError(id, err)
		}
		if sec.DataQuery != nil {
			p.results[id] = p.r.executeSection(ctx, p.logger, sec)
		}
	}

	p.order = append(p.order, id)
	p.stack = p.stack[:len(p.stack)-1]
	p.colors[id] = black
	return nil
}

// cyclePath returns the stack suffix starting at id, closed with id.
func (p *pass) cyclePath(id string) []string {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i] == id {
			path := make([]string, 0, len(p.stack)-i+1)
			path = append(path, p.stack[i:]...)
			return append(path, id)
		}
	}
	return []string{id, id}
}

func (p *pass) resolution() *Resolution {
	return &Resolution{
		PassID:  p.id,
		Order:   p.order,
		Results: p.results,
	}
}

// executeSection runs the validation gate and then the section's query.
func (r *Resolver) executeSection(ctx context.Context, logger *slog.Logger, sec query.Section) query.QueryResult {
	q := *sec.DataQuery
	if r.validate {
		if v := query.Validate(q); !v.Valid {
			verr := NewValidationError(sec.ID, v.Errors)
			logger.Warn("section query rejected", "section", sec.ID, "errors", v.Errors)
			return query.QueryResult{Rows: []record.Record{}, Error: verr.Message}
		}
	}

	result := r.exec.Execute(ctx, q)
	logger.Debug("section executed",
		"section", sec.ID,
		"rows", len(result.Rows),
		"total", result.TotalRows,
		"failed", result.Failed(),
	)
	return result
}

// resolveParallel plans the graph, then runs it in waves. Every section of
// a wave has all of its dependencies in earlier waves, so sections within
// a wave are independent and run concurrently on a bounded pool.
func (r *Resolver) resolveParallel(ctx context.Context, sections []query.Section) (*Resolution, error) {
	p := r.newPass(sections, true)

	plan := r.newPass(sections, false)
	for _, id := range plan.roots {
		if err := plan.visit(ctx, id); err != nil {
			p.logger.Error("resolution aborted", "error", err)
			return nil, err
		}
	}

	waves := p.waves(plan.order)
	p.logger.Debug("resolution started",
		"sections", len(p.roots),
		"waves", len(waves),
		"parallelism", r.parallelism,
	)

	pool, err := ants.NewPool(r.parallelism, ants.WithPanicHandler(func(v any) {
		p.logger.Error("section worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	for _, wave := range waves {
		if err := ctx.Err(); err != nil {
			return p.resolution(), NewCancelledError(wave[0], err)
		}

		var wg sync.WaitGroup
		for _, id := range wave {
			sec := p.index[id]
			wg.Add(1)
			task := func() {
				defer wg.Done()
				p.runOne(ctx, sec)
			}
			if err := pool.Submit(task); err != nil {
				// Pool closed or overloaded: run inline.
				task()
			}
		}
		wg.Wait()
	}

	p.logger.Debug("resolution finished", "completed", len(p.order))
	return p.resolution(), nil
}

// runOne executes sec and records its completion under the pass mutex.
func (p *pass) runOne(ctx context.Context, sec query.Section) {
	var result *query.QueryResult
	defer func() {
		if v := recover(); v != nil {
			result = &query.QueryResult{
				Rows:  []record.Record{},
				Error: fmt.Sprintf("%s: recovered panic: %v", ErrCodePanic, v),
			}
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if result != nil {
			p.results[sec.ID] = *result
		}
		p.order = append(p.order, sec.ID)
	}()

	if sec.DataQuery != nil {
		res := p.r.executeSection(ctx, p.logger, sec)
		result = &res
	}
}

// waves groups planned ids by depth: a section's wave is one past the
// deepest wave among its known dependencies.
func (p *pass) waves(order []string) [][]string {
	depth := make(map[string]int, len(order))
	var waves [][]string
	for _, id := range order {
		d := 0
		for _, dep := range p.index[id].Dependencies {
			if dd, ok := depth[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depth[id] = d
		if d == len(waves) {
			waves = append(waves, nil)
		}
		waves[d] = append(waves[d], id)
	}
	return waves
}
