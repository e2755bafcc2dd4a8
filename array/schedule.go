package array

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

type config struct {
	workers int
	logger  *slog.Logger
	silent  bool
}

// Option configures Materialize.
type Option func(*config)

// WithWorkers bounds the number of chunk tasks run at once. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for runtime warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// SilenceRuntimeWarnings suppresses the invalid-value warning.
func SilenceRuntimeWarnings() Option {
	return func(c *config) { c.silent = true }
}

func newConfig(opts []Option) config {
	c := &config{workers: runtime.GOMAXPROCS(0), logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return *c
}

// Materialize computes arrays in one pass over the union of their chunk
// graphs. Dense arrays are returned as they are. Tasks shared by several
// arrays run once.
func Materialize(ctx context.Context, arrays []Array, opts ...Option) ([]*Dense, error) {
	cfg := newConfig(opts)
	out := make([]*Dense, len(arrays))
	var roots []*Deferred
	for i, a := range arrays {
		switch v := a.(type) {
		case *Dense:
			out[i] = v
		case *Deferred:
			roots = append(roots, v)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedBackend, a)
		}
	}
	if len(roots) == 0 {
		return out, nil
	}

	results, err := execute(ctx, roots, cfg)
	if err != nil {
		return nil, err
	}
	for i, a := range arrays {
		d, ok := a.(*Deferred)
		if !ok {
			continue
		}
		if out[i], err = assemble(d, results); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MaterializeMap is Materialize over named arrays.
func MaterializeMap(ctx context.Context, arrays map[string]Array, opts ...Option) (map[string]*Dense, error) {
	names := make([]string, 0, len(arrays))
	list := make([]Array, 0, len(arrays))
	for name, a := range arrays {
		names = append(names, name)
		list = append(list, a)
	}
	ds, err := Materialize(ctx, list, opts...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Dense, len(ds))
	for i, name := range names {
		out[name] = ds[i]
	}
	return out, nil
}

func assemble(d *Deferred, results map[*task]*Dense) (*Dense, error) {
	parts := make([]*Dense, len(d.chunks))
	for i, t := range d.chunks {
		parts[i] = results[t]
		if parts[i] == nil {
			return nil, fmt.Errorf("%w: chunk %d of %v produced nothing", ErrShape, i, d)
		}
	}
	if len(parts) == 1 {
		return castDense(parts[0], d.kind)
	}
	return concatRows(d.kind, d.shape[1:], parts)
}

// execute runs the graph level by level: a task runs once all of its
// dependencies are done, and a result is dropped once its last consumer has
// run unless it belongs to a root.
func execute(ctx context.Context, roots []*Deferred, cfg config) (map[*task]*Dense, error) {
	level := make(map[*task]int)
	consumers := make(map[*task]int)
	keep := make(map[*task]bool)
	var levels [][]*task

	var visit func(t *task) int
	visit = func(t *task) int {
		if l, ok := level[t]; ok {
			return l
		}
		l := 0
		for _, dep := range t.deps {
			l = max(l, visit(dep)+1)
			consumers[dep]++
		}
		level[t] = l
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], t)
		return l
	}
	for _, r := range roots {
		for _, t := range r.chunks {
			visit(t)
			keep[t] = true
		}
	}

	var (
		mu      sync.Mutex
		results = make(map[*task]*Dense, len(level))
		invalid atomic.Int64
	)
	for _, tasks := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.workers)
		for _, t := range tasks {
			t := t
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				in := make([]*Dense, len(t.deps))
				mu.Lock()
				for i, dep := range t.deps {
					in[i] = results[dep]
				}
				mu.Unlock()

				out, n, err := t.run(gctx, in)
				if err != nil {
					return fmt.Errorf("%s: %w", t.label, err)
				}
				invalid.Add(int64(n))

				mu.Lock()
				results[t] = out
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, t := range tasks {
			for _, dep := range t.deps {
				consumers[dep]--
				if consumers[dep] == 0 && !keep[dep] {
					delete(results, dep)
				}
			}
		}
	}

	if n := invalid.Load(); n > 0 && !cfg.silent {
		cfg.logger.Warn("invalid value encountered in divide", "count", n)
	}
	return results, nil
}
