// Package fetcher sits between the pipeline and the worksheet backend. It
// keeps one cache generation per active period and guarantees at most one
// backing round trip per table while that period stays active.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"keuangan/internal/cache"
	"keuangan/internal/core"
	"keuangan/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// Options tune the cache. Zero values fall back to defaults.
type Options struct {
	Size    int
	TTL     time.Duration
	Timeout time.Duration
}

const defaultSize = 64

type Fetcher struct {
	src     sheets.Worksheet
	timeout time.Duration

	mu     sync.Mutex
	active core.Period
	gen    uint64

	rows   *cache.LRU[sheets.Rows]
	values *cache.LRU[string]
	group  singleflight.Group
}

func New(src sheets.Worksheet, opts Options) *Fetcher {
	size := opts.Size
	if size <= 0 {
		size = defaultSize
	}
	return &Fetcher{
		src:     src,
		timeout: opts.Timeout,
		rows:    cache.NewLRU[sheets.Rows](size, opts.TTL),
		values:  cache.NewLRU[string](size, opts.TTL),
	}
}

// Caches exposes the underlying caches for the janitor.
func (f *Fetcher) Caches() []cache.Cleaner {
	return []cache.Cleaner{f.rows, f.values}
}

// Activate makes p the active period. When p differs from the current one
// every cached entry is dropped before Activate returns. It reports whether
// the period changed.
func (f *Fetcher) Activate(ctx context.Context, p core.Period) (bool, error) {
	return f.activate(ctx, p, false)
}

// ActivateIfUnset activates p only when no period is active yet.
func (f *Fetcher) ActivateIfUnset(ctx context.Context, p core.Period) (bool, error) {
	return f.activate(ctx, p, true)
}

func (f *Fetcher) activate(ctx context.Context, p core.Period, onlyUnset bool) (bool, error) {
	p, err := core.NewPeriod(p.Year, p.Month)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	if f.active == p || (onlyUnset && f.active != core.Period{}) {
		f.mu.Unlock()
		return false, nil
	}
	prev := f.active
	f.active = p
	f.gen++
	f.rows.Purge()
	f.values.Purge()
	f.mu.Unlock()

	slog.InfoContext(ctx, "Active period changed", "from", prev.Key(), "to", p.Key())
	return true, nil
}

// Active returns the active period; ok is false before the first Activate.
func (f *Fetcher) Active() (core.Period, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.active != core.Period{}
}

// Rows returns the raw records of t for p. Results are cached only while
// p is the active period.
func (f *Fetcher) Rows(ctx context.Context, p core.Period, t sheets.Table) (sheets.Rows, error) {
	key := cacheKey(p, string(t))
	return load(ctx, f, p, key, f.rows, func(ctx context.Context) (sheets.Rows, error) {
		return f.src.ReadTable(ctx, p, t)
	})
}

// Value returns the raw value of a named range for p.
func (f *Fetcher) Value(ctx context.Context, p core.Period, n sheets.Name) (string, error) {
	key := cacheKey(p, "value:"+string(n))
	return load(ctx, f, p, key, f.values, func(ctx context.Context) (string, error) {
		return f.src.ReadValue(ctx, p, n)
	})
}

// Invalidate drops cached entries of the given tables for p, so the next
// request goes back to the worksheet.
func (f *Fetcher) Invalidate(ctx context.Context, p core.Period, tables ...sheets.Table) {
	for _, t := range tables {
		f.rows.Delete(cacheKey(p, string(t)))
	}
	slog.DebugContext(ctx, "Invalidated tables", "period", p.Key(), "tables", tables)
}

// InvalidateValues drops the cached named values of p. Values are sheet
// formulas over the tables, so they go stale with them.
func (f *Fetcher) InvalidateValues(ctx context.Context, p core.Period) {
	n := f.values.DeletePrefix(p.Key() + "/")
	slog.DebugContext(ctx, "Invalidated named values", "period", p.Key(), "entries", n)
}

// InvalidatePeriod drops every cached entry of p.
func (f *Fetcher) InvalidatePeriod(ctx context.Context, p core.Period) {
	n := f.rows.DeletePrefix(p.Key()+"/") + f.values.DeletePrefix(p.Key()+"/")
	slog.DebugContext(ctx, "Invalidated period", "period", p.Key(), "entries", n)
}

func load[T any](ctx context.Context, f *Fetcher, p core.Period, key string, c *cache.LRU[T], read func(context.Context) (T, error)) (T, error) {
	var zero T
	p, err := core.NewPeriod(p.Year, p.Month)
	if err != nil {
		return zero, err
	}

	f.mu.Lock()
	cacheable := f.active == p
	gen := f.gen
	f.mu.Unlock()

	if cacheable {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
	}

	flightKey := fmt.Sprintf("%d/%s", gen, key)
	ch := f.group.DoChan(flightKey, func() (interface{}, error) {
		rctx := context.WithoutCancel(ctx)
		if f.timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, f.timeout)
			defer cancel()
		}
		start := time.Now()
		v, err := read(rctx)
		if err != nil {
			return nil, &core.FetchError{Source: key, Err: err}
		}
		slog.DebugContext(ctx, "Fetched from worksheet", "key", key, "duration", time.Since(start))

		// A period change during the read leaves a new generation behind;
		// the stale result is returned but not stored.
		f.mu.Lock()
		if f.gen == gen && f.active == p {
			c.Set(key, v)
		}
		f.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, &core.FetchError{Source: key, Err: ctx.Err()}
	}
}

func cacheKey(p core.Period, what string) string {
	return p.Key() + "/" + what
}
