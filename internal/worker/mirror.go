// Package worker copies the live workbook into the SQLite snapshot store
// on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/sheets"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// SourceMirror tags notifications published by the mirror.
const SourceMirror = "mirror"

const defaultReadConcurrency = 3

// Result summarizes one mirror run.
type Result struct {
	Period   core.Period
	Tables   []sheets.Table
	Values   int
	Duration time.Duration
}

// Mirror reads every logical table and named value of a period from src
// and replaces the stored copy in dst.
type Mirror struct {
	src       sheets.Worksheet
	dst       sheets.SnapshotWriter
	publisher amqp.Publisher
	loc       *time.Location
	now       func() time.Time
	limit     int

	mu      sync.Mutex
	lastRun *Result
}

type Option func(*Mirror)

func WithPublisher(p amqp.Publisher) Option { return func(m *Mirror) { m.publisher = p } }

// WithLocation sets the zone used to decide the current period and to
// evaluate the schedule.
func WithLocation(loc *time.Location) Option { return func(m *Mirror) { m.loc = loc } }

func WithClock(now func() time.Time) Option { return func(m *Mirror) { m.now = now } }

// WithReadConcurrency bounds parallel reads against the source.
func WithReadConcurrency(n int) Option { return func(m *Mirror) { m.limit = n } }

func NewMirror(src sheets.Worksheet, dst sheets.SnapshotWriter, opts ...Option) *Mirror {
	m := &Mirror{
		src:   src,
		dst:   dst,
		loc:   time.UTC,
		now:   time.Now,
		limit: defaultReadConcurrency,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// CurrentPeriod is the period containing now in the mirror's zone.
func (m *Mirror) CurrentPeriod() core.Period {
	return core.CurrentPeriod(m.now().In(m.loc))
}

// RunOnce mirrors the current period.
func (m *Mirror) RunOnce(ctx context.Context) (*Result, error) {
	return m.MirrorPeriod(ctx, m.CurrentPeriod())
}

// MirrorPeriod reads everything first and writes only when every read
// succeeded. With a batch capable store the write is a single transaction,
// so a failed run leaves the previous snapshot untouched.
func (m *Mirror) MirrorPeriod(ctx context.Context, p core.Period) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	tables := sheets.Tables()
	names := sheets.Names()

	rows := make([]sheets.Rows, len(tables))
	values := make([]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)
	for i, t := range tables {
		g.Go(func() error {
			r, err := m.src.ReadTable(gctx, p, t)
			if err != nil {
				return &core.FetchError{Source: string(t), Err: err}
			}
			rows[i] = r
			return nil
		})
	}
	for i, n := range names {
		g.Go(func() error {
			v, err := m.src.ReadValue(gctx, p, n)
			if err != nil {
				return &core.FetchError{Source: string(n), Err: err}
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("mirror %s: %w", p.Key(), err)
	}

	if err := m.store(ctx, p, tables, rows, names, values); err != nil {
		return nil, err
	}

	res := &Result{Period: p, Tables: tables, Values: len(names), Duration: time.Since(start)}
	m.mu.Lock()
	m.lastRun = res
	m.mu.Unlock()

	slog.InfoContext(ctx, "Mirrored workbook",
		"period", p.Key(),
		"tables", len(tables),
		"values", len(names),
		"duration", res.Duration)

	if m.publisher != nil {
		msg := amqp.NewTablesRefreshed(p, SourceMirror, tables...)
		if err := m.publisher.PublishTablesRefreshed(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish refresh notification", "period", p.Key(), "error", err)
		}
	}
	return res, nil
}

// store writes the snapshot in one batch when dst supports it.
func (m *Mirror) store(ctx context.Context, p core.Period, tables []sheets.Table, rows []sheets.Rows, names []sheets.Name, values []string) error {
	if batch, ok := m.dst.(sheets.SnapshotBatchWriter); ok {
		snap := sheets.Snapshot{
			Tables: make([]sheets.TableSnapshot, len(tables)),
			Values: make([]sheets.ValueSnapshot, len(names)),
		}
		for i, t := range tables {
			snap.Tables[i] = sheets.TableSnapshot{Table: t, Rows: rows[i]}
		}
		for i, n := range names {
			snap.Values[i] = sheets.ValueSnapshot{Name: n, Value: values[i]}
		}
		if err := batch.WriteSnapshot(ctx, p, snap); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
		return nil
	}

	for i, t := range tables {
		if err := m.dst.WriteTable(ctx, p, t, rows[i]); err != nil {
			return fmt.Errorf("store %s: %w", t, err)
		}
	}
	for i, n := range names {
		if err := m.dst.WriteValue(ctx, p, n, values[i]); err != nil {
			return fmt.Errorf("store %s: %w", n, err)
		}
	}
	return nil
}

// LastRun returns the most recent successful run, nil before the first.
func (m *Mirror) LastRun() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRun
}

// Run mirrors on schedule (standard five field cron spec or a descriptor
// like "@every 15m") until ctx is cancelled. Overlapping runs are skipped.
func (m *Mirror) Run(ctx context.Context, schedule string) error {
	logger := cronLogger{slog.Default()}
	c := cron.New(
		cron.WithLocation(m.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(schedule, func() {
		if _, err := m.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "Mirror run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	slog.InfoContext(ctx, "Mirror scheduled", "schedule", schedule, "timezone", m.loc.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
