// Package services exposes the pipeline entry points used by the HTTP
// layer and the notification consumer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"keuangan/internal/aggregate"
	"keuangan/internal/amqp"
	"keuangan/internal/budget"
	"keuangan/internal/core"
	"keuangan/internal/fetcher"
	"keuangan/internal/reconcile"
	"keuangan/internal/sheets"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SourceAPI tags notifications published after a transaction is recorded.
const SourceAPI = "api"

var (
	ErrCategoryNotFound = errors.New("budget category not found")
	ErrIngestDisabled   = errors.New("transaction ingestion is not configured")
)

// Session is the caller's selection. Only SelectPeriod changes the active
// period; a session on another period is read without caching.
type Session struct {
	Period core.Period
}

// Appender appends one transaction to the ledger.
type Appender interface {
	Append(ctx context.Context, tx core.Transaction) error
}

type (
	// Home is the overview screen: metrics, accounts, cash flow and the
	// per category breakdown.
	Home struct {
		Period     core.Period
		Metrics    core.OverviewMetrics
		Accounts   []core.AccountRow
		CashFlow   sheets.Rows
		Categories []core.BudgetCategoryRow
		// Totals has one row per cash flow type present, in CashFlowTypes
		// order.
		Totals  []core.BudgetCategoryRow
		Remarks []reconcile.Remark
		// RefreshedAt is when the backing snapshot was stored; zero when
		// the data is read live.
		RefreshedAt time.Time
		SnapshotAge time.Duration
	}

	// Drilldown is one category with its ledger for the period.
	Drilldown struct {
		Period       core.Period
		Category     core.BudgetCategoryRow
		Remark       *reconcile.Remark // nil when actual equals planned
		Matrix       aggregate.Matrix
		Transactions []core.Transaction
	}

	// Goal is an active financial goal with its derived figures.
	Goal struct {
		core.FinancialGoal
		Remaining  decimal.Decimal
		Progress   decimal.Decimal
		MonthsLeft int
	}
)

// DashboardService owns the record fetcher; it holds no other state.
type DashboardService struct {
	fetcher   *fetcher.Fetcher
	ledger    aggregate.LedgerColumns
	appender  Appender
	publisher amqp.Publisher
	freshness sheets.RefreshReporter
	now       func() time.Time
}

type Option func(*DashboardService)

func WithAppender(a Appender) Option { return func(s *DashboardService) { s.appender = a } }

// WithPublisher enables change notifications after a transaction is
// recorded.
func WithPublisher(p amqp.Publisher) Option { return func(s *DashboardService) { s.publisher = p } }

// WithRefreshReporter reports the age of mirrored data on the home screen.
func WithRefreshReporter(r sheets.RefreshReporter) Option {
	return func(s *DashboardService) { s.freshness = r }
}

func WithClock(now func() time.Time) Option { return func(s *DashboardService) { s.now = now } }

func NewDashboardService(f *fetcher.Fetcher, ledger aggregate.LedgerColumns, opts ...Option) *DashboardService {
	s := &DashboardService{
		fetcher: f,
		ledger:  ledger.WithDefaults(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CurrentSession returns a session on the month containing now.
func (s *DashboardService) CurrentSession() Session {
	if p, ok := s.fetcher.Active(); ok {
		return Session{Period: p}
	}
	return Session{Period: core.CurrentPeriod(s.now())}
}

// SelectPeriod validates p and makes it the active period.
func (s *DashboardService) SelectPeriod(ctx context.Context, p core.Period) (Session, error) {
	p, err := core.NewPeriod(p.Year, p.Month)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.fetcher.Activate(ctx, p); err != nil {
		return Session{}, err
	}
	return Session{Period: p}, nil
}

// Home loads every table of the overview concurrently.
func (s *DashboardService) Home(ctx context.Context, sess Session) (*Home, error) {
	if err := s.ensureActive(ctx, sess); err != nil {
		return nil, err
	}
	p := sess.Period

	var (
		accounts, cashFlow, overview sheets.Rows
		saved, unallocated, holding  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { accounts, err = s.fetcher.Rows(gctx, p, sheets.Accounts); return })
	g.Go(func() (err error) { cashFlow, err = s.fetcher.Rows(gctx, p, sheets.CashFlow); return })
	g.Go(func() (err error) { overview, err = s.fetcher.Rows(gctx, p, sheets.CategoryOverview); return })
	g.Go(func() (err error) { saved, err = s.fetcher.Value(gctx, p, sheets.TotalSaved); return })
	g.Go(func() (err error) { unallocated, err = s.fetcher.Value(gctx, p, sheets.Unallocated); return })
	g.Go(func() (err error) { holding, err = s.fetcher.Value(gctx, p, sheets.TotalHolding); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics, err := reconcile.ParseMetrics(saved, unallocated, holding)
	if err != nil {
		return nil, err
	}
	accts, err := budget.ParseAccounts(accounts)
	if err != nil {
		return nil, err
	}
	rows, err := reconcile.Reconcile(overview)
	if err != nil {
		return nil, err
	}
	remarks, err := reconcile.Breakdown(rows, metrics.Unallocated)
	if err != nil {
		return nil, err
	}

	home := &Home{
		Period:     p,
		Metrics:    metrics,
		Accounts:   accts,
		CashFlow:   cashFlow,
		Categories: rows,
		Totals:     totalsByType(rows),
		Remarks:    remarks,
	}
	if s.freshness != nil {
		at, err := s.freshness.LastRefreshed(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "Snapshot refresh time unavailable", "period", p.Key(), "error", err)
		} else {
			home.RefreshedAt = at
			home.SnapshotAge = s.now().Sub(at)
		}
	}
	return home, nil
}

func totalsByType(rows []core.BudgetCategoryRow) []core.BudgetCategoryRow {
	totals := reconcile.Totals(rows)
	out := make([]core.BudgetCategoryRow, 0, len(totals))
	for _, t := range core.CashFlowTypes() {
		if row, ok := totals[t]; ok {
			out = append(out, row)
		}
	}
	return out
}

// Categories returns the reconciled category overview.
func (s *DashboardService) Categories(ctx context.Context, sess Session) ([]core.BudgetCategoryRow, error) {
	if err := s.ensureActive(ctx, sess); err != nil {
		return nil, err
	}
	overview, err := s.fetcher.Rows(ctx, sess.Period, sheets.CategoryOverview)
	if err != nil {
		return nil, err
	}
	return reconcile.Reconcile(overview)
}

// Drilldown returns the metrics of one category plus its transactions of
// the period, raw and pivoted by date and budget item.
func (s *DashboardService) Drilldown(ctx context.Context, sess Session, category string) (*Drilldown, error) {
	if err := s.ensureActive(ctx, sess); err != nil {
		return nil, err
	}
	p := sess.Period

	var (
		overview, ledger sheets.Rows
		unallocated      string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { overview, err = s.fetcher.Rows(gctx, p, sheets.CategoryOverview); return })
	g.Go(func() (err error) { ledger, err = s.fetcher.Rows(gctx, p, sheets.MoneyTracker); return })
	g.Go(func() (err error) { unallocated, err = s.fetcher.Value(gctx, p, sheets.Unallocated); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, err := reconcile.Reconcile(overview)
	if err != nil {
		return nil, err
	}
	row, ok := reconcile.Find(rows, category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotFound, category)
	}
	left, err := core.ParseRupiah(unallocated)
	if err != nil {
		return nil, fmt.Errorf("unallocated: %w", err)
	}

	d := &Drilldown{Period: p, Category: row}
	remarks, err := reconcile.Breakdown([]core.BudgetCategoryRow{row}, left)
	if err != nil {
		return nil, err
	}
	if len(remarks) == 1 {
		d.Remark = &remarks[0]
	}

	txs, err := aggregate.ParseLedger(ledger, s.ledger)
	if err != nil {
		return nil, err
	}
	if d.Transactions, err = aggregate.Filter(txs, category, p); err != nil {
		return nil, err
	}
	d.Matrix = aggregate.Pivot(d.Transactions)
	return d, nil
}

// Goals returns the goals not yet funded.
func (s *DashboardService) Goals(ctx context.Context, sess Session) ([]Goal, error) {
	if err := s.ensureActive(ctx, sess); err != nil {
		return nil, err
	}
	rows, err := s.fetcher.Rows(ctx, sess.Period, sheets.AnnualPlanning)
	if err != nil {
		return nil, err
	}
	goals, err := budget.ParseGoals(rows)
	if err != nil {
		return nil, err
	}
	today := s.now()
	active := budget.ActiveGoals(goals)
	out := make([]Goal, len(active))
	for i, g := range active {
		out[i] = Goal{
			FinancialGoal: g,
			Remaining:     g.Remaining(),
			Progress:      g.Progress(),
			MonthsLeft:    g.MonthsLeft(today),
		}
	}
	return out, nil
}

// BudgetItems lists the items planned under category.
func (s *DashboardService) BudgetItems(ctx context.Context, sess Session, category string) ([]string, error) {
	if err := s.ensureActive(ctx, sess); err != nil {
		return nil, err
	}
	rows, err := s.fetcher.Rows(ctx, sess.Period, sheets.MonthlyPlanning)
	if err != nil {
		return nil, err
	}
	return budget.Items(rows, category)
}

// ledgerDependents are the tables whose content changes when a row is
// appended to the money tracker.
var ledgerDependents = []sheets.Table{sheets.MoneyTracker, sheets.CategoryOverview, sheets.CashFlow, sheets.Accounts}

// RecordTransaction appends tx through the ingestion endpoint, drops the
// cached ledger and its dependents, then announces the change.
func (s *DashboardService) RecordTransaction(ctx context.Context, sess Session, tx core.Transaction) error {
	if s.appender == nil {
		return ErrIngestDisabled
	}
	if err := s.ensureActive(ctx, sess); err != nil {
		return err
	}
	if err := s.appender.Append(ctx, tx); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	periods := []core.Period{sess.Period}
	if txPeriod, err := core.PeriodOf(tx.Date.Year(), int(tx.Date.Month())); err == nil && txPeriod != sess.Period {
		periods = append(periods, txPeriod)
	}
	for _, p := range periods {
		s.fetcher.Invalidate(ctx, p, ledgerDependents...)
		s.fetcher.InvalidateValues(ctx, p)
		s.publish(ctx, amqp.NewTablesRefreshed(p, SourceAPI, ledgerDependents...))
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"period", sess.Period.Key(),
		"category", tx.Category,
		"item", tx.Item,
		"amount", core.FormatRupiah(tx.Amount))
	return nil
}

// HandleTablesRefreshed drops the cached copies named by msg. It is the
// consumer side of the change notifications.
func (s *DashboardService) HandleTablesRefreshed(ctx context.Context, msg *amqp.TablesRefreshed) error {
	p, err := msg.ResolvedPeriod()
	if err != nil {
		return err
	}
	s.fetcher.Invalidate(ctx, p, msg.TableList()...)
	s.fetcher.InvalidateValues(ctx, p)
	slog.InfoContext(ctx, "Applied change notification",
		"period", p.Key(), "tables", msg.Tables, "source", msg.Source)
	return nil
}

func (s *DashboardService) publish(ctx context.Context, msg *amqp.TablesRefreshed) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTablesRefreshed(ctx, msg); err != nil {
		// The transaction is already in the sheet.
		slog.ErrorContext(ctx, "Failed to publish change notification", "period", msg.Period, "error", err)
	}
}

// ensureActive validates the session and activates the current month when
// no period has been selected yet.
func (s *DashboardService) ensureActive(ctx context.Context, sess Session) error {
	if err := sess.Period.Validate(); err != nil {
		return err
	}
	_, err := s.fetcher.ActivateIfUnset(ctx, core.CurrentPeriod(s.now()))
	return err
}
