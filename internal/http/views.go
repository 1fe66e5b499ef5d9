package http

import (
	"time"

	"github.com/shopspring/decimal"

	"keuangan/internal/aggregate"
	"keuangan/internal/budget"
	"keuangan/internal/core"
	"keuangan/internal/reconcile"
	"keuangan/internal/services"
)

// moneyView pairs the exact value with its display string.
type moneyView struct {
	Value   decimal.Decimal `json:"value"`
	Display string          `json:"display"`
}

func money(d decimal.Decimal) moneyView {
	return moneyView{Value: d, Display: core.FormatRupiah(d)}
}

type periodView struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

func newPeriodView(p core.Period) periodView {
	return periodView{Year: p.Year, Month: p.Month, Key: p.Key(), Label: p.String()}
}

type metricsView struct {
	TotalSaved   moneyView `json:"total_saved"`
	Unallocated  moneyView `json:"unallocated"`
	TotalHolding moneyView `json:"total_holding"`
}

type accountView struct {
	Label   string    `json:"label"`
	Name    string    `json:"name"`
	Owner   string    `json:"owner,omitempty"`
	Balance moneyView `json:"balance"`
}

type categoryView struct {
	Category   string            `json:"category"`
	Type       core.CashFlowType `json:"type"`
	Planned    moneyView         `json:"planned"`
	Actual     moneyView         `json:"actual"`
	Difference moneyView         `json:"difference"`
}

func newCategoryView(r core.BudgetCategoryRow) categoryView {
	return categoryView{
		Category:   r.Category,
		Type:       r.Type,
		Planned:    money(r.Planned),
		Actual:     money(r.Actual),
		Difference: money(r.Difference()),
	}
}

func newCategoryViews(rows []core.BudgetCategoryRow) []categoryView {
	out := make([]categoryView, 0, len(rows))
	for _, r := range rows {
		out = append(out, newCategoryView(r))
	}
	return out
}

type remarkView struct {
	Category  string              `json:"category"`
	Type      core.CashFlowType   `json:"type"`
	Label     reconcile.Label     `json:"label"`
	Sentiment reconcile.Sentiment `json:"sentiment"`
	Message   string              `json:"message"`
}

func newRemarkView(r reconcile.Remark) remarkView {
	return remarkView{
		Category:  r.Row.Category,
		Type:      r.Row.Type,
		Label:     r.Classification.Label,
		Sentiment: r.Classification.Sentiment,
		Message:   r.Message,
	}
}

// cashFlowView keeps the sheet's column order next to the records.
type cashFlowView struct {
	Header  []string            `json:"header"`
	Records []map[string]string `json:"records"`
}

type homeView struct {
	Period     periodView     `json:"period"`
	Metrics    metricsView    `json:"metrics"`
	Accounts   []accountView  `json:"accounts"`
	CashFlow   cashFlowView   `json:"cash_flow"`
	Categories []categoryView `json:"categories"`
	Totals     []categoryView `json:"totals"`
	Remarks    []remarkView   `json:"remarks"`
	Snapshot   *snapshotView  `json:"snapshot,omitempty"`
}

// snapshotView tells how old the mirrored data behind a response is.
type snapshotView struct {
	RefreshedAt string `json:"refreshed_at"`
	Age         string `json:"age"`
}

func newHomeView(h *services.Home) homeView {
	v := homeView{
		Period: newPeriodView(h.Period),
		Metrics: metricsView{
			TotalSaved:   money(h.Metrics.TotalSaved),
			Unallocated:  money(h.Metrics.Unallocated),
			TotalHolding: money(h.Metrics.TotalHolding),
		},
		Accounts:   make([]accountView, 0, len(h.Accounts)),
		CashFlow:   cashFlowView{Header: h.CashFlow.Header, Records: make([]map[string]string, 0, h.CashFlow.Len())},
		Categories: newCategoryViews(h.Categories),
		Totals:     newCategoryViews(h.Totals),
		Remarks:    make([]remarkView, 0, len(h.Remarks)),
	}
	if !h.RefreshedAt.IsZero() {
		v.Snapshot = &snapshotView{
			RefreshedAt: h.RefreshedAt.UTC().Format(time.RFC3339),
			Age:         h.SnapshotAge.Round(time.Second).String(),
		}
	}
	for _, a := range h.Accounts {
		v.Accounts = append(v.Accounts, accountView{
			Label:   budget.AccountLabel(a),
			Name:    a.Name,
			Owner:   a.Owner,
			Balance: money(a.Balance),
		})
	}
	for _, rec := range h.CashFlow.Records {
		v.CashFlow.Records = append(v.CashFlow.Records, rec)
	}
	for _, r := range h.Remarks {
		v.Remarks = append(v.Remarks, newRemarkView(r))
	}
	return v
}

type seriesView struct {
	Item   string      `json:"item"`
	Values []moneyView `json:"values"`
}

type matrixView struct {
	Dates  []string     `json:"dates"`
	Series []seriesView `json:"series"`
}

func newMatrixView(m aggregate.Matrix) matrixView {
	v := matrixView{Dates: m.Labels(), Series: []seriesView{}}
	if v.Dates == nil {
		v.Dates = []string{}
	}
	for _, s := range m.Series() {
		sv := seriesView{Item: s.Item, Values: make([]moneyView, 0, len(s.Values))}
		for _, d := range s.Values {
			sv.Values = append(sv.Values, money(d))
		}
		v.Series = append(v.Series, sv)
	}
	return v
}

type transactionView struct {
	Date     string            `json:"date"`
	Type     core.CashFlowType `json:"type"`
	Amount   moneyView         `json:"amount"`
	Account  string            `json:"account"`
	Category string            `json:"category"`
	Item     string            `json:"item"`
	Notes    string            `json:"notes,omitempty"`
}

func newTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		Date:     tx.Date.Format(aggregate.DateLayout),
		Type:     tx.Type,
		Amount:   money(tx.Amount),
		Account:  tx.Account,
		Category: tx.Category,
		Item:     tx.Item,
		Notes:    tx.Notes,
	}
}

type drilldownView struct {
	Period       periodView        `json:"period"`
	Category     categoryView      `json:"category"`
	Remark       *remarkView       `json:"remark"`
	Matrix       matrixView        `json:"matrix"`
	Transactions []transactionView `json:"transactions"`
}

func newDrilldownView(d *services.Drilldown) drilldownView {
	v := drilldownView{
		Period:       newPeriodView(d.Period),
		Category:     newCategoryView(d.Category),
		Matrix:       newMatrixView(d.Matrix),
		Transactions: make([]transactionView, 0, len(d.Transactions)),
	}
	if d.Remark != nil {
		r := newRemarkView(*d.Remark)
		v.Remark = &r
	}
	for _, tx := range d.Transactions {
		v.Transactions = append(v.Transactions, newTransactionView(tx))
	}
	return v
}

type goalView struct {
	Label      string          `json:"label"`
	Target     moneyView       `json:"target"`
	Achieved   moneyView       `json:"achieved"`
	Remaining  moneyView       `json:"remaining"`
	Progress   decimal.Decimal `json:"progress"`
	DueDate    string          `json:"due_date"`
	MonthsLeft int             `json:"months_left"`
}

func newGoalViews(goals []services.Goal) []goalView {
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalView{
			Label:      g.Label,
			Target:     money(g.Target),
			Achieved:   money(g.Achieved),
			Remaining:  money(g.Remaining),
			Progress:   g.Progress.Round(2),
			DueDate:    g.DueDate.Format(aggregate.DateLayout),
			MonthsLeft: g.MonthsLeft,
		})
	}
	return out
}
