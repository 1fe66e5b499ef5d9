package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keuangan/internal/aggregate"
	"keuangan/internal/core"
	"keuangan/internal/fetcher"
	"keuangan/internal/ingest"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/services"
	"keuangan/internal/sheets/memory"
)

type fakeAppender struct {
	mu  sync.Mutex
	txs []core.Transaction
}

func (f *fakeAppender) Append(_ context.Context, tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}, Component: log.ComponentHTTP})
}

func newTestServer(t *testing.T, svcOpts []services.Option, opts ...Option) (*Server, *memory.Store) {
	t.Helper()
	src := memory.NewDemo()
	clock := func() time.Time { return time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC) }
	svc := services.NewDashboardService(
		fetcher.New(src, fetcher.Options{}),
		aggregate.DefaultLedgerColumns(),
		append([]services.Option{services.WithClock(clock)}, svcOpts...)...,
	)
	srv := NewServer(":0", svc, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, src
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	down, _ := newTestServer(t, nil, WithReadyCheck(func(context.Context) error { return errors.New("sheets unreachable") }))
	rr = do(t, down, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "sheets unreachable", decode(t, rr)["backend"])
}

func TestPeriodEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/period", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Desember 2025", decode(t, rr)["label"])

	rr = do(t, srv, http.MethodPut, "/api/period", `{"year":2025,"month":"november"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "November", decode(t, rr)["month"])

	rr = do(t, srv, http.MethodGet, "/api/period", "")
	assert.Equal(t, "2025-11", decode(t, rr)["key"])

	rr = do(t, srv, http.MethodPut, "/api/period", `{"year":2025,"month":"Smarch"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_period", decode(t, rr)["kind"])

	rr = do(t, srv, http.MethodPut, "/api/period", `{"year":2025,"month":"Mei","day":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHome(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/home", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var home homeView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &home))
	assert.Equal(t, "2025-12", home.Period.Key)
	assert.Equal(t, "Rp 250.000,00", home.Metrics.Unallocated.Display)
	assert.Len(t, home.Accounts, 5)
	assert.Equal(t, []string{"Cash Flow", "Planned", "Actual", "Difference"}, home.CashFlow.Header)
	assert.Len(t, home.Categories, 6)
	assert.Len(t, home.Remarks, 4)
	require.Len(t, home.Totals, 3)
	assert.Equal(t, "Rp 15.000.000,00", home.Totals[1].Planned.Display)
	assert.Nil(t, home.Snapshot, "live data has no snapshot")
}

type fixedRefresh time.Time

func (f fixedRefresh) LastRefreshed(context.Context, core.Period) (time.Time, error) {
	return time.Time(f), nil
}

func TestHomeReportsSnapshot(t *testing.T) {
	at := time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC)
	srv, _ := newTestServer(t, []services.Option{services.WithRefreshReporter(fixedRefresh(at))})

	rr := do(t, srv, http.MethodGet, "/api/home", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var home homeView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &home))
	require.NotNil(t, home.Snapshot)
	assert.Equal(t, "2025-12-15T09:00:00Z", home.Snapshot.RefreshedAt)
	assert.Equal(t, "1h0m0s", home.Snapshot.Age)
}

func TestHomeByQuery(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/home?year=2025&month=12", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Desember", decode(t, rr)["period"].(map[string]any)["month"])

	rr = do(t, srv, http.MethodGet, "/api/home?year=2025&month=13", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/home?year=2025", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueryPeriodDoesNotChangeSelection(t *testing.T) {
	srv, src := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPut, "/api/period", `{"year":2025,"month":"Desember"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/categories", "").Code)
	reads := src.Reads()

	rr = do(t, srv, http.MethodGet, "/api/categories?year=2025&month=11", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "November", decode(t, rr)["period"].(map[string]any)["month"])

	rr = do(t, srv, http.MethodGet, "/api/period", "")
	assert.Equal(t, "Desember", decode(t, rr)["month"])

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/categories", "").Code)
	assert.Equal(t, reads+1, src.Reads(), "only the November read reached the worksheet")
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	srv, src := newTestServer(t, nil)
	src.FailWith(errors.New("quota exceeded"))

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "fetch", body["kind"])
	assert.Equal(t, rr.Header().Get("X-Request-Id"), body["request_id"])
}

func TestDrilldown(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/categories/Kebutuhan%20Harian", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var d drilldownView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, "Kebutuhan Harian", d.Category.Category)
	require.NotNil(t, d.Remark)
	assert.Equal(t, "You overspent Rp 400.000,00 more than planned!", d.Remark.Message)
	assert.Equal(t, []string{"2025-12-02", "2025-12-05", "2025-12-12"}, d.Matrix.Dates)
	require.Len(t, d.Matrix.Series, 3)
	assert.Equal(t, "Belanja Dapur", d.Matrix.Series[0].Item)
	assert.Len(t, d.Transactions, 5)

	rr = do(t, srv, http.MethodGet, "/api/categories/Hiburan", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode(t, rr)["kind"])
}

func TestBudgetItemsAndGoals(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/categories/Tagihan/items", "")
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode(t, rr)["items"].([]any)
	assert.Contains(t, items, "Listrik")

	rr = do(t, srv, http.MethodGet, "/api/goals", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Goals []goalView `json:"goals"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Goals, 2)
	assert.Equal(t, "Rp 36.000.000,00", body.Goals[0].Remaining.Display)
	assert.Equal(t, 12, body.Goals[0].MonthsLeft)
}

const validTx = `{"date":"2025-12-20","type":"Expense","amount":"Rp 75.000","account":"BCA","category":"Kebutuhan Harian","item":"Jajan","notes":"kopi"}`

func TestRecordTransaction(t *testing.T) {
	app := &fakeAppender{}
	srv, src := newTestServer(t, []services.Option{services.WithAppender(app)})

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/home", "").Code)
	reads := src.Reads()

	rr := do(t, srv, http.MethodPost, "/api/transactions", validTx)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, app.txs, 1)
	assert.Equal(t, "75000", app.txs[0].Amount.String())
	assert.Equal(t, "kopi", app.txs[0].Notes)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/home", "").Code)
	assert.Greater(t, src.Reads(), reads, "ledger dependents are re-read after a transaction")
}

func TestRecordTransactionRejected(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"date":`, http.StatusBadRequest},
		{"unknown field", `{"date":"2025-12-20","colour":"red"}`, http.StatusBadRequest},
		{"missing fields", `{"date":"2025-12-20","type":"Expense","amount":1000}`, http.StatusBadRequest},
		{"bad type", `{"date":"2025-12-20","type":"Transfer","amount":1000,"account":"a","category":"c","item":"i"}`, http.StatusBadRequest},
		{"negative amount", `{"date":"20/12/2025","type":"Expense","amount":-5,"account":"a","category":"c","item":"i"}`, http.StatusBadRequest},
	}
	srv, _ := newTestServer(t, []services.Option{services.WithAppender(&fakeAppender{})}, WithRateLimit(ratelimit.Config{Requests: 100}))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tc.body)
			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
			assert.Equal(t, "invalid_transaction", decode(t, rr)["kind"])
		})
	}
}

func TestRecordTransactionWithoutIngest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rr := do(t, srv, http.MethodPost, "/api/transactions", validTx)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRecordTransactionUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("script disabled"))
	}))
	defer upstream.Close()

	srv, _ := newTestServer(t, []services.Option{services.WithAppender(ingest.NewClient(upstream.URL))})
	rr := do(t, srv, http.MethodPost, "/api/transactions", validTx)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, float64(http.StatusForbidden), body["upstream_status"])
	assert.Equal(t, "script disabled", body["upstream_body"])
}

func TestRecordTransactionRateLimited(t *testing.T) {
	srv, _ := newTestServer(t,
		[]services.Option{services.WithAppender(&fakeAppender{})},
		WithRateLimit(ratelimit.Config{Requests: 1, Window: time.Hour}))

	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", validTx).Code)
	rr := do(t, srv, http.MethodPost, "/api/transactions", validTx)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are not limited
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/period", "").Code)
}

func TestRouting(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodDelete, "/api/home", "").Code)
}
