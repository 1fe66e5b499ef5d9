package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/services"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":         "ok",
		"uptime":         time.Since(s.started).Round(time.Second).String(),
		"requests":       s.trace.TotalRequests(),
		"rate_limited":   s.limiter.Rejected(),
		"suspicious":     s.detector.SuspiciousCount(),
		"active_clients": s.limiter.ActiveClients(),
	}).Write(w)
}

// handleReady reports whether the worksheet backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Body(map[string]string{"status": "not_ready", "backend": err.Error()}).
			Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready", "backend": "ok"}).Write(w)
}

// session resolves the period of a request: the ?year=&month= query when
// present, the active period otherwise.
func (s *Server) session(r *http.Request) (services.Session, error) {
	p, ok, err := PeriodParams(r.URL.Query())
	if err != nil {
		return services.Session{}, err
	}
	if !ok {
		return s.dashboard.CurrentSession(), nil
	}
	return services.Session{Period: p}, nil
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(newPeriodView(s.dashboard.CurrentSession().Period)).Write(w)
}

func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := DecodePeriod(r)
	if err != nil {
		writeError(w, r, "select_period", err)
		return
	}
	sess, err := s.dashboard.SelectPeriod(r.Context(), p)
	if err != nil {
		writeError(w, r, "select_period", err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Period selected", log.FieldPeriod, sess.Period.Key())
	NewJSONResponse().Body(newPeriodView(sess.Period)).Write(w)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "home", err)
		return
	}
	home, err := s.dashboard.Home(r.Context(), sess)
	if err != nil {
		writeError(w, r, "home", err)
		return
	}
	NewJSONResponse().Body(newHomeView(home)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "categories", err)
		return
	}
	rows, err := s.dashboard.Categories(r.Context(), sess)
	if err != nil {
		writeError(w, r, "categories", err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"period":     newPeriodView(sess.Period),
		"categories": newCategoryViews(rows),
	}).Write(w)
}

func (s *Server) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "drilldown", err)
		return
	}
	d, err := s.dashboard.Drilldown(r.Context(), sess, mux.Vars(r)["category"])
	if err != nil {
		writeError(w, r, "drilldown", err)
		return
	}
	NewJSONResponse().Body(newDrilldownView(d)).Write(w)
}

func (s *Server) handleBudgetItems(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "budget_items", err)
		return
	}
	category := mux.Vars(r)["category"]
	items, err := s.dashboard.BudgetItems(r.Context(), sess, category)
	if err != nil {
		writeError(w, r, "budget_items", err)
		return
	}
	if items == nil {
		items = []string{}
	}
	NewJSONResponse().Body(map[string]any{"category": category, "items": items}).Write(w)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "goals", err)
		return
	}
	goals, err := s.dashboard.Goals(r.Context(), sess)
	if err != nil {
		writeError(w, r, "goals", err)
		return
	}
	NewJSONResponse().Body(map[string]any{"goals": newGoalViews(goals)}).Write(w)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, "record_transaction", err)
		return
	}
	tx, err := DecodeTransaction(r)
	if err != nil {
		writeError(w, r, "record_transaction", err)
		return
	}
	if err := s.dashboard.RecordTransaction(r.Context(), sess, tx); err != nil {
		writeError(w, r, "record_transaction", err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionRecorded(r.Context(), sess.Period.Key(), tx.Category, tx.Item, core.FormatRupiah(tx.Amount))
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]any{
			"status":      "recorded",
			"period":      newPeriodView(sess.Period),
			"transaction": newTransactionView(tx),
		}).
		Write(w)
}
