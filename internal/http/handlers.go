package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/state"
	"budget/internal/views"
)

const (
	navBudget  = "budget"
	navReports = "reports"

	saveFailedMessage = "Could not save the transaction. Please try again."
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/budget", http.StatusFound)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageBudget, "layout", pageData{
		Title:  "Budget",
		Active: navBudget,
		Data:   views.NewBudget(s.svc.State().State()),
	})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageItem, "layout", pageData{
		Title:  t.Description,
		Active: navBudget,
		Data:   views.NewItemDetails(s.svc.State().State(), t),
	})
}

// lookup resolves {id} against the current state and writes a 404 when it
// does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	id, err := parseID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "Transaction not found.")
		return core.Transaction{}, false
	}
	t, ok := state.GetTransactionByID(s.svc.State().State(), id)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Transaction not found.")
		return core.Transaction{}, false
	}
	return t, true
}

func (s *Server) handleNewItem(w http.ResponseWriter, r *http.Request) {
	f, err := newItemForm(newTransactionValues(time.Now()), s.svc.State().State())
	if err != nil {
		s.formFailed(w, r, err)
		return
	}
	defer f.close()
	s.renderForm(w, r, http.StatusOK, f, "New transaction", "/item/new", "/budget", "")
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	now := time.Now()
	f, err := newItemForm(newTransactionValues(now), s.svc.State().State())
	if err != nil {
		s.formFailed(w, r, err)
		return
	}
	defer f.close()

	f.bind(r.PostForm)
	values, ok := f.submit()
	if !ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, f, "New transaction", "/item/new", "/budget", "")
		return
	}

	t, err := transactionFromValues(0, values, now)
	if err == nil {
		t, err = s.svc.Create(r.Context(), t)
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Create transaction failed",
			log.FieldError, err, log.FieldOperation, log.OpCreate)
		s.renderForm(w, r, http.StatusInternalServerError, f, "New transaction", "/item/new", "/budget", saveFailedMessage)
		return
	}
	s.metrics.saved.Add(1)
	s.saved(w, r, t.ID)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	f, err := newItemForm(valuesFromTransaction(t), s.svc.State().State())
	if err != nil {
		s.formFailed(w, r, err)
		return
	}
	defer f.close()
	href := views.ItemHref(t.ID)
	s.renderForm(w, r, http.StatusOK, f, "Edit transaction", href+"/edit", href, "")
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	f, err := newItemForm(valuesFromTransaction(t), s.svc.State().State())
	if err != nil {
		s.formFailed(w, r, err)
		return
	}
	defer f.close()

	href := views.ItemHref(t.ID)
	f.bind(r.PostForm)
	values, ok := f.submit()
	if !ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, f, "Edit transaction", href+"/edit", href, "")
		return
	}

	updated, err := transactionFromValues(t.ID, values, time.Now())
	if err == nil {
		err = s.svc.Update(r.Context(), updated)
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Transaction not found.")
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Update transaction failed",
			log.FieldError, err, log.FieldOperation, log.OpUpdate, log.FieldTransactionID, t.ID)
		s.renderForm(w, r, http.StatusInternalServerError, f, "Edit transaction", href+"/edit", href, saveFailedMessage)
		return
	}
	s.metrics.saved.Add(1)
	s.saved(w, r, t.ID)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	err := s.svc.Delete(r.Context(), t.ID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Transaction not found.")
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Delete transaction failed",
			log.FieldError, err, log.FieldOperation, log.OpDelete, log.FieldTransactionID, t.ID)
		s.renderError(w, r, http.StatusInternalServerError, "Could not delete the transaction. Please try again.")
		return
	}
	s.metrics.deleted.Add(1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, t.ID)

	if isHTMX(r) {
		NewHTMXResponse().
			TriggerTransactionDeleted(t.ID).
			TriggerSuccessNotification("Transaction deleted").
			Redirect("/budget").
			Write(w)
		return
	}
	http.Redirect(w, r, "/budget", http.StatusSeeOther)
}

// saved sends the browser to the details page of id.
func (s *Server) saved(w http.ResponseWriter, r *http.Request, id int64) {
	href := views.ItemHref(id)
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerTransactionSaved(id).
			TriggerSuccessNotification("Transaction saved").
			Redirect(href).
			Write(w)
		return
	}
	http.Redirect(w, r, href, http.StatusSeeOther)
}

// renderForm renders the whole page, or only the form body for htmx. htmx
// does not swap 4xx/5xx responses, so fragments always go out as 200.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, f *itemForm, title, action, cancel, saveErr string) {
	v, err := f.view(title, action, cancel)
	if err != nil {
		s.formFailed(w, r, err)
		return
	}
	v.SaveError = saveErr

	block := "layout"
	if isHTMX(r) {
		block = "item_form_body"
		status = http.StatusOK
	}
	s.render(w, r, status, pageItemForm, block, pageData{Title: title, Active: navBudget, Data: v})
}

func (s *Server) formFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentForm).ErrorContext(r.Context(), "Form setup failed",
		log.FieldError, err, log.FieldPath, r.URL.Path)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please reload the page.")
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	tab := views.NormalizeTab(r.URL.Query().Get("tab"))
	s.metrics.reportRequests.Add(1)

	report, err := s.reports.GetOrLoad(tab, func() (views.Report, error) {
		s.metrics.reportBuilds.Add(1)
		log.FromContext(r.Context()).WithComponent(log.ComponentReport).DebugContext(r.Context(), "Building report", log.FieldTab, tab)
		return views.NewReport(s.svc.State().State(), tab), nil
	})
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not build the report.")
		return
	}

	block := "layout"
	if isHTMX(r) {
		block = "report_panel"
	}
	s.render(w, r, http.StatusOK, pageReports, block, pageData{Title: "Reports", Active: navReports, Data: report})
}

// handleCategoryOptions returns the <option> list for the category filter.
// The current selection stays in the list even when it does not match.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	st := s.svc.State().State()
	q := r.URL.Query()
	selected := q.Get(fieldCategory)

	options := state.SearchCategories(st, q.Get("q"))
	if name := state.GetCategoryByID(selected)(st); name != "" && !containsOption(options, selected) {
		options = append([]state.CategoryOption{{ID: selected, Name: name}}, options...)
	}

	html, err := renderOptions(options, selected)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load categories.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func containsOption(options []state.CategoryOption, id string) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "backend": "ok"}
	if s.pages == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if err := s.ready(ctx); err != nil {
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	st := s.svc.State().State()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("http_request_duration_avg_us", "gauge", "Average response time in microseconds", traceMetrics.AverageResponseTime)
	metric("transactions", "gauge", "Transactions currently loaded", len(st.Transactions))
	metric("transactions_saved_total", "counter", "Transactions created or updated", s.metrics.saved.Load())
	metric("transactions_deleted_total", "counter", "Transactions deleted", s.metrics.deleted.Load())
	metric("report_requests_total", "counter", "Report page requests", s.metrics.reportRequests.Load())
	metric("report_builds_total", "counter", "Reports computed because the cache missed", s.metrics.reportBuilds.Load())
	metric("report_cache_entries", "gauge", "Cached reports", s.reports.Size())
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests matching probe patterns", s.detector.SuspiciousRequests())
	metric("handler_panics_total", "counter", "Handler panics caught by the error boundary", s.metrics.panics.Load())
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.metrics.started).Seconds()))
}
