package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"budget/internal/chart"
	"budget/internal/log"
)

// Page templates. Each is parsed together with the shared layout and chart
// partial.
const (
	pageBudget   = "budget.html"
	pageItem     = "item.html"
	pageItemForm = "item_form.html"
	pageReports  = "reports.html"
	pageError    = "app_error.html"
)

var pageNames = []string{pageBudget, pageItem, pageItemForm, pageReports, pageError}

var templateFuncs = template.FuncMap{
	"viewBox": func(c chart.Chart) string {
		return fmt.Sprintf("%s %s %s %s", num(-c.Width/2), num(-c.Height/2), num(c.Width), num(c.Height))
	},
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// pageData is handed to every page template.
type pageData struct {
	Title  string
	Active string
	Data   any
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html", "templates/chart.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes block of page into a buffer so that template errors never
// produce half-written responses.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, block string, data pageData) {
	t, ok := s.pages[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path, "template", page)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", page, "block", block, log.FieldOperation, log.OpRender)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page, or an error fragment to htmx.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isHTMX(r) {
		var b *HTMXResponseBuilder
		switch status {
		case http.StatusBadRequest:
			b = BadRequestError(message)
		case http.StatusNotFound:
			b = NotFoundError(message)
		default:
			b = ErrorResponse(status, message)
		}
		if status >= http.StatusInternalServerError {
			b.TriggerErrorNotification(message)
		}
		b.Write(w)
		return
	}
	s.render(w, r, status, pageError, "layout", pageData{
		Title: http.StatusText(status),
		Data: struct {
			Status  int
			Message string
		}{status, message},
	})
}
