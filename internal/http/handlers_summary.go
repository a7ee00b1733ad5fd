package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"terptracker/internal/auth"
	"terptracker/internal/core"
	"terptracker/internal/log"
)

// basePalette holds the fill colors cycled through for pie chart slices.
var basePalette = []string{
	"rgba(75, 192, 192, 0.5)",
	"rgba(255, 99, 132, 0.5)",
	"rgba(255, 206, 86, 0.5)",
	"rgba(54, 162, 235, 0.5)",
	"rgba(153, 102, 255, 0.5)",
	"rgba(255, 159, 64, 0.5)",
	"rgba(201, 203, 207, 0.5)",
}

// parseMonth splits a "YYYY-MM" month picker value.
func parseMonth(value string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed month %q", value)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed month %q", value)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("malformed month %q", value)
	}
	return year, month, nil
}

// monthExpenses runs the month-window query for the current user and
// returns the records in display form.
func (s *Server) monthExpenses(r *http.Request, monthValue string) ([]core.SummaryRecord, error) {
	user, _ := auth.CurrentUser(r.Context())

	year, month, err := parseMonth(monthValue)
	if err != nil {
		return nil, err
	}
	window, err := core.WindowForMonth(year, month)
	if err != nil {
		return nil, err
	}

	records, err := s.expenses.QueryMonth(r.Context(), user.Email, window)
	if err != nil {
		return nil, err
	}
	return core.Normalize(records), nil
}

func (s *Server) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary.html", nil)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	monthValue := r.Form.Get("month")

	expenses, err := s.monthExpenses(r, monthValue)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Summary query failed",
			log.FieldOperation, log.OpQuery,
			"month", monthValue,
			log.FieldError, err)
		addFlash(w, r, "Could not load your expenses for that month", "error")
		s.render(w, r, "summary.html", nil)
		return
	}

	s.render(w, r, "summary_table.html", map[string]any{
		"SelectedMonth": monthValue,
		"Expenses":      expenses,
	})
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	monthValue := r.Form.Get("month")
	if monthValue == "" {
		http.Redirect(w, r, "/summary", http.StatusSeeOther)
		return
	}

	expenses, err := s.monthExpenses(r, monthValue)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Pie chart query failed",
			log.FieldOperation, log.OpQuery,
			"month", monthValue,
			log.FieldError, err)
		addFlash(w, r, "Could not load your expenses for that month", "error")
		s.render(w, r, "summary.html", nil)
		return
	}

	labels, values, colors := categoryBreakdown(expenses)
	labelsJSON, _ := json.Marshal(labels)
	valuesJSON, _ := json.Marshal(values)
	colorsJSON, _ := json.Marshal(colors)

	s.render(w, r, "pie_chart.html", map[string]any{
		"SelectedMonth": monthValue,
		"Expenses":      expenses,
		"Labels":        template.JS(labelsJSON),
		"Values":        template.JS(valuesJSON),
		"Colors":        template.JS(colorsJSON),
	})
}

// categoryBreakdown sums amounts per category, sorted by category name so
// slice colors are stable across reloads.
func categoryBreakdown(expenses []core.SummaryRecord) (labels []string, values []float64, colors []string) {
	totals := make(map[string]float64)
	for _, e := range expenses {
		totals[e.Category] += e.Amount
	}

	labels = make([]string, 0, len(totals))
	for category := range totals {
		labels = append(labels, category)
	}
	sort.Strings(labels)

	values = make([]float64, 0, len(labels))
	colors = make([]string, 0, len(labels))
	for i, category := range labels {
		values = append(values, totals[category])
		colors = append(colors, basePalette[i%len(basePalette)])
	}
	return labels, values, colors
}
