package http

import (
	"net/http"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/report"
)

type categoryBreakdown struct {
	Type   core.TransactionType  `json:"transaction_type"`
	Title  string                `json:"title"`
	Totals []core.CategoryAmount `json:"totals"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query(), ownerFrom(r.Context()))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	summary, err := s.reports.Summary(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	f, t, ok := parseBreakdownRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	totals, err := s.reports.CategoryBreakdown(ctx, f, t)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	if totals == nil {
		totals = []core.CategoryAmount{}
	}
	NewJSONResponse().Data(categoryBreakdown{Type: t, Title: report.CategoryTitle(t), Totals: totals}).Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query(), ownerFrom(r.Context()))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	ov, err := s.reports.Overview(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	if ov.Income == nil {
		ov.Income = []core.CategoryAmount{}
	}
	if ov.Expenses == nil {
		ov.Expenses = []core.CategoryAmount{}
	}
	NewJSONResponse().Data(ov).Write(w)
}

func (s *Server) handleIncomeExpenseChart(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query(), ownerFrom(r.Context()))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	series, err := s.reports.IncomeExpenseChart(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	NewJSONResponse().Data(series).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	f, t, ok := parseBreakdownRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	series, err := s.reports.CategoryChart(ctx, f, t)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	NewJSONResponse().Data(series).Write(w)
}

// parseBreakdownRequest reads the required transaction_type and the rest of
// the filter. The type selects the breakdown; it is removed from the filter
// so it is not applied twice.
func parseBreakdownRequest(w http.ResponseWriter, r *http.Request) (core.Filter, core.TransactionType, bool) {
	t, err := ParseBreakdownType(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Filter{}, "", false
	}
	f, err := ParseFilter(r.URL.Query(), ownerFrom(r.Context()))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Filter{}, "", false
	}
	f.Type = ""
	return f, t, true
}
