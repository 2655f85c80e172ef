package http

import (
	"net/http"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}

	key := s.viewKey(userID, period.Internal(), "summary")
	if cached, ok := s.viewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.svc.Summary(r.Context(), userID, period, true)
	if err != nil {
		writeError(w, err)
		return
	}
	s.viewCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSafeToSpend(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	projection, err := s.svc.SafeToSpend(r.Context(), userID, period, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (s *Server) handleCategoryAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	name := r.PathValue("name")
	if name == "" {
		writeBadRequest(w, "category name required")
		return
	}
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	analysis, err := s.svc.Analysis(r.Context(), userID, period, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleDailyBriefing(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	briefing, err := s.svc.DailyBriefing(r.Context(), userID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"briefing": briefing})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	days := queryInt(r, "days", 30)
	limit := queryInt(r, "limit", 50)
	items, err := s.svc.Timeline(r.Context(), userID, period, days, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": items})
}
