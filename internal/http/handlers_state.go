package http

import (
	"net/http"

	"xubudget/internal/core"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}

	key := s.viewKey(userID, period.Internal(), "state")
	if cached, ok := s.viewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	state, err := s.svc.State(r.Context(), userID, period, true)
	if err != nil {
		writeError(w, err)
		return
	}
	s.viewCache.Set(key, state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePeriodState(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := core.ParsePeriodExternal(r.PathValue("period"))
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := s.svc.State(r.Context(), userID, period, true)
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.svc.Summary(r.Context(), userID, period, false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   state,
		"summary": summary,
	})
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	writeJSON(w, http.StatusOK, map[string]any{
		"periods": s.svc.Periods(r.Context(), userID),
	})
}

func (s *Server) handleIcons(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	icons, err := s.svc.Icons(r.Context(), userID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"icons": icons})
}

func (s *Server) handleBudgetStructure(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	structure, err := s.svc.Structure(r.Context(), userID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.svc.Categories(),
	})
}
