package http

import (
	"net/http"

	"xubudget/internal/services"
)

type addIncomeRequest struct {
	UserID      string      `json:"user_id"`
	Period      string      `json:"period"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Timestamp   string      `json:"timestamp"`
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req addIncomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, _, err := s.svc.AddIncome(r.Context(), userID, period, services.AddIncomeInput{
		Amount:      req.Amount.Decimal,
		Description: req.Description,
		Source:      req.Source,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	limit := queryInt(r, "limit", 0)
	incomes, err := s.svc.Incomes(r.Context(), userID, period, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incomes": incomes})
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, _, err := s.svc.UpdateIncome(r.Context(), userID, period, r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.svc.DeleteIncome(r.Context(), userID, period, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
