package http

import (
	"net/http"

	"xubudget/internal/core"
	"xubudget/internal/services"
)

func (s *Server) bodyPeriod(r *http.Request, raw string) (core.Period, error) {
	if raw != "" {
		return core.ParsePeriodExternal(raw)
	}
	return resolvePeriod(r, s.svc.CurrentPeriod())
}

type addExpenseRequest struct {
	UserID      string      `json:"user_id"`
	Period      string      `json:"period"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Merchant    string      `json:"merchant"`
	Timestamp   string      `json:"timestamp"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
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

	entry, l, err := s.svc.AddExpense(r.Context(), userID, period, services.AddExpenseInput{
		Amount:      req.Amount.Decimal,
		Description: req.Description,
		Category:    req.Category,
		Merchant:    req.Merchant,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"entry":         entry,
		"monthly_spent": l.MonthlySpent,
		"remaining":     l.Remaining,
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}
	limit := queryInt(r, "limit", 0)
	expenses, err := s.svc.Expenses(r.Context(), userID, period, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

type updateEntryRequest struct {
	UserID      string       `json:"user_id"`
	Period      string       `json:"period"`
	Amount      *amountField `json:"amount"`
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Merchant    *string      `json:"merchant"`
	Source      *string      `json:"source"`
	Timestamp   *string      `json:"timestamp"`
}

func (req *updateEntryRequest) toUpdate() services.EntryUpdate {
	up := services.EntryUpdate{
		Description: req.Description,
		Category:    req.Category,
		Merchant:    req.Merchant,
		Source:      req.Source,
		Timestamp:   req.Timestamp,
	}
	if req.Amount != nil {
		up.Amount = &req.Amount.Decimal
	}
	return up
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
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

	entry, l, err := s.svc.UpdateExpense(r.Context(), userID, period, r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"entry":         entry,
		"monthly_spent": l.MonthlySpent,
		"remaining":     l.Remaining,
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := s.svc.DeleteExpense(r.Context(), userID, period, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":       true,
		"monthly_spent": l.MonthlySpent,
		"remaining":     l.Remaining,
	})
}

type reclassifyRequest struct {
	UserID    string `json:"user_id"`
	Period    string `json:"period"`
	ExpenseID string `json:"expense_id"`
	Category  string `json:"category"`
}

func (s *Server) handleReclassify(w http.ResponseWriter, r *http.Request) {
	var req reclassifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ExpenseID == "" {
		writeBadRequest(w, "expense_id required")
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, _, err := s.svc.Reclassify(r.Context(), userID, period, req.ExpenseID, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

type learnMerchantRequest struct {
	UserID   string `json:"user_id"`
	Period   string `json:"period"`
	Merchant string `json:"merchant"`
	Category string `json:"category"`
}

func (s *Server) handleLearnMerchant(w http.ResponseWriter, r *http.Request) {
	var req learnMerchantRequest
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

	updated, l, err := s.svc.LearnMerchantCategory(r.Context(), userID, period, req.Merchant, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"reclassified":   updated,
		"merchant_rules": l.MerchantRules,
	})
}
