package http

import (
	"net/http"

	"xubudget/internal/services"
)

type setBudgetRequest struct {
	UserID string      `json:"user_id"`
	Period string      `json:"period"`
	Amount amountField `json:"amount"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
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

	l, err := s.svc.SetBudget(r.Context(), userID, period, req.Amount.Decimal)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"budget":    l.Budget,
		"remaining": l.Remaining,
	})
}

type setCategoryBudgetRequest struct {
	UserID      string      `json:"user_id"`
	Period      string      `json:"period"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Amount      amountField `json:"amount"`
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	var req setCategoryBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Category == "" {
		writeBadRequest(w, "category required")
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := s.svc.SetCategoryBudget(r.Context(), userID, period, req.Category, req.Amount.Decimal)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"category_budgets": l.CategoryBudgets,
		"budget":           l.Budget,
	})
}

func (s *Server) handleSetSubcategoryBudget(w http.ResponseWriter, r *http.Request) {
	var req setCategoryBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Category == "" || req.Subcategory == "" {
		writeBadRequest(w, "category and subcategory required")
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := s.svc.SetSubcategoryBudget(r.Context(), userID, period, req.Category, req.Subcategory, req.Amount.Decimal)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"subcategory_budgets": l.SubcategoryBudgets,
	})
}

type setBudgetModeRequest struct {
	UserID string `json:"user_id"`
	Period string `json:"period"`
	Mode   string `json:"mode"`
}

func (s *Server) handleSetBudgetMode(w http.ResponseWriter, r *http.Request) {
	var req setBudgetModeRequest
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

	l, err := s.svc.SetBudgetMode(r.Context(), userID, period, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"settings": l.Settings})
}

type activateIconRequest struct {
	UserID   string       `json:"user_id"`
	Period   string       `json:"period"`
	Category string       `json:"category"`
	Amount   *amountField `json:"amount"`
}

func (s *Server) handleActivateIcon(w http.ResponseWriter, r *http.Request) {
	var req activateIconRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Category == "" {
		writeBadRequest(w, "category required")
		return
	}
	userID := resolveUser(r, req.UserID)
	period, err := s.bodyPeriod(r, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := s.svc.ActivateCategory(r.Context(), userID, period, req.Category, amountPtr(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"active_icons":     l.ActiveIcons,
		"category_budgets": l.CategoryBudgets,
	})
}

type goalRequest struct {
	UserID string       `json:"user_id"`
	Period string       `json:"period"`
	Name   *string      `json:"name"`
	Target *amountField `json:"target_amount"`
	Saved  *amountField `json:"saved_amount"`
	Status *string      `json:"status"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
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

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	target := amountField{}
	if req.Target != nil {
		target = *req.Target
	}
	goal, _, err := s.svc.CreateGoal(r.Context(), userID, period, name, target.Decimal)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, map[string]any{"goal": goal})
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
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

	goal, _, err := s.svc.UpdateGoal(r.Context(), userID, period, r.PathValue("id"), services.GoalUpdate{
		Name:         req.Name,
		TargetAmount: amountPtr(req.Target),
		SavedAmount:  amountPtr(req.Saved),
		Status:       req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"goal": goal})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID := resolveUser(r, "")
	period, err := resolvePeriod(r, s.svc.CurrentPeriod())
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.svc.DeleteGoal(r.Context(), userID, period, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
