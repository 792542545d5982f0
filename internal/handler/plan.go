package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmfalke/sharelist/internal/auth"
	"github.com/dmfalke/sharelist/internal/model"
	"github.com/dmfalke/sharelist/internal/store"
)

// PlanHandler serves meal plans. Plans are owner-scoped only: they exist so
// a shopping list can be created from one, and the contributor role model
// never applies to them.
type PlanHandler struct {
	planStore *store.PlanStore
	logger    *slog.Logger
}

func NewPlanHandler(ps *store.PlanStore, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{planStore: ps, logger: logger}
}

type planRequest struct {
	Name      string `json:"name"`
	WeekStart string `json:"week_start"`
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.WeekStart != "" {
		if _, err := time.Parse("2006-01-02", req.WeekStart); err != nil {
			writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
	}

	plan, err := h.planStore.Create(auth.UserID(r.Context()), req.Name, req.WeekStart)
	if err != nil {
		h.logger.Error("create plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list plans", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []model.MealPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// Delete removes a plan. Lists created from it keep their items; only the
// plan reference is cleared.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	planID, err := parseIDParam(r, "plan_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan_id")
		return
	}

	plan, err := h.planStore.GetByID(planID)
	if err != nil {
		h.logger.Error("get plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	if plan == nil || plan.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	if err := h.planStore.Delete(planID); err != nil {
		h.logger.Error("delete plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
