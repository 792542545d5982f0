package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfalke/sharelist/internal/auth"
	"github.com/dmfalke/sharelist/internal/model"
	"github.com/dmfalke/sharelist/internal/store"
)

type ListHandler struct {
	listStore *store.ListStore
	planStore *store.PlanStore
	logger    *slog.Logger
}

func NewListHandler(ls *store.ListStore, ps *store.PlanStore, logger *slog.Logger) *ListHandler {
	return &ListHandler{listStore: ls, planStore: ps, logger: logger}
}

type listRequest struct {
	Name   string `json:"name"`
	PlanID *int64 `json:"plan_id"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())

	if req.PlanID != nil {
		plan, err := h.planStore.GetByID(*req.PlanID)
		if err != nil {
			h.logger.Error("get plan", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create list")
			return
		}
		if plan == nil || plan.OwnerID != userID {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
	}

	list, err := h.listStore.Create(userID, req.Name, req.PlanID)
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create list")
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.listStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list lists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list")
		return
	}
	if lists == nil {
		lists = []model.List{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, anyRole); !ok {
		return
	}

	list, err := h.listStore.GetByID(listID)
	if err != nil || list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Rename(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsManage); !ok {
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list, err := h.listStore.Rename(listID, req.Name)
	if err != nil {
		h.logger.Error("rename list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rename list")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Delete soft-deletes a list. Owner only.
func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, func(role string) bool {
		return role == model.RoleOwner
	}); !ok {
		return
	}

	if err := h.listStore.SoftDelete(listID); err != nil {
		h.logger.Error("delete list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore undoes a soft delete. Owner only; this is the one read/write path
// that works on a deleted list.
func (h *ListHandler) Restore(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, func(role string) bool {
		return role == model.RoleOwner
	}); !ok {
		return
	}

	list, err := h.listStore.Restore(listID)
	if err != nil {
		h.logger.Error("restore list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to restore list")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
