package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmfalke/sharelist/internal/model"
	"github.com/dmfalke/sharelist/internal/store"
)

type ContributorHandler struct {
	listStore        *store.ListStore
	contributorStore *store.ContributorStore
	userStore        *store.UserStore
	logger           *slog.Logger
}

func NewContributorHandler(ls *store.ListStore, cs *store.ContributorStore, us *store.UserStore, logger *slog.Logger) *ContributorHandler {
	return &ContributorHandler{listStore: ls, contributorStore: cs, userStore: us, logger: logger}
}

type contributorRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func validRole(role string) bool {
	switch role {
	case model.RoleViewer, model.RoleEditor, model.RoleAdmin:
		return true
	}
	return false
}

func (h *ContributorHandler) List(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, anyRole); !ok {
		return
	}

	contributors, err := h.contributorStore.ListByList(listID)
	if err != nil {
		h.logger.Error("list contributors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list contributors")
		return
	}
	if contributors == nil {
		contributors = []model.Contributor{}
	}
	writeJSON(w, http.StatusOK, contributors)
}

// Upsert grants or changes a contributor role, addressed by email. Requires
// admin or owner on the list.
func (h *ContributorHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsManage)
	if !ok {
		return
	}

	var req contributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusBadRequest, "role must be viewer, editor or admin")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add contributor")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.ID == ac.UserID {
		writeError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	list, err := h.listStore.GetByID(listID)
	if err != nil || list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if user.ID == list.OwnerID {
		writeError(w, http.StatusBadRequest, "owner role is implicit")
		return
	}

	contributor, err := h.contributorStore.Upsert(listID, user.ID, req.Role)
	if err != nil {
		h.logger.Error("upsert contributor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add contributor")
		return
	}
	writeJSON(w, http.StatusOK, contributor)
}

func (h *ContributorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsManage); !ok {
		return
	}

	if err := h.contributorStore.Delete(listID, userID); err != nil {
		h.logger.Error("delete contributor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove contributor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
