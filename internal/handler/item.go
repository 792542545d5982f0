package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfalke/sharelist/internal/auth"
	"github.com/dmfalke/sharelist/internal/event"
	"github.com/dmfalke/sharelist/internal/model"
	"github.com/dmfalke/sharelist/internal/store"
)

// Broadcaster is the hub surface mutation endpoints depend on. Delivery is
// fire-and-forget; a broadcast never fails the mutating request.
type Broadcaster interface {
	Broadcast(listID int64, ev event.Event)
}

type ItemHandler struct {
	itemStore   *store.ItemStore
	listStore   *store.ListStore
	hub         Broadcaster
	categorizer Categorizer
	logger      *slog.Logger
}

func NewItemHandler(is *store.ItemStore, ls *store.ListStore, hub Broadcaster, cat Categorizer, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{itemStore: is, listStore: ls, hub: hub, categorizer: cat, logger: logger}
}

type itemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Store    string `json:"store"`
}

type toggleRequest struct {
	model.ItemRef
	Checked bool `json:"checked"`
}

type moveRequest struct {
	model.ItemRef
	NewCategory string `json:"new_category"`
	NewStore    string `json:"new_store"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, anyRole); !ok {
		return
	}

	items, err := h.itemStore.ListByList(listID)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Category == "" {
		req.Category = h.categorizer.Categorize(req.Name)
	}

	item, err := h.itemStore.Create(listID, req.Name, req.Category, req.Store, true)
	if err == store.ErrDuplicate {
		writeError(w, http.StatusConflict, "item already exists in this category")
		return
	}
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.broadcast(listID, event.TypeItemAdded, item, ac)
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	existing, err := h.itemStore.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.ListID != listID {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Category == "" {
		req.Category = existing.Category
	}

	item, err := h.itemStore.Update(id, req.Name, req.Category, req.Store)
	if err == store.ErrDuplicate {
		writeError(w, http.StatusConflict, "item already exists in this category")
		return
	}
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.broadcast(listID, event.TypeItemEdited, item, ac)
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	existing, err := h.itemStore.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.ListID != listID {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.itemStore.Delete(id); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.broadcast(listID, event.TypeItemRemoved, existing, ac)
	w.WriteHeader(http.StatusNoContent)
}

// Toggle sets an item's checked state. The item is addressed by id or by
// (name, category); the key form upserts, so concurrent toggles from
// different clients coalesce onto one row.
func (h *ItemHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.ByID() && !req.ByKey() {
		writeError(w, http.StatusBadRequest, "item id or name+category is required")
		return
	}

	item, err := h.itemStore.SetChecked(listID, req.ItemRef, req.Checked, ac.UserID)
	if err != nil {
		h.logger.Error("toggle item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(listID, event.TypeIngredientToggled, item, ac)
	writeJSON(w, http.StatusOK, item)
}

// Move changes an item's category via delete-and-upsert so that two users
// moving the same-named item to the same destination converge on one row.
func (h *ItemHandler) Move(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.ByID() && !req.ByKey() {
		writeError(w, http.StatusBadRequest, "item id or name+category is required")
		return
	}
	if strings.TrimSpace(req.NewCategory) == "" {
		writeError(w, http.StatusBadRequest, "new_category is required")
		return
	}

	item, err := h.itemStore.MoveCategory(listID, req.ItemRef, req.NewCategory)
	if err != nil {
		h.logger.Error("move item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to move item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(listID, event.TypeItemMoved, item, ac)
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) MoveStore(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.ByID() && !req.ByKey() {
		writeError(w, http.StatusBadRequest, "item id or name+category is required")
		return
	}

	item, err := h.itemStore.MoveStore(listID, req.ItemRef, req.NewStore)
	if err != nil {
		h.logger.Error("move item store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to move item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(listID, event.TypeItemMovedStore, item, ac)
	writeJSON(w, http.StatusOK, item)
}

// ClearChecked bulk-deletes checked items and broadcasts the count. Clients
// already hold the deleted ids locally; the count tells them to drop them.
func (h *ItemHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	ac, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite)
	if !ok {
		return
	}

	count, err := h.itemStore.ClearChecked(listID)
	if err != nil {
		h.logger.Error("clear checked", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear checked items")
		return
	}

	h.hub.Broadcast(listID, event.NewClearedEvent(count, actorFrom(ac)))
	writeJSON(w, http.StatusOK, map[string]int64{"deletedCount": count})
}

// Replace rewrites the whole list (e.g. after regenerating it from a meal
// plan) and broadcasts a full-state replacement.
func (h *ItemHandler) Replace(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "list_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list_id")
		return
	}

	if _, ok := requireRole(w, r, h.listStore, h.logger, listID, model.RoleAllowsWrite); !ok {
		return
	}

	var req struct {
		Items []itemRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	replacement := make([]model.Item, 0, len(req.Items))
	for _, it := range req.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "every item needs a name")
			return
		}
		category := it.Category
		if category == "" {
			category = h.categorizer.Categorize(name)
		}
		replacement = append(replacement, model.Item{Name: name, Category: category, Store: it.Store})
	}

	items, err := h.itemStore.ReplaceAll(listID, replacement)
	if err != nil {
		h.logger.Error("replace items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to replace items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	h.hub.Broadcast(listID, event.NewInitialEvent(items))
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) broadcast(listID int64, t event.Type, item *model.Item, ac auth.AuthContext) {
	h.hub.Broadcast(listID, event.NewItemEvent(t, item, actorFrom(ac)))
}

func actorFrom(ac auth.AuthContext) event.Actor {
	return event.Actor{UserID: ac.UserID, Name: ac.DisplayName}
}
