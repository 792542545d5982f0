package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmfalke/sharelist/internal/auth"
	"github.com/dmfalke/sharelist/internal/database"
	"github.com/dmfalke/sharelist/internal/model"
	"github.com/dmfalke/sharelist/internal/store"
)

type planFixture struct {
	handler *PlanHandler
	listH   *ListHandler
	plans   *store.PlanStore
	alice   *model.User
	bob     *model.User
}

func setupPlanFixture(t *testing.T) *planFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	lists := store.NewListStore(db)
	plans := store.NewPlanStore(db)

	alice, err := users.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := users.Create("bob@example.com", "Bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	return &planFixture{
		handler: NewPlanHandler(plans, slog.Default()),
		listH:   NewListHandler(lists, plans, slog.Default()),
		plans:   plans,
		alice:   alice,
		bob:     bob,
	}
}

func (f *planFixture) request(method string, as *model.User, body string, planID int64) *http.Request {
	req := httptest.NewRequest(method, "/api/plans", strings.NewReader(body))
	if planID != 0 {
		req.SetPathValue("plan_id", fmt.Sprint(planID))
	}
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{UserID: as.ID, DisplayName: as.DisplayName})
	return req.WithContext(ctx)
}

func TestPlanLifecycle(t *testing.T) {
	f := setupPlanFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Create(rec, f.request(http.MethodPost, f.alice, `{"name":"Week 35","week_start":"2026-08-24"}`, 0))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var plan model.MealPlan
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.Name != "Week 35" || plan.WeekStart != "2026-08-24" {
		t.Errorf("plan = %q/%q, want Week 35/2026-08-24", plan.Name, plan.WeekStart)
	}
	if plan.OwnerID != f.alice.ID {
		t.Errorf("owner = %d, want %d", plan.OwnerID, f.alice.ID)
	}

	rec = httptest.NewRecorder()
	f.handler.List(rec, f.request(http.MethodGet, f.alice, "", 0))
	var plans []model.MealPlan
	if err := json.NewDecoder(rec.Body).Decode(&plans); err != nil {
		t.Fatalf("decode plans: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != plan.ID {
		t.Fatalf("plans = %+v, want the one created", plans)
	}

	// Another user sees nothing.
	rec = httptest.NewRecorder()
	f.handler.List(rec, f.request(http.MethodGet, f.bob, "", 0))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("bob's plans = %s, want []", body)
	}

	rec = httptest.NewRecorder()
	f.handler.Delete(rec, f.request(http.MethodDelete, f.alice, "", plan.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
	got, err := f.plans.GetByID(plan.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected plan gone after delete")
	}
}

func TestPlanCreateValidation(t *testing.T) {
	f := setupPlanFixture(t)

	for name, body := range map[string]string{
		"empty name":     `{"name":"  "}`,
		"bad json":       `{`,
		"bad week_start": `{"name":"Week 35","week_start":"next monday"}`,
	} {
		rec := httptest.NewRecorder()
		f.handler.Create(rec, f.request(http.MethodPost, f.alice, body, 0))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestPlanDeleteForeign(t *testing.T) {
	f := setupPlanFixture(t)

	plan, err := f.plans.Create(f.alice.ID, "Week 35", "")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Delete(rec, f.request(http.MethodDelete, f.bob, "", plan.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if got, _ := f.plans.GetByID(plan.ID); got == nil {
		t.Error("foreign delete removed the plan")
	}
}

func TestListCreateFromPlan(t *testing.T) {
	f := setupPlanFixture(t)

	plan, err := f.plans.Create(f.alice.ID, "Week 35", "2026-08-24")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	body := fmt.Sprintf(`{"name":"Week 35 shopping","plan_id":%d}`, plan.ID)
	rec := httptest.NewRecorder()
	f.listH.Create(rec, f.request(http.MethodPost, f.alice, body, 0))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var list model.List
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.PlanID == nil || *list.PlanID != plan.ID {
		t.Errorf("plan_id = %v, want %d", list.PlanID, plan.ID)
	}

	// Bob cannot create a list from Alice's plan.
	rec = httptest.NewRecorder()
	f.listH.Create(rec, f.request(http.MethodPost, f.bob, body, 0))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign plan status = %d, want 404", rec.Code)
	}
}
