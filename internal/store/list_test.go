package store

import (
	"testing"

	"github.com/dmfalke/sharelist/internal/database"
	"github.com/dmfalke/sharelist/internal/model"
)

func setupListTestDB(t *testing.T) (*ListStore, *ContributorStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewListStore(db), NewContributorStore(db), NewUserStore(db)
}

func TestListCRUD(t *testing.T) {
	ls, _, us := setupListTestDB(t)

	owner, _ := us.Create("alice@example.com", "Alice", "hash")

	list, err := ls.Create(owner.ID, "Groceries", nil)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if list.OwnerID != owner.ID || list.Name != "Groceries" {
		t.Errorf("list = %+v", list)
	}
	if list.PlanID != nil || list.DeletedAt != nil {
		t.Errorf("expected standalone, live list: %+v", list)
	}

	renamed, err := ls.Rename(list.ID, "Weekly Shop")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Weekly Shop" {
		t.Errorf("name = %q, want Weekly Shop", renamed.Name)
	}

	lists, err := ls.ListForUser(owner.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 list, got %d", len(lists))
	}
}

func TestRoleResolution(t *testing.T) {
	ls, cs, us := setupListTestDB(t)

	owner, _ := us.Create("alice@example.com", "Alice", "hash")
	editor, _ := us.Create("bob@example.com", "Bob", "hash")
	stranger, _ := us.Create("carol@example.com", "Carol", "hash")

	list, _ := ls.Create(owner.ID, "Groceries", nil)
	if _, err := cs.Upsert(list.ID, editor.ID, model.RoleEditor); err != nil {
		t.Fatalf("add contributor: %v", err)
	}

	tests := []struct {
		name   string
		userID int64
		want   string
	}{
		{"owner", owner.ID, model.RoleOwner},
		{"editor", editor.ID, model.RoleEditor},
		{"stranger", stranger.ID, ""},
	}
	for _, tt := range tests {
		role, err := ls.RoleFor(list.ID, tt.userID)
		if err != nil {
			t.Fatalf("%s: role for: %v", tt.name, err)
		}
		if role != tt.want {
			t.Errorf("%s: role = %q, want %q", tt.name, role, tt.want)
		}
	}

	role, err := ls.RoleFor(9999, owner.ID)
	if err != nil {
		t.Fatalf("role for missing list: %v", err)
	}
	if role != "" {
		t.Errorf("role = %q, want empty for missing list", role)
	}
}

func TestContributorRoleIsSingular(t *testing.T) {
	ls, cs, us := setupListTestDB(t)

	owner, _ := us.Create("alice@example.com", "Alice", "hash")
	bob, _ := us.Create("bob@example.com", "Bob", "hash")
	list, _ := ls.Create(owner.ID, "Groceries", nil)

	cs.Upsert(list.ID, bob.ID, model.RoleViewer)
	c, err := cs.Upsert(list.ID, bob.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("upsert role: %v", err)
	}
	if c.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", c.Role)
	}

	contributors, _ := cs.ListByList(list.ID)
	if len(contributors) != 1 {
		t.Fatalf("expected 1 role record per (list, user), got %d", len(contributors))
	}
}

func TestSoftDeleteVisibility(t *testing.T) {
	ls, cs, us := setupListTestDB(t)

	owner, _ := us.Create("alice@example.com", "Alice", "hash")
	editor, _ := us.Create("bob@example.com", "Bob", "hash")
	list, _ := ls.Create(owner.ID, "Groceries", nil)
	cs.Upsert(list.ID, editor.ID, model.RoleEditor)

	if err := ls.SoftDelete(list.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// A deleted list is invisible to contributors but the owner keeps the
	// restore path.
	role, _ := ls.RoleFor(list.ID, editor.ID)
	if role != "" {
		t.Errorf("editor role on deleted list = %q, want empty", role)
	}
	role, _ = ls.RoleFor(list.ID, owner.ID)
	if role != model.RoleOwner {
		t.Errorf("owner role on deleted list = %q, want owner", role)
	}

	lists, _ := ls.ListForUser(editor.ID)
	if len(lists) != 0 {
		t.Errorf("deleted list visible in listing: %+v", lists)
	}

	restored, err := ls.Restore(list.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Error("expected deleted_at cleared after restore")
	}
	role, _ = ls.RoleFor(list.ID, editor.ID)
	if role != model.RoleEditor {
		t.Errorf("editor role after restore = %q, want editor", role)
	}
}

func TestPlanLinkedList(t *testing.T) {
	ls, _, us := setupListTestDB(t)

	db := ls.db
	ps := NewPlanStore(db)

	owner, _ := us.Create("alice@example.com", "Alice", "hash")
	plan, err := ps.Create(owner.ID, "Week 35", "2026-08-24")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	list, err := ls.Create(owner.ID, "Week 35 shopping", &plan.ID)
	if err != nil {
		t.Fatalf("create linked list: %v", err)
	}
	if list.PlanID == nil || *list.PlanID != plan.ID {
		t.Errorf("plan_id = %v, want %d", list.PlanID, plan.ID)
	}
}
