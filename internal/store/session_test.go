package store

import (
	"testing"
	"time"

	"github.com/dmfalke/sharelist/internal/database"
)

func setupSessionTestDB(t *testing.T, ttl time.Duration) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db, ttl), NewUserStore(db)
}

func TestSessionLifecycle(t *testing.T) {
	ss, us := setupSessionTestDB(t, time.Hour)

	u, _ := us.Create("alice@example.com", "Alice", "hash")

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("session = %+v, want user %d", got, u.ID)
	}

	if err := ss.DeleteByToken(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = ss.GetByToken(sess.Token)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestExpiredSessionInvisible(t *testing.T) {
	ss, us := setupSessionTestDB(t, -time.Minute)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected expired session to be invisible")
	}

	count, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted = %d, want 1", count)
	}
}
