package store

import (
	"database/sql"
	"fmt"

	"github.com/dmfalke/sharelist/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	var planID sql.NullInt64
	var deletedAt sql.NullTime

	err := scanner.Scan(&l.ID, &l.OwnerID, &l.Name, &planID, &deletedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if planID.Valid {
		l.PlanID = &planID.Int64
	}
	if deletedAt.Valid {
		l.DeletedAt = &deletedAt.Time
	}
	return &l, nil
}

const listCols = `id, owner_id, name, plan_id, deleted_at, created_at`

func (s *ListStore) Create(ownerID int64, name string, planID *int64) (*model.List, error) {
	var pID sql.NullInt64
	if planID != nil {
		pID = sql.NullInt64{Int64: *planID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO lists (owner_id, name, plan_id) VALUES (?, ?, ?)`,
		ownerID, name, pID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the list regardless of soft-delete state. Callers decide
// visibility via RoleFor, which hides deleted lists from everyone but the
// owner.
func (s *ListStore) GetByID(id int64) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

// ListForUser returns all non-deleted lists the user owns or contributes to.
func (s *ListStore) ListForUser(userID int64) ([]model.List, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT l.id, l.owner_id, l.name, l.plan_id, l.deleted_at, l.created_at
		 FROM lists l
		 LEFT JOIN contributors c ON c.list_id = l.id
		 WHERE l.deleted_at IS NULL AND (l.owner_id = ? OR c.user_id = ?)
		 ORDER BY l.created_at ASC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func (s *ListStore) Rename(id int64, name string) (*model.List, error) {
	_, err := s.db.Exec(`UPDATE lists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("rename list: %w", err)
	}
	return s.GetByID(id)
}

// SoftDelete marks a list deleted. Deleted lists are invisible to all reads
// except the owner's restore path.
func (s *ListStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(`UPDATE lists SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete list: %w", err)
	}
	return nil
}

func (s *ListStore) Restore(id int64) (*model.List, error) {
	_, err := s.db.Exec(`UPDATE lists SET deleted_at = NULL WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("restore list: %w", err)
	}
	return s.GetByID(id)
}

// RoleFor resolves the caller's effective role on a list: owner (implicit
// via ownership), a contributor role, or "" for no access. A soft-deleted
// list resolves to "" for everyone but its owner.
func (s *ListStore) RoleFor(listID, userID int64) (string, error) {
	l, err := s.GetByID(listID)
	if err != nil {
		return "", err
	}
	if l == nil {
		return "", nil
	}
	if l.OwnerID == userID {
		return model.RoleOwner, nil
	}
	if l.DeletedAt != nil {
		return "", nil
	}

	var role string
	err = s.db.QueryRow(
		`SELECT role FROM contributors WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get contributor role: %w", err)
	}
	return role, nil
}
