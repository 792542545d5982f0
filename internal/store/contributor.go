package store

import (
	"database/sql"
	"fmt"

	"github.com/dmfalke/sharelist/internal/model"
)

type ContributorStore struct {
	db *sql.DB
}

func NewContributorStore(db *sql.DB) *ContributorStore {
	return &ContributorStore{db: db}
}

func scanContributor(scanner interface{ Scan(...any) error }) (*model.Contributor, error) {
	var c model.Contributor
	err := scanner.Scan(&c.ID, &c.ListID, &c.UserID, &c.Role, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const contributorCols = `id, list_id, user_id, role, created_at`

// Upsert sets the role for a (list, user) pair, creating the row if absent.
// At most one role record per pair is the table's unique constraint.
func (s *ContributorStore) Upsert(listID, userID int64, role string) (*model.Contributor, error) {
	_, err := s.db.Exec(
		`INSERT INTO contributors (list_id, user_id, role) VALUES (?, ?, ?)
		 ON CONFLICT(list_id, user_id) DO UPDATE SET role = excluded.role`,
		listID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert contributor: %w", err)
	}
	return s.Get(listID, userID)
}

func (s *ContributorStore) Get(listID, userID int64) (*model.Contributor, error) {
	row := s.db.QueryRow(
		`SELECT `+contributorCols+` FROM contributors WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	c, err := scanContributor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contributor: %w", err)
	}
	return c, nil
}

func (s *ContributorStore) ListByList(listID int64) ([]model.Contributor, error) {
	rows, err := s.db.Query(
		`SELECT `+contributorCols+` FROM contributors WHERE list_id = ? ORDER BY created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}
	defer rows.Close()

	var contributors []model.Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contributor: %w", err)
		}
		contributors = append(contributors, *c)
	}
	return contributors, rows.Err()
}

func (s *ContributorStore) Delete(listID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM contributors WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete contributor: %w", err)
	}
	return nil
}
