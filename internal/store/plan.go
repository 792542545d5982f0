package store

import (
	"database/sql"
	"fmt"

	"github.com/dmfalke/sharelist/internal/model"
)

type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

func scanPlan(scanner interface{ Scan(...any) error }) (*model.MealPlan, error) {
	var p model.MealPlan
	err := scanner.Scan(&p.ID, &p.OwnerID, &p.Name, &p.WeekStart, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const planCols = `id, owner_id, name, week_start, created_at`

func (s *PlanStore) Create(ownerID int64, name, weekStart string) (*model.MealPlan, error) {
	result, err := s.db.Exec(
		`INSERT INTO meal_plans (owner_id, name, week_start) VALUES (?, ?, ?)`,
		ownerID, name, weekStart,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PlanStore) GetByID(id int64) (*model.MealPlan, error) {
	row := s.db.QueryRow(`SELECT `+planCols+` FROM meal_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (s *PlanStore) ListForUser(ownerID int64) ([]model.MealPlan, error) {
	rows, err := s.db.Query(
		`SELECT `+planCols+` FROM meal_plans WHERE owner_id = ? ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.MealPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (s *PlanStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM meal_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}
