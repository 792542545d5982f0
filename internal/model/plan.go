package model

import "time"

// MealPlan is the planning entity a shopping list may be derived from.
type MealPlan struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	WeekStart string    `json:"week_start"`
	CreatedAt time.Time `json:"created_at"`
}
