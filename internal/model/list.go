package model

import "time"

// Contributor roles, ordered by increasing privilege. The list owner is not
// stored as a contributor row; ownership is implicit via List.OwnerID.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

type List struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Name      string     `json:"name"`
	PlanID    *int64     `json:"plan_id"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type Contributor struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleAllowsWrite reports whether a role may mutate list contents.
func RoleAllowsWrite(role string) bool {
	switch role {
	case RoleEditor, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// RoleAllowsManage reports whether a role may manage contributors.
func RoleAllowsManage(role string) bool {
	return role == RoleAdmin || role == RoleOwner
}
