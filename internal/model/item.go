package model

import "time"

// Item is a single entry in a list. Within a list, (name, category) is
// unique; concurrent writes to the same key coalesce via upsert.
type Item struct {
	ID            int64      `json:"id"`
	ListID        int64      `json:"list_id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Store         string     `json:"store"`
	Checked       bool       `json:"checked"`
	CheckedBy     *int64     `json:"checked_by"`
	CheckedAt     *time.Time `json:"checked_at"`
	ManuallyAdded bool       `json:"manually_added"`
	SortOrder     int        `json:"sort_order"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ItemRef identifies an item either by id or by its (name, category) key.
// When both are set, the id names the source row and the key names the
// destination; collisions at the destination resolve through the upsert.
type ItemRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ByID reports whether the reference addresses a row by id.
func (r ItemRef) ByID() bool { return r.ID != 0 }

// ByKey reports whether the reference addresses a row by (name, category).
func (r ItemRef) ByKey() bool { return r.Name != "" && r.Category != "" }
