package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfalke/sharelist/internal/model"
)

// ItemStore owns the (list_id, name, category) uniqueness invariant: every
// write that can collide goes through an ON CONFLICT upsert, so concurrent
// writers to the same logical key converge on one row without locking.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var checkedBy sql.NullInt64
	var checkedAt sql.NullTime
	var checked, manual int

	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Category, &item.Store,
		&checked, &checkedBy, &checkedAt, &manual, &item.SortOrder, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	item.ManuallyAdded = manual != 0
	if checkedBy.Valid {
		item.CheckedBy = &checkedBy.Int64
	}
	if checkedAt.Valid {
		item.CheckedAt = &checkedAt.Time
	}
	return &item, nil
}

const itemCols = `id, list_id, name, category, store, checked, checked_by, checked_at, manually_added, sort_order, created_at`

func (s *ItemStore) GetByID(id int64) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) GetByKey(listID int64, name, category string) (*model.Item, error) {
	row := s.db.QueryRow(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? AND name = ? AND category = ?`,
		listID, name, category,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by key: %w", err)
	}
	return item, nil
}

func (s *ItemStore) ListByList(listID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? ORDER BY checked ASC, category ASC, sort_order ASC, created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Create inserts a new item. Returns ErrDuplicate when the (name, category)
// key already exists in the list.
func (s *ItemStore) Create(listID int64, name, category, storeName string, manuallyAdded bool) (*model.Item, error) {
	result, err := s.db.Exec(
		`INSERT INTO items (list_id, name, category, store, manually_added) VALUES (?, ?, ?, ?, ?)`,
		listID, name, category, storeName, boolToInt(manuallyAdded),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Update rewrites an item's name, category and store by id. Returns
// ErrDuplicate when the new (name, category) key collides with another row.
func (s *ItemStore) Update(id int64, name, category, storeName string) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET name = ?, category = ?, store = ? WHERE id = ?`,
		name, category, storeName, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// SetChecked sets an item's checked state. Addressed by id the row must
// belong to listID or the item reads as not found; addressed by
// (name, category) it is an upsert, so two clients toggling the same name
// at once coalesce onto a single row.
func (s *ItemStore) SetChecked(listID int64, ref model.ItemRef, checked bool, userID int64) (*model.Item, error) {
	if ref.ByID() {
		src, err := s.resolve(listID, ref)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, nil
		}
		if err := s.applyChecked(s.db, src.ID, checked, userID); err != nil {
			return nil, err
		}
		return s.GetByID(src.ID)
	}

	var checkedBy sql.NullInt64
	var checkedAt sql.NullTime
	if checked {
		checkedBy = sql.NullInt64{Int64: userID, Valid: true}
		checkedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO items (list_id, name, category, checked, checked_by, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(list_id, name, category) DO UPDATE SET
		   checked = excluded.checked,
		   checked_by = excluded.checked_by,
		   checked_at = excluded.checked_at`,
		listID, ref.Name, ref.Category, boolToInt(checked), checkedBy, checkedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("set checked: %w", err)
	}
	return s.GetByKey(listID, ref.Name, ref.Category)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *ItemStore) applyChecked(db execer, id int64, checked bool, userID int64) error {
	var err error
	if checked {
		_, err = db.Exec(
			`UPDATE items SET checked = 1, checked_by = ?, checked_at = ? WHERE id = ?`,
			userID, time.Now().UTC(), id,
		)
	} else {
		_, err = db.Exec(
			`UPDATE items SET checked = 0, checked_by = NULL, checked_at = NULL WHERE id = ?`,
			id,
		)
	}
	if err != nil {
		return fmt.Errorf("set checked: %w", err)
	}
	return nil
}

// MoveCategory moves an item to a new category: the source row is deleted
// and the (name, new category) key upserted in one transaction. Two users
// independently moving the same-named item into the same destination
// converge on one row instead of duplicating it.
func (s *ItemStore) MoveCategory(listID int64, ref model.ItemRef, newCategory string) (*model.Item, error) {
	src, err := s.resolve(listID, ref)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin move: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, src.ID); err != nil {
		return nil, fmt.Errorf("delete source row: %w", err)
	}
	if err := upsertFull(tx, listID, src.Name, newCategory, src); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move: %w", err)
	}
	return s.GetByKey(listID, src.Name, newCategory)
}

// MoveStore reassigns an item to a store. The (name, category) key does not
// change, so the write is an upsert on the same key: concurrent moves of the
// same item coalesce, and a move of a not-yet-known name creates the row.
func (s *ItemStore) MoveStore(listID int64, ref model.ItemRef, newStore string) (*model.Item, error) {
	src, err := s.resolve(listID, ref)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, nil
	}

	_, err = s.db.Exec(
		`UPDATE items SET store = ? WHERE id = ?`,
		newStore, src.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("move store: %w", err)
	}
	return s.GetByID(src.ID)
}

// ClearChecked deletes every checked item in the list and returns the count.
func (s *ItemStore) ClearChecked(listID int64) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM items WHERE list_id = ? AND checked = 1`,
		listID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ReplaceAll atomically rewrites the entire item set of a list, e.g. when a
// shopping list is regenerated from its meal plan.
func (s *ItemStore) ReplaceAll(listID int64, items []model.Item) ([]model.Item, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE list_id = ?`, listID); err != nil {
		return nil, fmt.Errorf("clear list: %w", err)
	}

	for i, item := range items {
		_, err := tx.Exec(
			`INSERT INTO items (list_id, name, category, store, manually_added, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(list_id, name, category) DO UPDATE SET
			   store = excluded.store,
			   sort_order = excluded.sort_order`,
			listID, item.Name, item.Category, item.Store, boolToInt(item.ManuallyAdded), i,
		)
		if err != nil {
			return nil, fmt.Errorf("insert replacement item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}
	return s.ListByList(listID)
}

// resolve finds the row an ItemRef addresses. The id wins when both forms
// are present.
func (s *ItemStore) resolve(listID int64, ref model.ItemRef) (*model.Item, error) {
	if ref.ByID() {
		item, err := s.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		if item != nil && item.ListID != listID {
			return nil, nil
		}
		return item, nil
	}
	if ref.ByKey() {
		return s.GetByKey(listID, ref.Name, ref.Category)
	}
	return nil, nil
}

// upsertFull writes a row carrying all of src's mutable fields under a new
// (name, category) key. On collision the existing destination row absorbs
// the source's state.
func upsertFull(tx *sql.Tx, listID int64, name, category string, src *model.Item) error {
	var checkedBy sql.NullInt64
	if src.CheckedBy != nil {
		checkedBy = sql.NullInt64{Int64: *src.CheckedBy, Valid: true}
	}
	var checkedAt sql.NullTime
	if src.CheckedAt != nil {
		checkedAt = sql.NullTime{Time: *src.CheckedAt, Valid: true}
	}

	_, err := tx.Exec(
		`INSERT INTO items (list_id, name, category, store, checked, checked_by, checked_at, manually_added, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(list_id, name, category) DO UPDATE SET
		   store = excluded.store,
		   checked = excluded.checked,
		   checked_by = excluded.checked_by,
		   checked_at = excluded.checked_at,
		   manually_added = excluded.manually_added`,
		listID, name, category, src.Store, boolToInt(src.Checked), checkedBy, checkedAt,
		boolToInt(src.ManuallyAdded), src.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("upsert destination row: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
