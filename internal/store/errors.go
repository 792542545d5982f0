package store

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert collides with a unique constraint,
// e.g. an item with the same (list, name, category) key already exists.
var ErrDuplicate = errors.New("duplicate row")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
