// Package event defines the broadcast messages pushed to every viewer of a
// list. The type set is closed: Decode rejects anything it does not know,
// so subscribers never have to shape-guess a payload.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmfalke/sharelist/internal/model"
	"github.com/google/uuid"
)

type Type string

const (
	TypeItemAdded           Type = "item_added"
	TypeItemEdited          Type = "item_edited"
	TypeItemRemoved         Type = "item_removed"
	TypeIngredientToggled   Type = "ingredient_toggled"
	TypeItemMoved           Type = "item_moved"
	TypeItemMovedStore      Type = "item_moved_store"
	TypeCheckedItemsCleared Type = "checked_items_cleared"
	TypeInitial             Type = "initial"
	TypeHeartbeat           Type = "heartbeat"
)

// Event is a discriminated broadcast record. Which payload fields are set
// depends on Type: item events carry Item, initial carries Items, and
// checked_items_cleared carries DeletedCount. Heartbeats carry nothing.
type Event struct {
	ID           string       `json:"id,omitempty"`
	Type         Type         `json:"type"`
	Item         *model.Item  `json:"item,omitempty"`
	Items        []model.Item `json:"items,omitempty"`
	DeletedCount int64        `json:"deletedCount,omitempty"`
	UserID       int64        `json:"userId,omitempty"`
	UserName     string       `json:"userName,omitempty"`
	Timestamp    time.Time    `json:"timestamp,omitempty"`
}

// Actor identifies the user whose mutation produced an event.
type Actor struct {
	UserID int64
	Name   string
}

// NewItemEvent builds an event carrying the post-mutation item. Valid for
// item_added, item_edited, item_removed, ingredient_toggled, item_moved and
// item_moved_store.
func NewItemEvent(t Type, item *model.Item, actor Actor) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Item:      item,
		UserID:    actor.UserID,
		UserName:  actor.Name,
		Timestamp: time.Now().UTC(),
	}
}

// NewClearedEvent builds a checked_items_cleared event. Clients already hold
// the deleted ids locally; the count is enough to tell them to drop them.
func NewClearedEvent(deleted int64, actor Actor) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         TypeCheckedItemsCleared,
		DeletedCount: deleted,
		UserID:       actor.UserID,
		UserName:     actor.Name,
		Timestamp:    time.Now().UTC(),
	}
}

// NewInitialEvent builds a full-state replace event.
func NewInitialEvent(items []model.Item) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeInitial,
		Items:     items,
		Timestamp: time.Now().UTC(),
	}
}

// Heartbeat is the periodic liveness message. It is intercepted by the
// stream client and never forwarded to subscribers.
func Heartbeat() Event {
	return Event{Type: TypeHeartbeat}
}

// IsHeartbeat reports whether the event is a liveness ping.
func (e Event) IsHeartbeat() bool { return e.Type == TypeHeartbeat }

// Decode parses a wire message into an Event, rejecting unknown types and
// payloads that do not match the declared type.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	switch e.Type {
	case TypeItemAdded, TypeItemEdited, TypeItemRemoved,
		TypeIngredientToggled, TypeItemMoved, TypeItemMovedStore:
		if e.Item == nil {
			return Event{}, fmt.Errorf("decode event: %s without item", e.Type)
		}
	case TypeCheckedItemsCleared:
		if e.DeletedCount < 0 {
			return Event{}, fmt.Errorf("decode event: negative deletedCount")
		}
	case TypeInitial:
		// An empty list is a valid full-state replace.
	case TypeHeartbeat:
	default:
		return Event{}, fmt.Errorf("decode event: unknown type %q", e.Type)
	}

	return e, nil
}
