package domain

import "time"

// InventoryAction is the kind of change an InventoryEvent records.
type InventoryAction string

const (
	ActionCreated InventoryAction = "created"
	ActionUpdated InventoryAction = "updated"
	ActionDeleted InventoryAction = "deleted"
)

// InventoryEvent is an entry of the inventory audit trail.
type InventoryEvent struct {
	ID         string          `json:"id" bson:"_id"`
	Action     InventoryAction `json:"action" bson:"action"`
	ShoeID     int64           `json:"shoe_id" bson:"shoe_id"`
	Username   string          `json:"username" bson:"username"`
	OccurredAt time.Time       `json:"occurred_at" bson:"occurred_at"`
	Snapshot   Shoe            `json:"snapshot" bson:"snapshot"`
}
