package domain

import "time"

type ItemType string

const (
	ItemMedicine  ItemType = "medicine"
	ItemEquipment ItemType = "equipment"
)

const ConditionExpired = "expired"

// InventoryItem is one lot: a quantity of a named item held by one source.
// QuantityAvailable never leaves [0, TotalQuantity]; decrements happen only
// under the lot's row lock during fulfillment.
type InventoryItem struct {
	ID                string
	Name              string
	Type              ItemType
	QuantityAvailable int
	TotalQuantity     int
	SourceID          string
	Condition         string
	ExpiryDate        *time.Time
	CreatedAt         time.Time
}

// Expired reports whether a medicine lot's expiry has passed at the given
// instant. Equipment does not expire.
func (i InventoryItem) Expired(now time.Time) bool {
	return i.Type == ItemMedicine && i.ExpiryDate != nil && !i.ExpiryDate.After(now)
}
