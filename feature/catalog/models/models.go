package models

import (
	"strconv"
	"time"
)

// Manufacturer is a ship manufacturer. Natural key: name.
type Manufacturer struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Code string `gorm:"uniqueIndex" json:"code"`

	LoadDate time.Time `gorm:"index" json:"load_date"`
}

// Ship is a purchasable spacecraft. Natural key: name (catalog-unique).
type Ship struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string `gorm:"uniqueIndex;not null" json:"name"`
	ManufacturerID uint   `gorm:"not null" json:"manufacturer_id"`

	Manufacturer *Manufacturer `gorm:"foreignKey:ManufacturerID" json:"manufacturer,omitempty"`
	LoadDate     time.Time     `gorm:"index" json:"load_date"`
}

// Store is a seller on either marketplace. Natural key: (owner, url).
type Store struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Owner string `gorm:"uniqueIndex:idx_store_owner_url;not null" json:"owner"`
	URL   string `gorm:"uniqueIndex:idx_store_owner_url" json:"url"`
}

// Standalone is a direct purchase offer. Natural key: (ship, price, store).
type Standalone struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipID      uint    `gorm:"uniqueIndex:idx_standalone_key;not null" json:"ship_id"`
	PriceUSD    float64 `gorm:"uniqueIndex:idx_standalone_key;not null" json:"price_usd"`
	StoreID     uint    `gorm:"uniqueIndex:idx_standalone_key;not null" json:"store_id"`
	Source      Source  `gorm:"index;not null" json:"source"`
	NeedsReview bool    `json:"needs_review"`

	Ship     *Ship     `gorm:"foreignKey:ShipID" json:"ship,omitempty"`
	Store    *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	LoadDate time.Time `gorm:"index" json:"load_date"`
}

// Upgrade is a ship-to-ship offer. Natural key: (from, to, price, store).
type Upgrade struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipFromID  uint    `gorm:"uniqueIndex:idx_upgrade_key;not null" json:"ship_from_id"`
	ShipToID    uint    `gorm:"uniqueIndex:idx_upgrade_key;not null" json:"ship_to_id"`
	PriceUSD    float64 `gorm:"uniqueIndex:idx_upgrade_key;not null" json:"price_usd"`
	StoreID     uint    `gorm:"uniqueIndex:idx_upgrade_key;not null" json:"store_id"`
	Source      Source  `gorm:"index;not null" json:"source"`
	NeedsReview bool    `json:"needs_review"`

	ShipFrom *Ship     `gorm:"foreignKey:ShipFromID" json:"ship_from,omitempty"`
	ShipTo   *Ship     `gorm:"foreignKey:ShipToID" json:"ship_to,omitempty"`
	Store    *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	LoadDate time.Time `gorm:"index" json:"load_date"`
}

// UpdateLog records one successful refresh of a category. Rows per
// category are trimmed to a configurable retention count.
type UpdateLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Category  Category  `gorm:"index;not null" json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// All returns every model for schema migration.
func All() []any {
	return []any{
		&Manufacturer{},
		&Ship{},
		&Store{},
		&Standalone{},
		&Upgrade{},
		&UpdateLog{},
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
