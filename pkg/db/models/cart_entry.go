package models

import "time"

// CartEntry is one key/value slot of the cart storage table. Keys are the
// per-session storage keys ("bakery_cart:<session>", "cartCount:<session>").
type CartEntry struct {
	Key       string     `gorm:"column:key;primaryKey;size:255"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartEntry) TableName() string {
	return "cart_entries"
}
