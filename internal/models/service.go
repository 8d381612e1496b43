package models

import "time"

type Service struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	ProviderID string `gorm:"size:36;index" json:"provider_id"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	DurationMin int    `json:"duration_min"`

	// Minor units (cents). All money in this codebase is integer cents.
	PriceCents int64  `json:"price_cents"`
	Currency   string `gorm:"size:3;default:'USD'" json:"currency"`

	Category string `gorm:"size:50" json:"category"`
	Active   bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
