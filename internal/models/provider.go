package models

import "time"

// Provider identity lives in the external identity service; this row only
// carries what booking and payouts need.
type Provider struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	DisplayName string `gorm:"size:100;not null" json:"display_name"`
	Timezone    string `gorm:"size:50" json:"timezone"`

	// Connected account at the payment processor, target of payout transfers.
	PayoutAccountID string `gorm:"size:100" json:"-"`

	Active bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
