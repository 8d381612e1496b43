package models

import "time"

type WorkingHours struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ProviderID string `gorm:"size:36;index" json:"provider_id"`

	Weekday int `json:"weekday"`

	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
	Active     bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
