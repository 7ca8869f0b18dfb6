package models

import "time"

// PropertyChange is one detected field change made by an admin update
type PropertyChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"`
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(14,2)" json:"change_magnitude,omitempty"` // for numeric changes
	DetectedAt      time.Time `gorm:"not null;index" json:"detected_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypePrice    = "price_changed"
	ChangeTypePriceUSD = "price_usd_changed"
	ChangeTypeType     = "type_changed"
	ChangeTypeStatus   = "status_changed"
	ChangeTypeImages   = "images_replaced"
)
