package models

import "time"

// DeleteLog records a listing that was permanently removed
type DeleteLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
	Location   string    `gorm:"type:varchar(255)" json:"location"`
	ImageCount int       `gorm:"not null;default:0" json:"image_count"`
	WasActive  bool      `gorm:"not null" json:"was_active"`
	DeletedAt  time.Time `gorm:"not null;index" json:"deleted_at"`
	Reason     string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonManual    = "manual_deletion"
	DeleteReasonRetention = "retention_expired"
)
