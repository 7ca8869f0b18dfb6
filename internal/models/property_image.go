package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyImage represents an image associated with a property
type PropertyImage struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID string    `gorm:"type:varchar(36);not null;index:idx_property_images_order,priority:1" json:"propiedad_id"`
	URL        string    `gorm:"not null" json:"url_imagen"` // http(s) URL or data: URL
	IsPrimary  bool      `gorm:"not null;default:false" json:"es_principal"`
	Position   int       `gorm:"not null;default:0;index:idx_property_images_order,priority:2" json:"orden"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}

// BeforeCreate assigns the image id
func (img *PropertyImage) BeforeCreate(tx *gorm.DB) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	return nil
}
