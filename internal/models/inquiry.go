package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InquiryStatus is the handling state of a contact submission
type InquiryStatus string

const (
	InquiryStatusPending   InquiryStatus = "pendiente"
	InquiryStatusCompleted InquiryStatus = "completada"
)

// Inquiry represents a contact form submission, optionally about a listing
type Inquiry struct {
	ID         string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string        `gorm:"type:varchar(255);not null" json:"nombre_completo"`
	Phone      string        `gorm:"type:varchar(50)" json:"telefono"`
	Email      string        `gorm:"type:varchar(255);not null;index" json:"email"`
	Message    string        `gorm:"type:text" json:"mensaje"`
	PropertyID *string       `gorm:"type:varchar(36);index" json:"propiedad_id"` // nil = general inquiry
	Status     InquiryStatus `gorm:"type:varchar(20);not null;default:'pendiente';index" json:"estado"`
	CreatedAt  time.Time     `gorm:"not null;index:idx_inquiries_created_at,sort:desc" json:"fecha_consulta"`

	// Filled on admin listing, not persisted
	Property *PropertySummary `gorm:"-" json:"propiedades,omitempty"`
}

// TableName specifies the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

// BeforeCreate assigns the id and forces the initial status
func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	i.Status = InquiryStatusPending
	return nil
}

// IsGeneral reports whether the inquiry is not tied to a listing
func (i *Inquiry) IsGeneral() bool {
	return i.PropertyID == nil || *i.PropertyID == ""
}
