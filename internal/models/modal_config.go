package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModalSize is the width class of the promotional popup
type ModalSize string

const (
	ModalSizeSmall  ModalSize = "pequeño"
	ModalSizeMedium ModalSize = "mediano"
	ModalSizeLarge  ModalSize = "grande"
)

// Valid reports whether s is a known size class
func (s ModalSize) Valid() bool {
	switch s {
	case ModalSizeSmall, ModalSizeMedium, ModalSizeLarge:
		return true
	}
	return false
}

// Default modal colors
const (
	DefaultModalBackground = "#ffffff"
	DefaultModalText       = "#000000"
)

// ModalConfig is a promotional popup. At most one row is active.
type ModalConfig struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title           string     `gorm:"type:varchar(255);not null" json:"titulo"`
	Content         string     `gorm:"type:text" json:"contenido"`
	ImageURL        *string    `json:"imagen_url"`
	BackgroundColor string     `gorm:"type:varchar(20);not null" json:"color_fondo"`
	TextColor       string     `gorm:"type:varchar(20);not null" json:"color_texto"`
	Size            ModalSize  `gorm:"type:varchar(20);not null" json:"tamaño"`
	Active          bool       `gorm:"not null;default:false;index" json:"activo"`
	CreatedAt       time.Time  `gorm:"not null;index:idx_modal_config_created_at,sort:desc" json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// TableName specifies the table name for ModalConfig
func (ModalConfig) TableName() string {
	return "modal_config"
}

// BeforeCreate assigns the id
func (m *ModalConfig) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
