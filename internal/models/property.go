package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PropertyType is the listing category. Values match the catalog front end.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "casa"
	PropertyTypeApartment  PropertyType = "apartamento"
	PropertyTypeFlat       PropertyType = "departamento"
	PropertyTypeCommercial PropertyType = "local"
	PropertyTypeLand       PropertyType = "terreno"
)

// Valid reports whether t is one of the known listing categories
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeFlat, PropertyTypeCommercial, PropertyTypeLand:
		return true
	}
	return false
}

// geohashPrecision gives cells of roughly 5m x 5m
const geohashPrecision = 9

type Property struct {
	// Basic info
	ID          string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"titulo"`
	Description string       `gorm:"type:text;not null" json:"descripcion"`
	Type        PropertyType `gorm:"type:varchar(20);not null;index" json:"tipo_propiedad"`
	Location    string       `gorm:"type:varchar(255);not null" json:"ubicacion"`

	// LocationSearch is Location lower-cased in Go, so substring matching does
	// not depend on how the database folds non-ASCII case
	LocationSearch string `gorm:"type:varchar(255);not null;default:''" json:"-"`

	// Filter attributes
	Price        float64  `gorm:"type:decimal(14,2);not null;index" json:"precio"`
	PriceUSD     *float64 `gorm:"type:decimal(14,2)" json:"precio_usd"`
	TotalArea    *float64 `gorm:"type:decimal(10,2)" json:"area_total"`
	Bedrooms     *int     `gorm:"index" json:"dormitorios"`
	Bathrooms    *int     `gorm:"index" json:"banos"`
	ParkingSpots *int     `json:"estacionamientos"`
	YearBuilt    *int     `json:"ano_construccion"`

	Features datatypes.JSONSlice[string] `json:"caracteristicas"`

	// Map position
	Latitude  *float64 `json:"latitud"`
	Longitude *float64 `json:"longitud"`
	Geohash   string   `gorm:"type:varchar(12);index" json:"geohash,omitempty"`

	// Logical deletion flag; false hides the listing from the public site
	Active bool `gorm:"not null;default:true;index" json:"activa"`

	CreatedAt time.Time `gorm:"not null;index:idx_properties_created_at,sort:desc" json:"fecha_creacion"`
	UpdatedAt time.Time `json:"updated_at"`

	Images []PropertyImage `gorm:"foreignKey:PropertyID" json:"imagenes_propiedades"`
}

// TableName specifies the table name
func (Property) TableName() string {
	return "properties"
}

// BeforeCreate assigns the server-side id
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps the geohash and search key in step with the row
func (p *Property) BeforeSave(tx *gorm.DB) error {
	p.Geohash = p.computeGeohash()
	p.LocationSearch = SearchKey(p.Location)
	return nil
}

// SearchKey is the folded form used for location matching
func SearchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (p *Property) computeGeohash() string {
	if p.Latitude == nil || p.Longitude == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(*p.Latitude, *p.Longitude, geohashPrecision)
}

// PrimaryImage returns the image flagged primary, if any
func (p *Property) PrimaryImage() *PropertyImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// PropertySummary is the id/title pair attached to inquiries
type PropertySummary struct {
	ID    string `json:"id"`
	Title string `json:"titulo"`
}
