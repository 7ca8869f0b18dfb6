package search

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/models"
)

// Filters is the sparse catalog filter. Nil or empty fields impose no
// constraint; numeric bounds are inclusive.
type Filters struct {
	Type         models.PropertyType `json:"tipo_propiedad,omitempty"`
	PriceMin     *float64            `json:"precio_min,omitempty"`
	PriceMax     *float64            `json:"precio_max,omitempty"`
	MinBedrooms  *int                `json:"dormitorios,omitempty"`
	MinBathrooms *int                `json:"banos,omitempty"`
	Location     string              `json:"ubicacion,omitempty"`
}

// Query parameter names, shared with the catalog page
const (
	ParamType      = "tipo_propiedad"
	ParamPriceMin  = "precio_min"
	ParamPriceMax  = "precio_max"
	ParamBedrooms  = "dormitorios"
	ParamBathrooms = "banos"
	ParamLocation  = "ubicacion"
)

// likeEscape is portable across MySQL, PostgreSQL and SQLite, unlike backslash
const likeEscape = "!"

// ParseFilters reads filters from query parameters. Malformed numbers are
// rejected instead of being silently dropped.
func ParseFilters(q url.Values) (Filters, error) {
	var f Filters
	var err error

	if t := strings.TrimSpace(q.Get(ParamType)); t != "" {
		f.Type = models.PropertyType(t)
		if !f.Type.Valid() {
			return Filters{}, apperr.Validationf("%s %q is not a known property type", ParamType, t)
		}
	}
	if f.PriceMin, err = parseFloatParam(q, ParamPriceMin); err != nil {
		return Filters{}, err
	}
	if f.PriceMax, err = parseFloatParam(q, ParamPriceMax); err != nil {
		return Filters{}, err
	}
	if f.MinBedrooms, err = parseIntParam(q, ParamBedrooms); err != nil {
		return Filters{}, err
	}
	if f.MinBathrooms, err = parseIntParam(q, ParamBathrooms); err != nil {
		return Filters{}, err
	}
	f.Location = strings.TrimSpace(q.Get(ParamLocation))
	return f, nil
}

func parseFloatParam(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperr.Validationf("%s must be a number, got %q", key, raw)
	}
	return &v, nil
}

func parseIntParam(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validationf("%s must be a whole number, got %q", key, raw)
	}
	return &v, nil
}

// IsEmpty reports whether no filter field is set
func (f Filters) IsEmpty() bool {
	return f.Type == "" && f.PriceMin == nil && f.PriceMax == nil &&
		f.MinBedrooms == nil && f.MinBathrooms == nil && f.Location == ""
}

// Scope adds one WHERE clause per set field. It does not touch the active
// flag or ordering; callers compose it onto the public listing query.
func (f Filters) Scope(db *gorm.DB) *gorm.DB {
	if f.PriceMin != nil {
		db = db.Where("price >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		db = db.Where("price <= ?", *f.PriceMax)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.MinBedrooms != nil {
		db = db.Where("bedrooms >= ?", *f.MinBedrooms)
	}
	if f.MinBathrooms != nil {
		db = db.Where("bathrooms >= ?", *f.MinBathrooms)
	}
	if f.Location != "" {
		pattern := "%" + escapeLike(models.SearchKey(f.Location)) + "%"
		db = db.Where("location_search LIKE ? ESCAPE '"+likeEscape+"'", pattern)
	}
	return db
}

// Matches applies the same predicates in memory
func (f Filters) Matches(p *models.Property) bool {
	if f.PriceMin != nil && p.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.Price > *f.PriceMax {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.MinBedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms < *f.MinBedrooms) {
		return false
	}
	if f.MinBathrooms != nil && (p.Bathrooms == nil || *p.Bathrooms < *f.MinBathrooms) {
		return false
	}
	if f.Location != "" && !strings.Contains(models.SearchKey(p.Location), models.SearchKey(f.Location)) {
		return false
	}
	return true
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}
