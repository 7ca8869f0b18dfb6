package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tecnomadas-portal/internal/apperr"
)

// MinYearBuilt is the earliest construction year accepted
const MinYearBuilt = 1900

// FormValue is a form field that may arrive as a JSON string, number or null.
type FormValue string

// UnmarshalJSON accepts "12", 12, 12.5 and null.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*v = FormValue(n.String())
	return nil
}

func (v FormValue) blank() bool { return strings.TrimSpace(string(v)) == "" }

// FeatureList accepts either a JSON array of strings or a string holding a
// JSON-encoded array, which is how the admin form posts it.
type FeatureList []string

func (f *FeatureList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = nil
			return nil
		}
		data = []byte(s)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("caracteristicas must be a list of strings: %w", err)
	}
	*f = list
	return nil
}

// Coordinates is an optional map pin
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PropertyForm is the admin create/update payload as typed into the form.
type PropertyForm struct {
	Title        string       `json:"titulo"`
	Description  string       `json:"descripcion"`
	Price        FormValue    `json:"precio"`
	PriceUSD     FormValue    `json:"precio_usd"`
	Type         string       `json:"tipo_propiedad"`
	Location     string       `json:"ubicacion"`
	TotalArea    FormValue    `json:"area_total"`
	Bedrooms     FormValue    `json:"dormitorios"`
	Bathrooms    FormValue    `json:"banos"`
	ParkingSpots FormValue    `json:"estacionamientos"`
	YearBuilt    FormValue    `json:"ano_construccion"`
	Features     FeatureList  `json:"caracteristicas"`
	Coordinates  *Coordinates `json:"coordenadas"`
}

// Parse validates the form and converts it into a Property. Non-numeric
// input in a numeric field is rejected rather than stored.
func (f PropertyForm) Parse(now time.Time) (*Property, error) {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "titulo")
	}
	if strings.TrimSpace(f.Description) == "" {
		missing = append(missing, "descripcion")
	}
	if f.Price.blank() {
		missing = append(missing, "precio")
	}
	if strings.TrimSpace(f.Type) == "" {
		missing = append(missing, "tipo_propiedad")
	}
	if strings.TrimSpace(f.Location) == "" {
		missing = append(missing, "ubicacion")
	}
	if len(missing) > 0 {
		return nil, apperr.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	pt := PropertyType(strings.TrimSpace(f.Type))
	if !pt.Valid() {
		return nil, apperr.Validationf("tipo_propiedad %q is not a known property type", f.Type)
	}

	p := &Property{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Type:        pt,
		Location:    strings.TrimSpace(f.Location),
	}

	price, err := parseAmount("precio", f.Price)
	if err != nil {
		return nil, err
	}
	p.Price = *price

	if p.PriceUSD, err = parseAmount("precio_usd", f.PriceUSD); err != nil {
		return nil, err
	}
	if p.TotalArea, err = parseAmount("area_total", f.TotalArea); err != nil {
		return nil, err
	}
	if p.Bedrooms, err = parseCount("dormitorios", f.Bedrooms); err != nil {
		return nil, err
	}
	if p.Bathrooms, err = parseCount("banos", f.Bathrooms); err != nil {
		return nil, err
	}
	if p.ParkingSpots, err = parseCount("estacionamientos", f.ParkingSpots); err != nil {
		return nil, err
	}
	if p.YearBuilt, err = parseCount("ano_construccion", f.YearBuilt); err != nil {
		return nil, err
	}
	if p.YearBuilt != nil && (*p.YearBuilt < MinYearBuilt || *p.YearBuilt > now.Year()) {
		return nil, apperr.Validationf("ano_construccion must be between %d and %d", MinYearBuilt, now.Year())
	}

	for _, feat := range f.Features {
		if feat = strings.TrimSpace(feat); feat != "" {
			p.Features = append(p.Features, feat)
		}
	}
	if p.Features == nil {
		p.Features = []string{}
	}

	if c := f.Coordinates; c != nil {
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return nil, apperr.Validationf("coordenadas out of range")
		}
		lat, lng := c.Lat, c.Lng
		p.Latitude, p.Longitude = &lat, &lng
	}

	return p, nil
}

// parseAmount parses an optional non-negative decimal. Blank yields nil.
func parseAmount(field string, v FormValue) (*float64, error) {
	if v.blank() {
		return nil, nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, apperr.Validationf("%s must be a number, got %q", field, string(v))
	}
	if n < 0 {
		return nil, apperr.Validationf("%s must not be negative", field)
	}
	return &n, nil
}

// parseCount parses an optional non-negative integer. Blank yields nil.
func parseCount(field string, v FormValue) (*int, error) {
	if v.blank() {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(v)))
	if err != nil {
		return nil, apperr.Validationf("%s must be a whole number, got %q", field, string(v))
	}
	if n < 0 {
		return nil, apperr.Validationf("%s must not be negative", field)
	}
	return &n, nil
}
