package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tecnomadas-portal/internal/models"
)

func TestMeiliFilter(t *testing.T) {
	lo, hi := 100000.0, 1500000.0
	beds := 2
	f := Filters{Type: models.PropertyTypeHouse, PriceMin: &lo, PriceMax: &hi, MinBedrooms: &beds, Location: "Surco"}

	assert.Equal(t, `tipo_propiedad = "casa" AND precio >= 100000 AND precio <= 1500000 AND dormitorios >= 2`, f.MeiliFilter())
	assert.Empty(t, Filters{Location: "Surco"}.MeiliFilter())
}

func TestNewDocument(t *testing.T) {
	lat, lng := -12.1, -77.0
	p := &models.Property{
		ID:        "p1",
		Title:     "Casa",
		Type:      models.PropertyTypeHouse,
		Price:     10,
		Latitude:  &lat,
		Longitude: &lng,
		CreatedAt: time.Unix(1700000000, 0),
		Images: []models.PropertyImage{
			{URL: "data:image/png;base64,AAAA", IsPrimary: true},
		},
	}

	doc := NewDocument(p)
	assert.Equal(t, "p1", doc.ID)
	assert.Empty(t, doc.ImageURL, "inline images are not indexed")
	assert.Equal(t, []string{}, doc.Features)
	assert.Equal(t, int64(1700000000), doc.CreatedAt)
	if assert.NotNil(t, doc.Geo) {
		assert.Equal(t, lat, doc.Geo.Lat)
	}

	p.Images[0].URL = "https://img.example.com/a.jpg"
	assert.Equal(t, "https://img.example.com/a.jpg", NewDocument(p).ImageURL)
}

type recordingIndexer struct {
	Disabled
	indexed []string
	deleted []string
}

func (r *recordingIndexer) IndexProperties(props []models.Property) error {
	for _, p := range props {
		r.indexed = append(r.indexed, p.ID)
	}
	return nil
}

func (r *recordingIndexer) DeleteProperty(id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func TestSyncFollowsActiveFlag(t *testing.T) {
	idx := &recordingIndexer{}
	Sync(idx, &models.Property{ID: "a", Active: true})
	Sync(idx, &models.Property{ID: "b", Active: false})

	assert.Equal(t, []string{"a"}, idx.indexed)
	assert.Equal(t, []string{"b"}, idx.deleted)
}

func TestDisabledSearch(t *testing.T) {
	_, err := Disabled{}.Search(SearchRequest{Query: "casa"})
	assert.ErrorIs(t, err, ErrDisabled)
}
