package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/models"
)

func TestParseFilters(t *testing.T) {
	q := url.Values{}
	q.Set(ParamType, "casa")
	q.Set(ParamPriceMin, "100000")
	q.Set(ParamPriceMax, " 250000.50 ")
	q.Set(ParamBedrooms, "2")
	q.Set(ParamBathrooms, "")
	q.Set(ParamLocation, "  Miraflores ")

	f, err := ParseFilters(q)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyTypeHouse, f.Type)
	require.NotNil(t, f.PriceMin)
	assert.Equal(t, 100000.0, *f.PriceMin)
	require.NotNil(t, f.PriceMax)
	assert.Equal(t, 250000.5, *f.PriceMax)
	require.NotNil(t, f.MinBedrooms)
	assert.Equal(t, 2, *f.MinBedrooms)
	assert.Nil(t, f.MinBathrooms)
	assert.Equal(t, "Miraflores", f.Location)
	assert.False(t, f.IsEmpty())
}

func TestParseFiltersEmpty(t *testing.T) {
	f, err := ParseFilters(url.Values{ParamPriceMin: {""}, ParamLocation: {"   "}})
	require.NoError(t, err)
	assert.True(t, f.IsEmpty())
}

func TestParseFiltersRejectsMalformedInput(t *testing.T) {
	cases := []url.Values{
		{ParamPriceMin: {"barato"}},
		{ParamPriceMax: {"NaN"}},
		{ParamPriceMax: {"Inf"}},
		{ParamPriceMin: {"-Inf"}},
		{ParamPriceMin: {"+Infinity"}},
		{ParamPriceMax: {"1e400"}},
		{ParamBedrooms: {"2.5"}},
		{ParamBathrooms: {"dos"}},
		{ParamType: {"castillo"}},
	}
	for _, q := range cases {
		_, err := ParseFilters(q)
		assert.ErrorIs(t, err, apperr.Validation, "query %v", q)
	}
}

func TestMatches(t *testing.T) {
	three := 3
	p := &models.Property{
		Type:     models.PropertyTypeHouse,
		Price:    200000,
		Location: "Cercado de Lima",
		Bedrooms: &three,
	}
	price := func(v float64) *float64 { return &v }
	count := func(v int) *int { return &v }

	assert.True(t, Filters{}.Matches(p))
	assert.True(t, Filters{PriceMin: price(200000), PriceMax: price(200000)}.Matches(p))
	assert.False(t, Filters{PriceMax: price(199999)}.Matches(p))
	assert.True(t, Filters{Location: "LIMA"}.Matches(p))
	assert.False(t, Filters{Location: "surco"}.Matches(p))
	assert.True(t, Filters{Location: "josé"}.Matches(&models.Property{Location: "JOSÉ LUIS BUSTAMANTE"}))
	assert.True(t, Filters{MinBedrooms: count(3)}.Matches(p))
	assert.False(t, Filters{MinBedrooms: count(4)}.Matches(p))
	assert.False(t, Filters{MinBathrooms: count(1)}.Matches(p), "unknown bathroom count never satisfies a minimum")
	assert.False(t, Filters{Type: models.PropertyTypeLand}.Matches(p))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!% de!_x!!", escapeLike("50% de_x!"))
}
