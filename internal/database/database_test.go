package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/media"
	"tecnomadas-portal/internal/models"
	"tecnomadas-portal/internal/search"
)

// stepClock advances one minute on every reading so creation order is stable
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestDB(t *testing.T) *GormDB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, InitSchema(db))
	clock := &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewGormDBFromDB(db, WithClock(clock.Now))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newProperty(title string, pt models.PropertyType, price float64, location string) *models.Property {
	return &models.Property{
		Title:       title,
		Description: "Descripción de " + title,
		Type:        pt,
		Price:       price,
		Location:    location,
		Features:    []string{},
	}
}

func urls(n int) []media.Upload {
	uploads := make([]media.Upload, n)
	for i := range uploads {
		uploads[i] = media.Upload{URL: fmt.Sprintf("https://img.example.com/%d.jpg", i)}
	}
	return uploads
}

func ids(props []models.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func countImages(t *testing.T, gdb *GormDB, propertyID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.DB().Model(&models.PropertyImage{}).Where("property_id = ?", propertyID).Count(&n).Error)
	return n
}

// seedCatalog creates a small mixed catalog and deactivates one listing
func seedCatalog(t *testing.T, gdb *GormDB) []*models.Property {
	t.Helper()
	ctx := context.Background()
	seed := []*models.Property{
		newProperty("Casa Test", models.PropertyTypeHouse, 200000, "Cercado"),
		newProperty("Depa Miraflores", models.PropertyTypeFlat, 350000, "Miraflores, Lima"),
		newProperty("Terreno Sur", models.PropertyTypeLand, 90000, "Lurín"),
		newProperty("Casa Grande", models.PropertyTypeHouse, 480000, "La Molina"),
		newProperty("Local Centro", models.PropertyTypeCommercial, 250000, "Cercado de Lima"),
	}
	seed[0].Bedrooms, seed[0].Bathrooms = intPtr(3), intPtr(2)
	seed[1].Bedrooms, seed[1].Bathrooms = intPtr(2), intPtr(1)
	seed[3].Bedrooms, seed[3].Bathrooms = intPtr(5), intPtr(4)

	for _, p := range seed {
		_, err := gdb.CreateProperty(ctx, p, nil)
		require.NoError(t, err)
	}
	_, err := gdb.SoftDeleteProperty(ctx, seed[3].ID)
	require.NoError(t, err)
	return seed
}

func TestCreatePropertyWithoutImages(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	// the store itself does not require a description; the admin form does
	created, err := gdb.CreateProperty(ctx, &models.Property{
		Title:    "Casa Test",
		Type:     models.PropertyTypeHouse,
		Price:    200000,
		Location: "Cercado",
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)
	assert.Empty(t, created.Images)

	stored, err := gdb.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.Equal(t, "Casa Test", stored.Title)
	assert.Empty(t, stored.Images)
	assert.Zero(t, countImages(t, gdb, created.ID))
}

func TestCreatePropertyStoresImagesInOrder(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 1, "Lima"), urls(3))
	require.NoError(t, err)
	assert.Empty(t, created.Images, "create returns the row without images")

	stored, err := gdb.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 3)
	for i, img := range stored.Images {
		assert.Equal(t, i, img.Position)
		assert.Equal(t, i == 0, img.IsPrimary)
		assert.Equal(t, fmt.Sprintf("https://img.example.com/%d.jpg", i), img.URL)
	}
	assert.Equal(t, stored.Images[0].ID, stored.PrimaryImage().ID)
}

func TestCreatePropertySkipsBadImages(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	uploads := []media.Upload{
		{URL: "ftp://nope"},
		{URL: "https://img.example.com/ok.jpg"},
	}
	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 1, "Lima"), uploads)
	require.NoError(t, err)

	stored, err := gdb.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 1)
	assert.True(t, stored.Images[0].IsPrimary)
	assert.Equal(t, 0, stored.Images[0].Position)
}

func TestGeohashFollowsCoordinates(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	p := newProperty("Casa", models.PropertyTypeHouse, 1, "Lima")
	p.Latitude, p.Longitude = floatPtr(-12.0464), floatPtr(-77.0428)
	created, err := gdb.CreateProperty(ctx, p, nil)
	require.NoError(t, err)
	assert.Len(t, created.Geohash, 9)

	fields := newProperty("Casa", models.PropertyTypeHouse, 1, "Lima")
	updated, err := gdb.UpdateProperty(ctx, created.ID, fields, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Geohash)
}

func TestSoftDeleteExcludesFromPublicQueries(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	seed := seedCatalog(t, gdb)
	hidden := seed[3]

	active, err := gdb.ListActiveProperties(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(active), hidden.ID)
	assert.Len(t, active, 4)

	for _, f := range []search.Filters{
		{},
		{Type: models.PropertyTypeHouse},
		{MinBedrooms: intPtr(5)},
		{Location: "molina"},
	} {
		found, err := gdb.SearchProperties(ctx, f)
		require.NoError(t, err)
		assert.NotContains(t, ids(found), hidden.ID, "filters %+v", f)
	}

	_, err = gdb.GetProperty(ctx, hidden.ID)
	assert.ErrorIs(t, err, apperr.NotFound)

	all, err := gdb.ListPropertiesForAdmin(ctx)
	require.NoError(t, err)
	require.Contains(t, ids(all), hidden.ID)
	for _, p := range all {
		if p.ID == hidden.ID {
			assert.False(t, p.Active)
		}
	}

	adminView, err := gdb.GetPropertyForAdmin(ctx, hidden.ID)
	require.NoError(t, err)
	assert.False(t, adminView.Active)
}

func TestSoftDeleteReturnsUpdatedRow(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 1, "Lima"), nil)
	require.NoError(t, err)

	row, err := gdb.SoftDeleteProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, row.Active)

	// second call is a no-op
	row, err = gdb.SoftDeleteProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, row.Active)

	var changes []models.PropertyChange
	require.NoError(t, gdb.DB().Where("property_id = ?", created.ID).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeTypeStatus, changes[0].ChangeType)

	_, err = gdb.SoftDeleteProperty(ctx, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestEmptyFiltersMatchActiveListing(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, gdb)

	active, err := gdb.ListActiveProperties(ctx)
	require.NoError(t, err)
	searched, err := gdb.SearchProperties(ctx, search.Filters{})
	require.NoError(t, err)

	assert.Equal(t, ids(active), ids(searched))
	// newest first
	for i := 1; i < len(active); i++ {
		assert.False(t, active[i].CreatedAt.After(active[i-1].CreatedAt))
	}
}

func TestFilteredResultsSatisfyEveryPredicate(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, gdb)

	active, err := gdb.ListActiveProperties(ctx)
	require.NoError(t, err)

	cases := []search.Filters{
		{Type: models.PropertyTypeHouse},
		{PriceMin: floatPtr(200000)},
		{PriceMax: floatPtr(250000)},
		{PriceMin: floatPtr(200000), PriceMax: floatPtr(250000)},
		{MinBedrooms: intPtr(2)},
		{MinBathrooms: intPtr(2)},
		{Location: "CERCADO"},
		{Location: "lima", PriceMax: floatPtr(300000)},
		{Type: models.PropertyTypeLand, PriceMin: floatPtr(100000)},
	}
	for _, f := range cases {
		found, err := gdb.SearchProperties(ctx, f)
		require.NoError(t, err)

		var expected []string
		for i := range active {
			if f.Matches(&active[i]) {
				expected = append(expected, active[i].ID)
			}
		}
		for i := range found {
			assert.True(t, f.Matches(&found[i]), "filters %+v returned %s", f, found[i].Title)
		}
		assert.Equal(t, len(expected), len(found), "filters %+v", f)
	}
}

func TestSearchByTypeAndMaxPrice(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa Test", models.PropertyTypeHouse, 200000, "Cercado"), nil)
	require.NoError(t, err)

	found, err := gdb.SearchProperties(ctx, search.Filters{Type: models.PropertyTypeHouse, PriceMax: floatPtr(250000)})
	require.NoError(t, err)
	assert.Contains(t, ids(found), created.ID)

	found, err = gdb.SearchProperties(ctx, search.Filters{Type: models.PropertyTypeLand})
	require.NoError(t, err)
	assert.NotContains(t, ids(found), created.ID)
}

func TestLocationFilterEscapesWildcards(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	literal, err := gdb.CreateProperty(ctx, newProperty("A", models.PropertyTypeHouse, 1, "Lote 50% Surco"), nil)
	require.NoError(t, err)
	_, err = gdb.CreateProperty(ctx, newProperty("B", models.PropertyTypeHouse, 1, "Lote 500 Surco"), nil)
	require.NoError(t, err)

	found, err := gdb.SearchProperties(ctx, search.Filters{Location: "50%"})
	require.NoError(t, err)
	assert.Equal(t, []string{literal.ID}, ids(found))
}

func TestLocationFilterFoldsAccentedCase(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Depa", models.PropertyTypeFlat, 1, "JOSÉ LUIS BUSTAMANTE"), nil)
	require.NoError(t, err)
	_, err = gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 1, "Miraflores"), nil)
	require.NoError(t, err)

	f := search.Filters{Location: "josé"}
	found, err := gdb.SearchProperties(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(found))
	assert.True(t, f.Matches(&found[0]))

	moved := newProperty("Depa", models.PropertyTypeFlat, 1, "San Isidro")
	_, err = gdb.UpdateProperty(ctx, created.ID, moved, nil)
	require.NoError(t, err)
	found, err = gdb.SearchProperties(ctx, f)
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = gdb.SearchProperties(ctx, search.Filters{Location: "ISIDRO"})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(found))
}

func TestInitSchemaBackfillsLocationSearch(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 1, "ÑAÑA"), nil)
	require.NoError(t, err)
	require.NoError(t, gdb.DB().Model(&models.Property{}).
		Where("id = ?", created.ID).
		UpdateColumn("location_search", "").Error)

	require.NoError(t, InitSchema(gdb.DB()))

	found, err := gdb.SearchProperties(ctx, search.Filters{Location: "ñaña"})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(found))
}

func TestUpdateReplacesImageSet(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), urls(2))
	require.NoError(t, err)

	replacement := []media.Upload{
		{URL: "https://img.example.com/new-a.jpg"},
		{URL: "https://img.example.com/new-b.jpg"},
		{URL: "https://img.example.com/new-c.jpg"},
	}
	updated, err := gdb.UpdateProperty(ctx, created.ID, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), replacement)
	require.NoError(t, err)
	require.Len(t, updated.Images, 3)
	assert.Equal(t, int64(3), countImages(t, gdb, created.ID))
	assert.Equal(t, "https://img.example.com/new-a.jpg", updated.Images[0].URL)
	assert.True(t, updated.Images[0].IsPrimary)
	assert.False(t, updated.Images[1].IsPrimary)
	assert.False(t, updated.Images[2].IsPrimary)
}

func TestUpdateWithoutImagesKeepsImageSet(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), urls(2))
	require.NoError(t, err)
	before, err := gdb.GetProperty(ctx, created.ID)
	require.NoError(t, err)

	for _, uploads := range [][]media.Upload{nil, {}} {
		updated, err := gdb.UpdateProperty(ctx, created.ID, newProperty("Casa editada", models.PropertyTypeHouse, 100, "Lima"), uploads)
		require.NoError(t, err)
		assert.Equal(t, "Casa editada", updated.Title)
		assert.Equal(t, ids2(before.Images), ids2(updated.Images))
	}
}

func ids2(images []models.PropertyImage) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func TestUpdateRejectsWhenNoImageSurvives(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), urls(2))
	require.NoError(t, err)

	_, err = gdb.UpdateProperty(ctx, created.ID, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), []media.Upload{{URL: "nope"}})
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Equal(t, int64(2), countImages(t, gdb, created.ID))
}

func TestUpdateOverwritesEveryScalarField(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	p := newProperty("Casa", models.PropertyTypeHouse, 100, "Lima")
	p.Bedrooms = intPtr(3)
	p.PriceUSD = floatPtr(30)
	p.Features = []string{"piscina"}
	created, err := gdb.CreateProperty(ctx, p, nil)
	require.NoError(t, err)

	fields := newProperty("Depa", models.PropertyTypeFlat, 150, "Surco")
	updated, err := gdb.UpdateProperty(ctx, created.ID, fields, nil)
	require.NoError(t, err)

	assert.Equal(t, "Depa", updated.Title)
	assert.Equal(t, models.PropertyTypeFlat, updated.Type)
	assert.Equal(t, 150.0, updated.Price)
	assert.Nil(t, updated.Bedrooms)
	assert.Nil(t, updated.PriceUSD)
	assert.Empty(t, updated.Features)
	assert.True(t, updated.Active)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	var changes []models.PropertyChange
	require.NoError(t, gdb.DB().Where("property_id = ?", created.ID).Order("id").Find(&changes).Error)
	types := make([]string, len(changes))
	for i, c := range changes {
		types[i] = c.ChangeType
	}
	assert.ElementsMatch(t, []string{models.ChangeTypePrice, models.ChangeTypePriceUSD, models.ChangeTypeType}, types)
	for _, c := range changes {
		if c.ChangeType == models.ChangeTypePrice {
			require.NotNil(t, c.ChangeMagnitude)
			assert.Equal(t, 50.0, *c.ChangeMagnitude)
		}
	}
}

func TestUpdateMissingProperty(t *testing.T) {
	gdb := newTestDB(t)
	_, err := gdb.UpdateProperty(context.Background(), "missing", newProperty("x", models.PropertyTypeHouse, 1, "y"), nil)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestHardDeleteRemovesImagesAndLogs(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	created, err := gdb.CreateProperty(ctx, newProperty("Casa", models.PropertyTypeHouse, 100, "Lima"), urls(2))
	require.NoError(t, err)

	entry, err := gdb.HardDeleteProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, entry.PropertyID)
	assert.Equal(t, 2, entry.ImageCount)
	assert.True(t, entry.WasActive)
	assert.Equal(t, models.DeleteReasonManual, entry.Reason)

	assert.Zero(t, countImages(t, gdb, created.ID))
	_, err = gdb.GetPropertyForAdmin(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.NotFound)

	_, err = gdb.HardDeleteProperty(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestSubmitInquiryForcesPending(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	in, err := gdb.SubmitInquiry(ctx, &models.Inquiry{
		Name:   "Ana Pérez",
		Email:  "ana@example.com",
		Phone:  "999888777",
		Status: models.InquiryStatusCompleted,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, models.InquiryStatusPending, in.Status)
	assert.True(t, in.IsGeneral())
	assert.False(t, in.CreatedAt.IsZero())

	_, err = gdb.SubmitInquiry(ctx, &models.Inquiry{Name: " ", Email: "x@example.com"})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestListInquiriesAttachesPropertySummary(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()

	kept, err := gdb.CreateProperty(ctx, newProperty("Casa Test", models.PropertyTypeHouse, 1, "Lima"), nil)
	require.NoError(t, err)
	gone, err := gdb.CreateProperty(ctx, newProperty("Borrada", models.PropertyTypeHouse, 1, "Lima"), nil)
	require.NoError(t, err)

	empty := ""
	first, err := gdb.SubmitInquiry(ctx, &models.Inquiry{Name: "A", Email: "a@example.com", PropertyID: &kept.ID})
	require.NoError(t, err)
	second, err := gdb.SubmitInquiry(ctx, &models.Inquiry{Name: "B", Email: "b@example.com", PropertyID: &empty})
	require.NoError(t, err)
	third, err := gdb.SubmitInquiry(ctx, &models.Inquiry{Name: "C", Email: "c@example.com", PropertyID: &gone.ID})
	require.NoError(t, err)

	_, err = gdb.HardDeleteProperty(ctx, gone.ID)
	require.NoError(t, err)

	list, err := gdb.ListInquiries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	assert.Nil(t, list[0].Property, "deleted property has no summary")
	assert.Nil(t, list[1].PropertyID)
	assert.Nil(t, list[1].Property)
	require.NotNil(t, list[2].Property)
	assert.Equal(t, models.PropertySummary{ID: kept.ID, Title: "Casa Test"}, *list[2].Property)
}

func TestStatsCountsCatalog(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, gdb)

	_, err := gdb.SubmitInquiry(ctx, &models.Inquiry{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	stats, err := gdb.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Properties.Active)
	assert.Equal(t, int64(1), stats.Properties.Inactive)
	assert.Equal(t, int64(5), stats.Properties.Total)
	assert.Equal(t, int64(1), stats.Properties.ByType[string(models.PropertyTypeHouse)])
	assert.Equal(t, int64(1), stats.Inquiries.Total)
	assert.Equal(t, int64(1), stats.Inquiries.ByStatus[string(models.InquiryStatusPending)])
	assert.Equal(t, int64(1), stats.Inquiries.General)

	var bucketed int64
	for _, r := range stats.PriceDistribution {
		bucketed += r.Count
	}
	assert.Equal(t, int64(4), bucketed)
}

func TestGetActivePropertiesByIDsKeepsOrder(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	seed := seedCatalog(t, gdb)

	got, err := gdb.GetActivePropertiesByIDs(ctx, []string{seed[2].ID, "unknown", seed[3].ID, seed[0].ID, seed[2].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{seed[2].ID, seed[0].ID}, ids(got))

	empty, err := gdb.GetActivePropertiesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
