package database

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/history"
	"tecnomadas-portal/internal/media"
	"tecnomadas-portal/internal/models"
	"tecnomadas-portal/internal/search"
)

// updateColumns are overwritten on every admin update. The active flag is
// only changed through soft delete.
var updateColumns = []string{
	"title", "description", "type", "location", "location_search",
	"price", "price_usd", "total_area",
	"bedrooms", "bathrooms", "parking_spots", "year_built",
	"features", "latitude", "longitude", "geohash", "updated_at",
}

func withImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// activeListing is the base query behind every public listing
func (gdb *GormDB) activeListing(ctx context.Context) *gorm.DB {
	return gdb.db.WithContext(ctx).
		Scopes(withImages, newestFirst).
		Where("active = ?", true)
}

// ListActiveProperties retrieves all active properties with their images, newest first
func (gdb *GormDB) ListActiveProperties(ctx context.Context) ([]models.Property, error) {
	properties := []models.Property{}
	if err := gdb.activeListing(ctx).Find(&properties).Error; err != nil {
		return nil, Classify(err, "list properties")
	}
	return properties, nil
}

// SearchProperties retrieves active properties matching every set filter field.
// Empty filters give the same result as ListActiveProperties.
func (gdb *GormDB) SearchProperties(ctx context.Context, f search.Filters) ([]models.Property, error) {
	properties := []models.Property{}
	if err := gdb.activeListing(ctx).Scopes(f.Scope).Find(&properties).Error; err != nil {
		return nil, Classify(err, "search properties", "filters", f)
	}
	return properties, nil
}

// ListPropertiesForAdmin retrieves every property regardless of the active flag
func (gdb *GormDB) ListPropertiesForAdmin(ctx context.Context) ([]models.Property, error) {
	properties := []models.Property{}
	err := gdb.db.WithContext(ctx).Scopes(withImages, newestFirst).Find(&properties).Error
	if err != nil {
		return nil, Classify(err, "list properties for admin")
	}
	return properties, nil
}

// GetProperty retrieves an active property by ID. Inactive listings are
// reported as not found.
func (gdb *GormDB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := gdb.db.WithContext(ctx).Scopes(withImages).
		Where("id = ? AND active = ?", id, true).
		First(&property).Error
	if err != nil {
		return nil, Classify(err, "get property", "property_id", id)
	}
	return &property, nil
}

// GetPropertyForAdmin retrieves a property by ID regardless of the active flag
func (gdb *GormDB) GetPropertyForAdmin(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := gdb.db.WithContext(ctx).Scopes(withImages).Where("id = ?", id).First(&property).Error
	if err != nil {
		return nil, Classify(err, "get property", "property_id", id)
	}
	return &property, nil
}

// CreateProperty inserts an active property and its images in input order;
// the first stored image is primary. The returned row has no images attached.
func (gdb *GormDB) CreateProperty(ctx context.Context, p *models.Property, uploads []media.Upload) (*models.Property, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := gdb.now()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Images = nil

	images := gdb.encodeImages(ctx, p.ID, uploads)
	for i := range images {
		images[i].CreatedAt = now
	}

	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if len(images) > 0 {
			return tx.Create(&images).Error
		}
		return nil
	})
	if err != nil {
		return nil, Classify(err, "create property")
	}

	slog.Info("property created", "property_id", p.ID, "images", len(images))
	return p, nil
}

// UpdateProperty overwrites the scalar fields of property id with those of
// fields. A non-empty uploads replaces the whole image set; nil or empty
// uploads leave the stored images untouched. Price, type and status changes
// are recorded in the property history.
func (gdb *GormDB) UpdateProperty(ctx context.Context, id string, fields *models.Property, uploads []media.Upload) (*models.Property, error) {
	var images []models.PropertyImage
	replace := len(uploads) > 0
	if replace {
		images = gdb.encodeImages(ctx, id, uploads)
		if len(images) == 0 {
			return nil, apperr.Validationf("none of the %d images could be stored", len(uploads))
		}
	}
	now := gdb.now()

	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Property
		if err := tx.Scopes(withImages).Where("id = ?", id).First(&existing).Error; err != nil {
			return err
		}
		before := existing

		existing.Title = fields.Title
		existing.Description = fields.Description
		existing.Type = fields.Type
		existing.Location = fields.Location
		existing.Price = fields.Price
		existing.PriceUSD = fields.PriceUSD
		existing.TotalArea = fields.TotalArea
		existing.Bedrooms = fields.Bedrooms
		existing.Bathrooms = fields.Bathrooms
		existing.ParkingSpots = fields.ParkingSpots
		existing.YearBuilt = fields.YearBuilt
		existing.Features = fields.Features
		existing.Latitude = fields.Latitude
		existing.Longitude = fields.Longitude
		existing.UpdatedAt = now

		if err := tx.Model(&existing).Select(updateColumns).Omit(clause.Associations).Updates(&existing).Error; err != nil {
			return err
		}

		replaced := -1
		if replace {
			for i := range images {
				images[i].CreatedAt = now
			}
			if err := replaceImages(tx, id, images); err != nil {
				return err
			}
			replaced = len(images)
		}

		return history.Save(tx, history.Diff(&before, &existing, replaced, now))
	})
	if err != nil {
		return nil, Classify(err, "update property", "property_id", id)
	}

	slog.Info("property updated", "property_id", id, "images_replaced", replace)
	return gdb.GetPropertyForAdmin(ctx, id)
}

// SoftDeleteProperty hides a property from the public site and returns the updated row
func (gdb *GormDB) SoftDeleteProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	now := gdb.now()

	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&property).Error; err != nil {
			return err
		}
		if !property.Active {
			return nil
		}

		err := tx.Model(&models.Property{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"active":     false,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
		property.Active = false
		property.UpdatedAt = now

		return history.Save(tx, []models.PropertyChange{history.StatusChange(id, true, false, now)})
	})
	if err != nil {
		return nil, Classify(err, "deactivate property", "property_id", id)
	}

	slog.Info("property deactivated", "property_id", id)
	return &property, nil
}

// HardDeleteProperty permanently removes a property and its images
func (gdb *GormDB) HardDeleteProperty(ctx context.Context, id string) (*models.DeleteLog, error) {
	return gdb.PurgeProperty(ctx, id, models.DeleteReasonManual)
}

// PurgeProperty deletes the images and row of property id in one transaction
// and leaves a delete log entry with the given reason.
func (gdb *GormDB) PurgeProperty(ctx context.Context, id, reason string) (*models.DeleteLog, error) {
	var deleteLog models.DeleteLog

	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.Where("id = ?", id).First(&property).Error; err != nil {
			return err
		}

		deleted := tx.Where("property_id = ?", id).Delete(&models.PropertyImage{})
		if deleted.Error != nil {
			return deleted.Error
		}

		deleteLog = models.DeleteLog{
			PropertyID: property.ID,
			Title:      property.Title,
			Location:   property.Location,
			ImageCount: int(deleted.RowsAffected),
			WasActive:  property.Active,
			DeletedAt:  gdb.now(),
			Reason:     reason,
		}
		if err := tx.Create(&deleteLog).Error; err != nil {
			return err
		}

		return tx.Delete(&property).Error
	})
	if err != nil {
		return nil, Classify(err, "delete property", "property_id", id)
	}

	slog.Info("property deleted permanently", "property_id", id, "reason", reason, "images", deleteLog.ImageCount)
	return &deleteLog, nil
}

// GetActivePropertiesByIDs loads the active properties among ids, keeping
// the order of ids. Unknown or inactive ids are dropped.
func (gdb *GormDB) GetActivePropertiesByIDs(ctx context.Context, ids []string) ([]models.Property, error) {
	properties := []models.Property{}
	if len(ids) == 0 {
		return properties, nil
	}
	err := gdb.db.WithContext(ctx).Scopes(withImages).
		Where("id IN ? AND active = ?", ids, true).
		Find(&properties).Error
	if err != nil {
		return nil, Classify(err, "load properties")
	}

	byID := make(map[string]models.Property, len(properties))
	for _, p := range properties {
		byID[p.ID] = p
	}
	ordered := make([]models.Property, 0, len(properties))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}
