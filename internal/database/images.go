package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/media"
	"tecnomadas-portal/internal/models"
)

// ImageEncoder turns an upload into the reference stored in property_images
type ImageEncoder interface {
	Encode(ctx context.Context, propertyID string, up media.Upload) (string, error)
}

// passthroughEncoder stores links as given and inlines raw bytes untouched
type passthroughEncoder struct{}

func (passthroughEncoder) Encode(_ context.Context, _ string, up media.Upload) (string, error) {
	if up.URL != "" {
		return media.CheckURL(up.URL)
	}
	if len(up.Data) == 0 {
		return "", apperr.Validationf("image %q has no content", up.Filename)
	}
	return media.DataURL("application/octet-stream", up.Data), nil
}

// encodeImages runs the encoding step for each upload in input order. Uploads
// that fail to encode are skipped; the first surviving image becomes primary.
func (gdb *GormDB) encodeImages(ctx context.Context, propertyID string, uploads []media.Upload) []models.PropertyImage {
	images := make([]models.PropertyImage, 0, len(uploads))
	for i, up := range uploads {
		ref, err := gdb.encoder.Encode(ctx, propertyID, up)
		if err != nil {
			slog.Warn("skipping image", "property_id", propertyID, "index", i, "filename", up.Filename, "error", err)
			continue
		}
		images = append(images, models.PropertyImage{
			PropertyID: propertyID,
			URL:        ref,
		})
	}
	for i := range images {
		images[i].Position = i
		images[i].IsPrimary = i == 0
	}
	return images
}

// replaceImages deletes every image of propertyID and inserts images in order
func replaceImages(tx *gorm.DB, propertyID string, images []models.PropertyImage) error {
	if err := tx.Where("property_id = ?", propertyID).Delete(&models.PropertyImage{}).Error; err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	return tx.Create(&images).Error
}
