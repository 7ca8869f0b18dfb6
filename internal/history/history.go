// Package history records field-level changes made to listings.
package history

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/models"
)

// Service reads recorded property changes
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Diff compares the stored row with its replacement and returns one change
// per tracked field. imagesReplaced is the size of the new image set, or a
// negative number when images were left untouched.
func Diff(old, updated *models.Property, imagesReplaced int, now time.Time) []models.PropertyChange {
	changes := []models.PropertyChange{}

	if old.Price != updated.Price {
		magnitude := updated.Price - old.Price
		changes = append(changes, models.PropertyChange{
			PropertyID:      old.ID,
			ChangeType:      models.ChangeTypePrice,
			OldValue:        formatAmount(&old.Price),
			NewValue:        formatAmount(&updated.Price),
			ChangeMagnitude: &magnitude,
			DetectedAt:      now,
		})
	}

	if !float64PtrEqual(old.PriceUSD, updated.PriceUSD) {
		change := models.PropertyChange{
			PropertyID: old.ID,
			ChangeType: models.ChangeTypePriceUSD,
			OldValue:   formatAmount(old.PriceUSD),
			NewValue:   formatAmount(updated.PriceUSD),
			DetectedAt: now,
		}
		if old.PriceUSD != nil && updated.PriceUSD != nil {
			magnitude := *updated.PriceUSD - *old.PriceUSD
			change.ChangeMagnitude = &magnitude
		}
		changes = append(changes, change)
	}

	if old.Type != updated.Type {
		changes = append(changes, models.PropertyChange{
			PropertyID: old.ID,
			ChangeType: models.ChangeTypeType,
			OldValue:   string(old.Type),
			NewValue:   string(updated.Type),
			DetectedAt: now,
		})
	}

	if old.Active != updated.Active {
		changes = append(changes, StatusChange(old.ID, old.Active, updated.Active, now))
	}

	if imagesReplaced >= 0 {
		changes = append(changes, models.PropertyChange{
			PropertyID: old.ID,
			ChangeType: models.ChangeTypeImages,
			OldValue:   strconv.Itoa(len(old.Images)),
			NewValue:   strconv.Itoa(imagesReplaced),
			DetectedAt: now,
		})
	}

	return changes
}

// StatusChange describes an active flag transition
func StatusChange(propertyID string, from, to bool, now time.Time) models.PropertyChange {
	return models.PropertyChange{
		PropertyID: propertyID,
		ChangeType: models.ChangeTypeStatus,
		OldValue:   statusLabel(from),
		NewValue:   statusLabel(to),
		DetectedAt: now,
	}
}

// Save inserts changes using tx, doing nothing for an empty slice
func Save(tx *gorm.DB, changes []models.PropertyChange) error {
	if len(changes) == 0 {
		return nil
	}
	return tx.Create(&changes).Error
}

// ForProperty returns the changes of one property, newest first
func (s *Service) ForProperty(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	changes := []models.PropertyChange{}
	query := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load property history", err)
	}
	return changes, nil
}

// Recent returns the latest changes across all properties
func (s *Service) Recent(ctx context.Context, limit int) ([]models.PropertyChange, error) {
	changes := []models.PropertyChange{}
	query := s.db.WithContext(ctx).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load recent changes", err)
	}
	return changes, nil
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func formatAmount(v *float64) string {
	if v == nil {
		return "nil"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func float64PtrEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
