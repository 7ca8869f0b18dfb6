package database

import (
	"context"
	"log/slog"
	"strings"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/models"
)

// SubmitInquiry stores a contact submission as pending with a server timestamp
func (gdb *GormDB) SubmitInquiry(ctx context.Context, in *models.Inquiry) (*models.Inquiry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" {
		return nil, apperr.Validationf("name and email are required")
	}
	if in.PropertyID != nil && strings.TrimSpace(*in.PropertyID) == "" {
		in.PropertyID = nil
	}
	in.ID = ""
	in.Status = models.InquiryStatusPending
	in.CreatedAt = gdb.now()
	in.Property = nil

	if err := gdb.db.WithContext(ctx).Create(in).Error; err != nil {
		return nil, Classify(err, "submit inquiry")
	}

	slog.Info("inquiry received", "inquiry_id", in.ID, "general", in.IsGeneral())
	return in, nil
}

// ListInquiries returns every inquiry newest first, with the id and title of
// the referenced property when it still exists.
func (gdb *GormDB) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	db := gdb.db.WithContext(ctx)

	inquiries := []models.Inquiry{}
	if err := db.Order("created_at DESC").Order("id DESC").Find(&inquiries).Error; err != nil {
		return nil, Classify(err, "list inquiries")
	}

	ids := make([]string, 0, len(inquiries))
	seen := make(map[string]bool)
	for _, in := range inquiries {
		if in.IsGeneral() || seen[*in.PropertyID] {
			continue
		}
		seen[*in.PropertyID] = true
		ids = append(ids, *in.PropertyID)
	}
	if len(ids) == 0 {
		return inquiries, nil
	}

	var summaries []models.PropertySummary
	if err := db.Model(&models.Property{}).Select("id, title").Where("id IN ?", ids).Scan(&summaries).Error; err != nil {
		return nil, Classify(err, "list inquiries")
	}
	byID := make(map[string]models.PropertySummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	for i := range inquiries {
		if inquiries[i].IsGeneral() {
			continue
		}
		if s, ok := byID[*inquiries[i].PropertyID]; ok {
			summary := s
			inquiries[i].Property = &summary
		}
	}
	return inquiries, nil
}
